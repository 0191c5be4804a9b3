// Package executor defines the contract a code-execution engine must
// satisfy to run inside a session. Implementations are external to this
// package; internal/executor/dockerexec provides one optional reference
// implementation.
package executor

import (
	"context"
	"time"

	"github.com/agentbridge/bridge/internal/domain"
)

// ExecutionContext is everything an Executor needs to run one session's
// work, built fresh by the Session Manager for each invocation.
type ExecutionContext struct {
	Session        *domain.Session
	Issue          *domain.Issue
	TriggerComment *domain.Comment
	WorkingDir     string
	BranchName     string
	// Context carries ad hoc data instead of a loose dynamic map.
	Context map[string]string
}

// CommitInfo describes one commit an executor produced.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Files     []string  `json:"files"`
}

// ExecutionResult is what an Executor reports when it finishes.
type ExecutionResult struct {
	Success       bool         `json:"success"`
	Output        string       `json:"output,omitempty"`
	Error         string       `json:"error,omitempty"`
	FilesModified []string     `json:"filesModified"`
	Commits       []CommitInfo `json:"commits"`
	Duration      time.Duration `json:"duration"`
	ExitCode      int          `json:"exitCode"`
}

// Executor runs a session's work to completion and allows cancellation.
// Execute may be long-running; it MUST honor ctx cancellation and return
// promptly after CancelSession is called for the same session.
type Executor interface {
	Execute(ctx context.Context, ec ExecutionContext) (ExecutionResult, error)
	CancelSession(sessionID string) error
}

// Package bossagent implements the optional delegation front-end: classify
// the task, decide whether to delegate, hand it to an external task
// runner, monitor progress, and report a result back to the Session
// Manager.
package bossagent

import (
	"context"
	"time"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/executor"
)

// TaskType is the closed set of task categories Classify can infer.
type TaskType string

const (
	TaskBugFix   TaskType = "bug_fix"
	TaskFeature  TaskType = "feature"
	TaskRefactor TaskType = "refactor"
	TaskTest     TaskType = "test"
	TaskDocs     TaskType = "docs"
	TaskReview   TaskType = "review"
	TaskPerf     TaskType = "perf"
	TaskOther    TaskType = "other"
)

// Priority is the closed set of priority levels Classify can infer.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Classification is the output of Classify.
type Classification struct {
	TaskType   TaskType
	Complexity int // 1-10
	Priority   Priority
	Scope      string
}

// Strategy is the closed set of delegation strategies Decide can choose.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategySplit     Strategy = "split"
	StrategyParallel  Strategy = "parallel"
	StrategyCodegen   Strategy = "codegen"
	StrategySelective Strategy = "selective"
)

// Decision is the output of Decide.
type Decision struct {
	Delegate bool
	Strategy Strategy
}

// TaskHandle identifies a task submitted to the external runner.
type TaskHandle struct {
	TaskID            string
	EstimatedDuration time.Duration
}

// DelegationResult is what HandleTask returns on a terminal outcome.
type DelegationResult struct {
	Success       bool
	Summary       string
	FilesModified []string
	Commits       []executor.CommitInfo
	Duration      time.Duration
}

// Agent is the interface the Session Manager calls. A nil result with a nil
// error means "declined"; the Session Manager treats a returned error or a
// recovered panic identically to a nil result (exception-as-decline).
type Agent interface {
	HandleTask(ctx context.Context, issue *domain.Issue, comment *domain.Comment) (*DelegationResult, error)
}

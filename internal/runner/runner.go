// Package runner defines the outbound contract the Boss Agent uses to hand
// work to an external task runner. Implementations are external to this
// module; Noop is a reference implementation for wiring and tests.
package runner

import (
	"context"
	"fmt"

	"github.com/agentbridge/bridge/internal/domain"
)

// TaskResult is what CreateTask returns: an opaque handle the Boss Agent
// correlates with an issue via its own taskId->issueId mapping.
type TaskResult struct {
	TaskID            string
	EstimatedDuration int64 // seconds; 0 means unknown
}

// Runner submits work to, and cancels work on, an external task execution
// system (e.g. a hosted codegen service).
type Runner interface {
	CreateTask(ctx context.Context, prompt string, taskContext map[string]string) (TaskResult, error)
	CancelTask(ctx context.Context, taskID string) error
}

// Noop always declines to run: CreateTask fails with domain.ErrExecutor, so
// a Boss Agent wired to it never delegates and the Session Manager falls
// through to the direct executor.
type Noop struct{}

func (Noop) CreateTask(context.Context, string, map[string]string) (TaskResult, error) {
	return TaskResult{}, fmt.Errorf("runner.Noop: %w", domain.ErrExecutor)
}

func (Noop) CancelTask(context.Context, string) error { return nil }

package executor

import (
	"context"
	"fmt"

	"github.com/agentbridge/bridge/internal/domain"
)

// Noop stands in when no direct executor is configured. Execute fails
// immediately rather than hanging a session in RUNNING forever; this is the
// correct behavior for a bridge deployed with no executor and no Boss
// Agent delegation.
type Noop struct{}

func (Noop) Execute(_ context.Context, ec ExecutionContext) (ExecutionResult, error) {
	return ExecutionResult{}, fmt.Errorf("executor.Noop.Execute: %w: no executor configured for session %s", domain.ErrExecutor, ec.Session.ID)
}

func (Noop) CancelSession(string) error { return nil }

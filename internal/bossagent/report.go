package bossagent

import (
	"context"
	"time"

	"github.com/agentbridge/bridge/internal/domain"
)

// report turns a terminal CallbackEvent into the DelegationResult handed
// back to the Session Manager, and posts a best-effort summary comment on
// the originating issue.
func (a *BossAgent) report(ctx context.Context, issue *domain.Issue, evt CallbackEvent, startedAt time.Time) *DelegationResult {
	result := &DelegationResult{
		Success:       evt.Kind == CallbackCompleted && evt.Success,
		Summary:       evt.Summary,
		FilesModified: evt.FilesModified,
		Commits:       evt.Commits,
		Duration:      time.Since(startedAt),
	}
	if evt.Duration > 0 {
		result.Duration = evt.Duration
	}

	switch evt.Kind {
	case CallbackCompleted:
		a.commentBestEffort(ctx, issue, "Delegated task completed: "+evt.Summary)
	case CallbackFailed:
		a.commentBestEffort(ctx, issue, "Delegated task failed: "+evt.Summary)
	case CallbackCancelled:
		a.commentBestEffort(ctx, issue, "Delegated task cancelled.")
	}

	return result
}

package bossagent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/executor"
)

// CallbackKind is the closed set of progress/terminal events the external
// runner can report.
type CallbackKind string

const (
	CallbackStarted   CallbackKind = "task.started"
	CallbackProgress  CallbackKind = "task.progress"
	CallbackCompleted CallbackKind = "task.completed"
	CallbackFailed    CallbackKind = "task.failed"
	CallbackCancelled CallbackKind = "task.cancelled"
)

func (k CallbackKind) terminal() bool {
	switch k {
	case CallbackCompleted, CallbackFailed, CallbackCancelled:
		return true
	default:
		return false
	}
}

// CallbackEvent is the parsed body of a POST /webhooks/codegen delivery.
type CallbackEvent struct {
	TaskID        string                `json:"taskId"`
	Kind          CallbackKind          `json:"kind"`
	Progress      int                   `json:"progress,omitempty"`
	Success       bool                  `json:"success,omitempty"`
	Summary       string                `json:"summary,omitempty"`
	FilesModified []string              `json:"filesModified,omitempty"`
	Commits       []executor.CommitInfo `json:"commits,omitempty"`
	Duration      time.Duration         `json:"durationNs,omitempty"`
}

const (
	defaultPollInterval  = 30 * time.Second
	minFallbackWindow    = 10 * time.Minute
	fallbackWindowFactor = 2
)

// progressThresholds are the only progress percentages that get surfaced
// externally, to avoid notification spam from a fine-grained progress feed.
var progressThresholds = []int{25, 50, 75, 100} //nolint:gochecknoglobals // fixed reporting thresholds

// HandleCallback delivers an inbound runner callback to whichever monitor
// call is waiting on its taskId. An unknown task id is logged and returned
// as an error wrapping domain.ErrNotFound: a callback can legitimately
// arrive after its monitor has already timed out and stopped listening.
func (a *BossAgent) HandleCallback(evt CallbackEvent) error {
	a.waitersMu.Lock()
	ch, ok := a.waiters[evt.TaskID]
	a.waitersMu.Unlock()

	if !ok {
		log.Warn().Str("taskId", evt.TaskID).Msg("bossagent: callback for unknown or already-resolved task")
		return fmt.Errorf("bossagent.BossAgent.HandleCallback: %w: %s", domain.ErrNotFound, evt.TaskID)
	}

	select {
	case ch <- evt:
	default:
		log.Warn().Str("taskId", evt.TaskID).Msg("bossagent: callback dropped, monitor not receiving")
	}
	return nil
}

// monitor blocks until handle's task reaches a terminal callback event, ctx
// is done, or hardTimeout elapses. Once the fallback window passes a poll
// ticker starts, but its ticks poll nothing and never resolve the task. Progress
// crossings of the fixed thresholds are reported to the tracker as
// best-effort issue comments.
func (a *BossAgent) monitor(ctx context.Context, issue *domain.Issue, handle TaskHandle, hardTimeout time.Duration) (CallbackEvent, error) {
	ch := make(chan CallbackEvent, 8)
	a.waitersMu.Lock()
	a.waiters[handle.TaskID] = ch
	a.waitersMu.Unlock()
	defer func() {
		a.waitersMu.Lock()
		delete(a.waiters, handle.TaskID)
		a.waitersMu.Unlock()
	}()

	fallbackWindow := handle.EstimatedDuration * fallbackWindowFactor
	if fallbackWindow < minFallbackWindow {
		fallbackWindow = minFallbackWindow
	}

	timeout := time.NewTimer(hardTimeout)
	defer timeout.Stop()
	fallback := time.NewTimer(fallbackWindow)
	defer fallback.Stop()

	var lastThreshold int
	var poller *time.Ticker

	for {
		select {
		case <-ctx.Done():
			return CallbackEvent{}, fmt.Errorf("bossagent.BossAgent.monitor: %w", ctx.Err())

		case <-timeout.C:
			return CallbackEvent{}, fmt.Errorf("bossagent.BossAgent.monitor: %w: hard timeout exceeded", domain.ErrDelegation)

		case <-fallback.C:
			if poller == nil {
				poller = time.NewTicker(defaultPollInterval)
				defer poller.Stop()
			}

		case <-tickerC(poller):
			// No GetTaskStatus operation is named in the runner wrapper
			// contract; the poll loop exists as the documented fallback
			// slot but has nothing to poll until a runner implementation
			// exposes one. It keeps waiting on callbacks/timeout instead.

		case evt := <-ch:
			if evt.Kind == CallbackProgress {
				lastThreshold = a.reportProgressIfThresholdCrossed(ctx, issue, evt, lastThreshold)
				continue
			}
			if evt.Kind.terminal() {
				return evt, nil
			}
		}
	}
}

// tickerC returns t.C, or a nil channel (which blocks forever in a select)
// when t is nil, so the poller case is inert until it exists.
func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (a *BossAgent) reportProgressIfThresholdCrossed(ctx context.Context, issue *domain.Issue, evt CallbackEvent, lastThreshold int) int {
	for _, threshold := range progressThresholds {
		if evt.Progress >= threshold && lastThreshold < threshold {
			a.commentBestEffort(ctx, issue, fmt.Sprintf("Delegated task progress: %d%%", threshold))
			lastThreshold = threshold
		}
	}
	return lastThreshold
}

func (a *BossAgent) commentBestEffort(ctx context.Context, issue *domain.Issue, body string) {
	if issue == nil || a.tracker == nil {
		return
	}
	if _, err := a.tracker.CreateComment(ctx, issue.ID, body); err != nil {
		log.Warn().Err(err).Str("issueId", issue.ID).Msg("bossagent: failed to post comment")
	}
}

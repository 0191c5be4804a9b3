package bossagent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/runner"
	"github.com/agentbridge/bridge/internal/tracker"
)

// Mirror optionally replicates the taskId<->issueId mapping somewhere that
// survives a process restart. Redis is the grounded enrichment
// (internal/bossagent/redismirror); a nil Mirror keeps the mapping
// in-process only.
type Mirror interface {
	Set(ctx context.Context, taskID, issueID string) error
}

// BossAgent is the concrete Agent: it classifies a task, decides whether to
// delegate, and if so drives delegate -> monitor -> report to a terminal
// DelegationResult.
type BossAgent struct {
	threshold      int
	whitelist      map[TaskType]bool
	sessionTimeout time.Duration

	runner  runner.Runner
	tracker tracker.Tracker
	mirror  Mirror

	mappingMu sync.RWMutex
	mapping   map[string]string // taskID -> issueID

	waitersMu sync.Mutex
	waiters   map[string]chan CallbackEvent
}

// Option configures optional BossAgent parameters.
type Option func(*BossAgent)

// WithWhitelist overrides the default task-type delegation whitelist.
func WithWhitelist(whitelist map[TaskType]bool) Option {
	return func(a *BossAgent) { a.whitelist = whitelist }
}

// WithMirror attaches an optional mapping mirror.
func WithMirror(m Mirror) Option {
	return func(a *BossAgent) { a.mirror = m }
}

// New constructs a BossAgent. threshold is the minimum classified
// complexity that qualifies a task for delegation; sessionTimeout is the
// Session Manager's configured per-session timeout, used to compute
// monitor's hard timeout alongside any runner-reported estimate.
func New(threshold int, sessionTimeout time.Duration, r runner.Runner, t tracker.Tracker, opts ...Option) *BossAgent {
	a := &BossAgent{
		threshold:      threshold,
		sessionTimeout: sessionTimeout,
		runner:         r,
		tracker:        t,
		mapping:        make(map[string]string),
		waiters:        make(map[string]chan CallbackEvent),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleTask implements bossagent.Agent. It returns (nil, nil) when the
// task is not a delegation candidate, so the Session Manager falls through
// to the direct executor.
func (a *BossAgent) HandleTask(ctx context.Context, issue *domain.Issue, comment *domain.Comment) (*DelegationResult, error) {
	classification := Classify(issue, comment)
	decision := Decide(classification, a.threshold, a.whitelist)

	if !decision.Delegate {
		return nil, nil
	}

	startedAt := time.Now()

	handle, err := a.delegate(ctx, issue, comment, classification, decision.Strategy)
	if err != nil {
		return nil, err
	}
	defer a.forgetMapping(handle.TaskID)

	hardTimeout := a.sessionTimeout
	if runnerTimeout := handle.EstimatedDuration * 2; runnerTimeout > hardTimeout {
		hardTimeout = runnerTimeout
	}

	evt, err := a.monitor(ctx, issue, handle, hardTimeout)
	if err != nil {
		log.Warn().Err(err).Str("taskId", handle.TaskID).Msg("bossagent: monitor did not reach a terminal event")
		if cancelErr := a.runner.CancelTask(ctx, handle.TaskID); cancelErr != nil {
			log.Warn().Err(cancelErr).Str("taskId", handle.TaskID).Msg("bossagent: failed to cancel timed-out task")
		}
		return nil, err
	}

	return a.report(ctx, issue, evt, startedAt), nil
}

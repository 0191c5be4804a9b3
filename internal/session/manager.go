// Package session implements the Session Manager: the state machine that
// owns a Session's lifecycle from creation through a terminal outcome,
// whether that outcome comes from the Boss Agent or a direct Executor.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/bossagent"
	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/events"
	"github.com/agentbridge/bridge/internal/executor"
	"github.com/agentbridge/bridge/internal/sessionstore"
	"github.com/agentbridge/bridge/internal/worktree"
)

// WorktreeManager is the narrow slice of worktree.Manager the Session
// Manager depends on.
type WorktreeManager interface {
	CreateWorktree(ctx context.Context, sessionID, baseBranch, branchName string) (string, error)
	RemoveWorktree(ctx context.Context, sessionID string) error
}

const storeRetryBackoff = 200 * time.Millisecond

// runtime tracks the live handles a running session owns: the cancel func
// for its executor context and its armed timeout timer. Both are replaced,
// never stacked, on every StartSession call.
type runtime struct {
	cancel context.CancelFunc
	timer  *time.Timer
}

// Manager is the Session Manager. It is safe for concurrent use.
type Manager struct {
	cfg      *config.Config
	store    sessionstore.Store
	worktree WorktreeManager
	direct   executor.Executor
	boss     bossagent.Agent
	bus      *events.Bus

	sem chan struct{}

	createMu sync.Mutex

	runtimeMu sync.Mutex
	runtimes  map[string]*runtime
}

// New constructs a Manager. boss may be nil, in which case the delegation
// branch is always skipped regardless of cfg.EnableBossAgent.
func New(cfg *config.Config, store sessionstore.Store, wt WorktreeManager, direct executor.Executor, boss bossagent.Agent, bus *events.Bus) *Manager {
	max := cfg.MaxConcurrentSessions
	if max <= 0 {
		max = 1
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		worktree: wt,
		direct:   direct,
		boss:     boss,
		bus:      bus,
		sem:      make(chan struct{}, max),
		runtimes: make(map[string]*runtime),
	}
}

// CreateSession enforces the at-most-one-active-session-per-issue
// invariant: a create for an issue that already has an active session
// returns that session unchanged instead of a duplicate. A single mutex
// around the load-then-save sequence is an acceptable substitute for a
// per-issue lock at this scale.
func (m *Manager) CreateSession(ctx context.Context, issue *domain.Issue, comment *domain.Comment) (*domain.Session, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	existing, err := m.store.LoadByIssue(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("session.Manager.CreateSession: %w: %v", domain.ErrStore, err)
	}
	if existing != nil && existing.Status.Active() {
		return existing, nil
	}

	now := time.Now()
	id := uuid.New().String()

	creatorID := issue.CreatorID
	triggerEventType := "issue"
	var commentID string
	if comment != nil {
		creatorID = comment.AuthorID
		triggerEventType = "comment"
		commentID = comment.ID
	}

	s := &domain.Session{
		ID:              id,
		IssueID:         issue.ID,
		IssueIdentifier: issue.Identifier,
		Status:          domain.SessionCreated,
		WorkingDir:      filepath.Join(m.cfg.ProjectRootDir, ".bridge-sessions", id),
		StartedAt:       now,
		LastActivityAt:  now,
		Metadata: domain.SessionMetadata{
			CreatorID:        creatorID,
			TenantID:         m.cfg.TenantID,
			IssueTitle:       issue.Title,
			TriggerEventType: triggerEventType,
			TriggerCommentID: commentID,
		},
		SecurityContext: domain.SecurityContext{
			AllowedPaths:        []string{m.cfg.ProjectRootDir},
			MaxMemoryMB:         2048,
			MaxExecutionTimeMs:  m.cfg.Timeout().Milliseconds(),
			IsolatedEnvironment: true,
		},
	}
	if m.cfg.CreateBranches {
		s.BranchName = worktree.CreateDescriptiveBranchName(issue.Identifier, issue.Title)
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("session.Manager.CreateSession: %w: %v", domain.ErrStore, err)
	}

	m.bus.Publish(events.NewCreated(s, now))
	return s, nil
}

// StartSession transitions a CREATED session to RUNNING and drives it to a
// terminal status, either synchronously via the Boss Agent or
// asynchronously via the direct Executor. Calling StartSession on an
// already-RUNNING or terminal session is a warned no-op, not an error.
func (m *Manager) StartSession(ctx context.Context, sessionID string, issue *domain.Issue, comment *domain.Comment) error {
	s, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session.Manager.StartSession: %w: %v", domain.ErrStore, err)
	}
	if s == nil {
		return fmt.Errorf("session.Manager.StartSession: %w: %s", domain.ErrNotFound, sessionID)
	}
	if s.Status == domain.SessionRunning {
		log.Warn().Str("sessionId", sessionID).Msg("startSession called on an already-running session; ignoring")
		return nil
	}
	if s.Status.Terminal() {
		log.Warn().Str("sessionId", sessionID).Str("status", string(s.Status)).Msg("startSession called on a terminal session; ignoring")
		return nil
	}

	if err := m.updateStatusWithRetry(ctx, sessionID, domain.SessionRunning); err != nil {
		return err
	}
	s.Status = domain.SessionRunning
	s.LastActivityAt = time.Now()
	m.bus.Publish(events.NewStarted(s, s.LastActivityAt))

	if m.cfg.EnableBossAgent && m.boss != nil {
		result, declined := m.invokeBossAgent(ctx, issue, comment)
		if !declined {
			m.finalizeDelegation(ctx, s, result)
			return nil
		}
		log.Warn().Str("sessionId", sessionID).Msg("boss agent declined or failed; falling through to direct executor")
	}

	return m.runDirectExecutor(ctx, s, issue, comment)
}

// invokeBossAgent normalizes the three ways a Boss Agent can decline a task
// (nil result, returned error, or panic) into a single boolean, per this
// bridge's "exception-as-decline" decision.
func (m *Manager) invokeBossAgent(ctx context.Context, issue *domain.Issue, comment *domain.Comment) (result *bossagent.DelegationResult, declined bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("boss agent panicked; treating as declined")
			result, declined = nil, true
		}
	}()

	res, err := m.boss.HandleTask(ctx, issue, comment)
	if err != nil {
		log.Warn().Err(err).Msg("boss agent returned an error; treating as declined")
		return nil, true
	}
	if res == nil {
		return nil, true
	}
	return res, false
}

func (m *Manager) finalizeDelegation(ctx context.Context, s *domain.Session, result *bossagent.DelegationResult) {
	execResult := executor.ExecutionResult{
		Success:       result.Success,
		FilesModified: result.FilesModified,
		Commits:       result.Commits,
		Duration:      result.Duration,
		Output:        result.Summary,
	}
	if result.Success {
		m.completeSession(ctx, s, execResult)
		return
	}
	execResult.Error = result.Summary
	m.failSession(ctx, s, fmt.Errorf("%w: %s", domain.ErrDelegation, result.Summary))
}

// runDirectExecutor prepares the session's working directory, schedules the
// Executor concurrently (bounded by the max-concurrent-sessions semaphore),
// and arms the per-session timeout. It returns promptly; the executor's
// outcome is reported asynchronously through completeSession/failSession.
func (m *Manager) runDirectExecutor(ctx context.Context, s *domain.Session, issue *domain.Issue, comment *domain.Comment) error {
	workingDir := s.WorkingDir

	if s.BranchName != "" {
		path, err := m.worktree.CreateWorktree(ctx, s.ID, m.cfg.DefaultBranch, s.BranchName)
		if err != nil {
			m.failSession(ctx, s, fmt.Errorf("%w: %v", domain.ErrGit, err))
			return nil
		}
		workingDir = path
		s.WorkingDir = workingDir
		if err := m.store.Save(ctx, s); err != nil {
			log.Warn().Err(err).Str("sessionId", s.ID).Msg("failed to persist worktree path")
		}
	}

	execCtx := executor.ExecutionContext{
		Session:        s,
		Issue:          issue,
		TriggerComment: comment,
		WorkingDir:     workingDir,
		BranchName:     s.BranchName,
		Context:        map[string]string{},
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.setRuntime(s.ID, cancel)

	go func() {
		select {
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
		case <-runCtx.Done():
			return
		}

		result, err := m.direct.Execute(runCtx, execCtx)
		m.clearTimer(s.ID)

		// runCtx is only cancelled by clearRuntime, after the session has
		// already reached a terminal status (cancel or timeout); that status
		// and its event stand.
		if runCtx.Err() != nil {
			return
		}
		if err != nil {
			m.failSession(context.Background(), s, fmt.Errorf("%w: %v", domain.ErrExecutor, err))
			return
		}
		if !result.Success {
			m.failSession(context.Background(), s, fmt.Errorf("%w: %s", domain.ErrExecutor, result.Error))
			return
		}
		m.completeSession(context.Background(), s, result)
	}()

	m.armTimeout(s.ID)
	return nil
}

// CancelSession requests executor cancellation and moves the session to
// CANCELLED. It is idempotent: cancelling an already-cancelled session is a
// silent no-op, and cancelling a session that already completed or failed
// leaves its terminal status untouched.
func (m *Manager) CancelSession(ctx context.Context, sessionID string) error {
	s, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session.Manager.CancelSession: %w: %v", domain.ErrStore, err)
	}
	if s == nil {
		return fmt.Errorf("session.Manager.CancelSession: %w: %s", domain.ErrNotFound, sessionID)
	}

	if s.Status == domain.SessionCancelled {
		return nil
	}

	_ = m.direct.CancelSession(sessionID)

	if s.Status.Terminal() {
		return nil
	}

	if err := m.updateStatusWithRetry(ctx, sessionID, domain.SessionCancelled); err != nil {
		return err
	}
	m.clearRuntime(sessionID)

	now := time.Now()
	s.Status = domain.SessionCancelled
	s.LastActivityAt = now
	s.CompletedAt = &now
	m.bus.Publish(events.NewCancelled(s, now))
	return nil
}

func (m *Manager) completeSession(ctx context.Context, s *domain.Session, result executor.ExecutionResult) {
	now := time.Now()
	s.Status = domain.SessionCompleted
	s.LastActivityAt = now
	s.CompletedAt = &now
	s.Error = ""
	if err := m.saveWithRetry(ctx, s); err != nil {
		log.Error().Err(err).Str("sessionId", s.ID).Msg("failed to persist completed session")
	}
	m.clearRuntime(s.ID)
	m.bus.Publish(events.NewCompleted(s, result, now))
}

func (m *Manager) failSession(ctx context.Context, s *domain.Session, cause error) {
	now := time.Now()
	s.Status = domain.SessionFailed
	s.LastActivityAt = now
	s.CompletedAt = &now
	s.Error = cause.Error()
	if err := m.saveWithRetry(ctx, s); err != nil {
		log.Error().Err(err).Str("sessionId", s.ID).Msg("failed to persist failed session")
	}
	m.clearRuntime(s.ID)
	m.bus.Publish(events.NewFailed(s, cause, now))
}

// GetSession returns the session with the given id, or (nil, nil) if absent.
func (m *Manager) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return m.store.Load(ctx, id)
}

// GetSessionByIssue returns the most recently active session for an issue.
func (m *Manager) GetSessionByIssue(ctx context.Context, issueID string) (*domain.Session, error) {
	return m.store.LoadByIssue(ctx, issueID)
}

// ListSessions returns every session.
func (m *Manager) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	return m.store.List(ctx)
}

// ListActiveSessions returns every CREATED or RUNNING session.
func (m *Manager) ListActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return m.store.ListActive(ctx)
}

// CleanupOldSessions purges terminal sessions older than maxAgeDays.
func (m *Manager) CleanupOldSessions(ctx context.Context, maxAgeDays int) (int, error) {
	return m.store.CleanupOldSessions(ctx, maxAgeDays)
}

// GetStats aggregates session counts by status.
func (m *Manager) GetStats(ctx context.Context) (domain.Stats, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("session.Manager.GetStats: %w: %v", domain.ErrStore, err)
	}

	stats := domain.Stats{ByStatus: make(map[string]int)}
	for _, s := range all {
		stats.Total++
		stats.ByStatus[string(s.Status)]++
		if s.Status.Active() {
			stats.Active++
		} else {
			stats.Terminal++
		}
	}
	return stats, nil
}

// updateStatusWithRetry retries a store status transition once, after a
// fixed backoff, before surfacing a wrapped domain.ErrStore.
func (m *Manager) updateStatusWithRetry(ctx context.Context, id string, status domain.SessionStatus) error {
	err := m.store.UpdateStatus(ctx, id, status)
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Str("sessionId", id).Msg("store update failed, retrying once")
	time.Sleep(storeRetryBackoff)
	if err := m.store.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("session.Manager: %w: %v", domain.ErrStore, err)
	}
	return nil
}

// saveWithRetry applies the same retry policy to a full-record Save.
func (m *Manager) saveWithRetry(ctx context.Context, s *domain.Session) error {
	err := m.store.Save(ctx, s)
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Str("sessionId", s.ID).Msg("store save failed, retrying once")
	time.Sleep(storeRetryBackoff)
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("session.Manager: %w: %v", domain.ErrStore, err)
	}
	return nil
}

func (m *Manager) setRuntime(id string, cancel context.CancelFunc) {
	m.runtimeMu.Lock()
	defer m.runtimeMu.Unlock()
	if old, ok := m.runtimes[id]; ok && old.timer != nil {
		old.timer.Stop()
	}
	m.runtimes[id] = &runtime{cancel: cancel}
}

func (m *Manager) armTimeout(id string) {
	m.runtimeMu.Lock()
	rt, ok := m.runtimes[id]
	if !ok {
		rt = &runtime{}
		m.runtimes[id] = rt
	}
	if rt.timer != nil {
		rt.timer.Stop()
	}
	rt.timer = time.AfterFunc(m.cfg.Timeout(), func() { m.onTimeout(id) })
	m.runtimeMu.Unlock()
}

func (m *Manager) clearTimer(id string) {
	m.runtimeMu.Lock()
	defer m.runtimeMu.Unlock()
	if rt, ok := m.runtimes[id]; ok && rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
}

func (m *Manager) clearRuntime(id string) {
	m.runtimeMu.Lock()
	defer m.runtimeMu.Unlock()
	if rt, ok := m.runtimes[id]; ok {
		if rt.timer != nil {
			rt.timer.Stop()
		}
		if rt.cancel != nil {
			rt.cancel()
		}
		delete(m.runtimes, id)
	}
}

func (m *Manager) onTimeout(id string) {
	ctx := context.Background()
	s, err := m.store.Load(ctx, id)
	if err != nil || s == nil || s.Status.Terminal() {
		return
	}
	log.Warn().Str("sessionId", id).Msg("session timed out; cancelling")
	if err := m.CancelSession(ctx, id); err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("failed to cancel timed-out session")
	}
}

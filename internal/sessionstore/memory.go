package sessionstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentbridge/bridge/internal/domain"
)

// Memory is a process-local, mutex-guarded Store. It is the default store
// for tests and for any deployment that accepts losing session state across
// restarts.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*domain.Session)}
}

func (m *Memory) Save(_ context.Context, s *domain.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("sessionstore.Memory.Save: %w: empty session id", domain.ErrStore)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *Memory) LoadByIssue(_ context.Context, issueID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []*domain.Session
	for _, s := range m.sessions {
		if s.IssueID == issueID {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Prefer an active session; among ties, most recently started wins.
	sort.Slice(candidates, func(i, j int) bool {
		ai, aj := candidates[i].Status.Active(), candidates[j].Status.Active()
		if ai != aj {
			return ai
		}
		return candidates[i].StartedAt.After(candidates[j].StartedAt)
	})
	return candidates[0].Clone(), nil
}

func (m *Memory) List(_ context.Context) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *Memory) ListActive(ctx context.Context) ([]*domain.Session, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, s := range all {
		if s.Status.Active() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, status domain.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("sessionstore.Memory.UpdateStatus: %w", domain.ErrNotFound)
	}

	now := time.Now()
	s.Status = status
	s.LastActivityAt = now
	if status.Terminal() && s.CompletedAt == nil {
		s.CompletedAt = &now
	}
	return nil
}

func (m *Memory) CleanupOldSessions(_ context.Context, maxAgeDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, s := range m.sessions {
		if !s.Status.Terminal() {
			continue
		}
		ref := s.LastActivityAt
		if s.CompletedAt != nil {
			ref = *s.CompletedAt
		}
		if ref.Before(cutoff) {
			delete(m.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agentbridge/bridge/internal/domain"
)

// File is a filesystem-backed Store: one JSON file per session, named
// "<sessionId>.json", under Dir. NewFile creates Dir if it is missing.
// There is no in-memory index: LoadByIssue, List, ListActive and
// CleanupOldSessions read the whole directory on every call. A single
// RWMutex serializes writes against each other and against reads.
type File struct {
	dir string
	mu  sync.RWMutex
}

// NewFile constructs a File store rooted at dir, creating dir if it does
// not exist.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sessionstore.File.New: %w: %v", domain.ErrStore, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

// record is the on-disk shape: RFC 3339 timestamps, lowercase enum names,
// matching the persisted-state layout.
type record struct {
	ID              string                 `json:"id"`
	IssueID         string                 `json:"issueId"`
	IssueIdentifier string                 `json:"issueIdentifier"`
	Status          string                 `json:"status"`
	BranchName      string                 `json:"branchName,omitempty"`
	WorkingDir      string                 `json:"workingDir"`
	StartedAt       string                 `json:"startedAt"`
	LastActivityAt  string                 `json:"lastActivityAt"`
	CompletedAt     string                 `json:"completedAt,omitempty"`
	ProcessID       string                 `json:"processId,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Metadata        domain.SessionMetadata `json:"metadata"`
	SecurityContext domain.SecurityContext `json:"securityContext"`
}

func toRecord(s *domain.Session) record {
	r := record{
		ID:              s.ID,
		IssueID:         s.IssueID,
		IssueIdentifier: s.IssueIdentifier,
		Status:          strings.ToLower(string(s.Status)),
		BranchName:      s.BranchName,
		WorkingDir:      s.WorkingDir,
		StartedAt:       s.StartedAt.UTC().Format(time.RFC3339),
		LastActivityAt:  s.LastActivityAt.UTC().Format(time.RFC3339),
		ProcessID:       s.ProcessID,
		Error:           s.Error,
		Metadata:        s.Metadata,
		SecurityContext: s.SecurityContext,
	}
	if s.CompletedAt != nil {
		r.CompletedAt = s.CompletedAt.UTC().Format(time.RFC3339)
	}
	return r
}

func fromRecord(r record) (*domain.Session, error) {
	startedAt, err := time.Parse(time.RFC3339, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("sessionstore.File: parse startedAt: %w", err)
	}
	lastActivityAt, err := time.Parse(time.RFC3339, r.LastActivityAt)
	if err != nil {
		return nil, fmt.Errorf("sessionstore.File: parse lastActivityAt: %w", err)
	}

	s := &domain.Session{
		ID:              r.ID,
		IssueID:         r.IssueID,
		IssueIdentifier: r.IssueIdentifier,
		Status:          domain.SessionStatus(r.Status),
		BranchName:      r.BranchName,
		WorkingDir:      r.WorkingDir,
		StartedAt:       startedAt,
		LastActivityAt:  lastActivityAt,
		ProcessID:       r.ProcessID,
		Error:           r.Error,
		Metadata:        r.Metadata,
		SecurityContext: r.SecurityContext,
	}
	if r.CompletedAt != "" {
		completedAt, err := time.Parse(time.RFC3339, r.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("sessionstore.File: parse completedAt: %w", err)
		}
		s.CompletedAt = &completedAt
	}
	return s, nil
}

func (f *File) Save(_ context.Context, s *domain.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("sessionstore.File.Save: %w: empty session id", domain.ErrStore)
	}

	data, err := json.MarshalIndent(toRecord(s), "", "  ")
	if err != nil {
		return fmt.Errorf("sessionstore.File.Save: marshal: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := f.path(s.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("sessionstore.File.Save: %w: %v", domain.ErrStore, err)
	}
	if err := os.Rename(tmp, f.path(s.ID)); err != nil {
		return fmt.Errorf("sessionstore.File.Save: %w: %v", domain.ErrStore, err)
	}
	return nil
}

func (f *File) Load(_ context.Context, id string) (*domain.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loadLocked(id)
}

func (f *File) loadLocked(id string) (*domain.Session, error) {
	data, err := os.ReadFile(f.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessionstore.File.Load: %w: %v", domain.ErrStore, err)
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("sessionstore.File.Load: unmarshal: %w", err)
	}
	return fromRecord(r)
}

func (f *File) allLocked() ([]*domain.Session, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("sessionstore.File: read dir: %w: %v", domain.ErrStore, err)
	}

	out := make([]*domain.Session, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		s, err := f.loadLocked(id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *File) LoadByIssue(_ context.Context, issueID string) (*domain.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	all, err := f.allLocked()
	if err != nil {
		return nil, err
	}

	var candidates []*domain.Session
	for _, s := range all {
		if s.IssueID == issueID {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai, aj := candidates[i].Status.Active(), candidates[j].Status.Active()
		if ai != aj {
			return ai
		}
		return candidates[i].StartedAt.After(candidates[j].StartedAt)
	})
	return candidates[0], nil
}

func (f *File) List(_ context.Context) ([]*domain.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.allLocked()
}

func (f *File) ListActive(ctx context.Context) ([]*domain.Session, error) {
	all, err := f.List(ctx)
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

func (f *File) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("sessionstore.File.Delete: %w: %v", domain.ErrStore, err)
	}
	return nil
}

func (f *File) UpdateStatus(_ context.Context, id string, status domain.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.loadLocked(id)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("sessionstore.File.UpdateStatus: %w", domain.ErrNotFound)
	}

	now := time.Now()
	s.Status = status
	s.LastActivityAt = now
	if status.Terminal() && s.CompletedAt == nil {
		s.CompletedAt = &now
	}

	data, err := json.MarshalIndent(toRecord(s), "", "  ")
	if err != nil {
		return fmt.Errorf("sessionstore.File.UpdateStatus: marshal: %w", err)
	}
	if err := os.WriteFile(f.path(id), data, 0o644); err != nil {
		return fmt.Errorf("sessionstore.File.UpdateStatus: %w: %v", domain.ErrStore, err)
	}
	return nil
}

func (f *File) CleanupOldSessions(_ context.Context, maxAgeDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.allLocked()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, s := range all {
		if !s.Status.Terminal() {
			continue
		}
		ref := s.LastActivityAt
		if s.CompletedAt != nil {
			ref = *s.CompletedAt
		}
		if ref.Before(cutoff) {
			if err := os.Remove(f.path(s.ID)); err != nil && !os.IsNotExist(err) {
				return deleted, fmt.Errorf("sessionstore.File.CleanupOldSessions: %w: %v", domain.ErrStore, err)
			}
			deleted++
		}
	}
	return deleted, nil
}

// Package sessionstore defines the Session Store contract and two
// required implementations (in-memory, file-backed), plus an optional
// Postgres-backed implementation under sessionstore/postgres.
package sessionstore

import (
	"context"

	"github.com/agentbridge/bridge/internal/domain"
)

// Store is the contract both in-memory and file-backed implementations
// must satisfy.
type Store interface {
	// Save upserts a session record.
	Save(ctx context.Context, s *domain.Session) error

	// Load returns the session with the given id, or (nil, nil) if absent.
	Load(ctx context.Context, id string) (*domain.Session, error)

	// LoadByIssue returns the most recently active session for an issue, or
	// (nil, nil) if none exists. When multiple sessions exist for the issue,
	// ties are broken by StartedAt descending.
	LoadByIssue(ctx context.Context, issueID string) (*domain.Session, error)

	// List returns every session.
	List(ctx context.Context) ([]*domain.Session, error)

	// ListActive returns sessions whose status is CREATED or RUNNING.
	ListActive(ctx context.Context) ([]*domain.Session, error)

	// Delete removes a session by id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// UpdateStatus atomically transitions a session's status, bumping
	// LastActivityAt and, when the new status is terminal, CompletedAt.
	UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error

	// CleanupOldSessions deletes terminal sessions whose CompletedAt (or
	// LastActivityAt if CompletedAt is unset) is older than maxAgeDays.
	// Active sessions are never purged. Returns the count deleted.
	CleanupOldSessions(ctx context.Context, maxAgeDays int) (int, error)
}

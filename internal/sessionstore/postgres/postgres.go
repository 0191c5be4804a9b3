// Package postgres is an optional, third Session Store implementation
// backed by PostgreSQL via pgx. Neither the in-memory nor the file-backed
// store requires it; cmd/bridge selects it only when SESSION_STORE_DSN is
// configured.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentbridge/bridge/internal/domain"
)

// Store is a pgxpool-backed implementation of sessionstore.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies connectivity with a ping, matching
// the teacher's store construction pattern.
func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("sessionstore.postgres.New: parse dsn: %w", err)
	}
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("sessionstore.postgres.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sessionstore.postgres.New: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Schema (informational, applied out of band by migration tooling):
//
//	CREATE TABLE sessions (
//	    id TEXT PRIMARY KEY,
//	    issue_id TEXT NOT NULL,
//	    issue_identifier TEXT NOT NULL,
//	    status TEXT NOT NULL,
//	    branch_name TEXT,
//	    working_dir TEXT NOT NULL,
//	    started_at TIMESTAMPTZ NOT NULL,
//	    last_activity_at TIMESTAMPTZ NOT NULL,
//	    completed_at TIMESTAMPTZ,
//	    process_id TEXT,
//	    error TEXT,
//	    metadata JSONB NOT NULL,
//	    security_context JSONB NOT NULL
//	);
//	CREATE INDEX sessions_issue_id_idx ON sessions (issue_id);

func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	metadata, err := json.Marshal(sess.Metadata)
	if err != nil {
		return fmt.Errorf("sessionstore.postgres.Store.Save: marshal metadata: %w", err)
	}
	secCtx, err := json.Marshal(sess.SecurityContext)
	if err != nil {
		return fmt.Errorf("sessionstore.postgres.Store.Save: marshal security_context: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, issue_id, issue_identifier, status, branch_name, working_dir,
		                      started_at, last_activity_at, completed_at, process_id, error,
		                      metadata, security_context)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
		    status = EXCLUDED.status,
		    branch_name = EXCLUDED.branch_name,
		    working_dir = EXCLUDED.working_dir,
		    last_activity_at = EXCLUDED.last_activity_at,
		    completed_at = EXCLUDED.completed_at,
		    process_id = EXCLUDED.process_id,
		    error = EXCLUDED.error,
		    metadata = EXCLUDED.metadata,
		    security_context = EXCLUDED.security_context`,
		sess.ID, sess.IssueID, sess.IssueIdentifier, sess.Status, sess.BranchName, sess.WorkingDir,
		sess.StartedAt, sess.LastActivityAt, sess.CompletedAt, sess.ProcessID, sess.Error,
		metadata, secCtx,
	)
	if err != nil {
		return fmt.Errorf("sessionstore.postgres.Store.Save: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, issue_id, issue_identifier, status, branch_name, working_dir,
		       started_at, last_activity_at, completed_at, process_id, error,
		       metadata, security_context
		FROM sessions WHERE id = $1`, id)
	return scanOne(row)
}

func (s *Store) LoadByIssue(ctx context.Context, issueID string) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, issue_id, issue_identifier, status, branch_name, working_dir,
		       started_at, last_activity_at, completed_at, process_id, error,
		       metadata, security_context
		FROM sessions WHERE issue_id = $1
		ORDER BY (status IN ('created','running')) DESC, started_at DESC
		LIMIT 1`, issueID)
	return scanOne(row)
}

func (s *Store) List(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, issue_id, issue_identifier, status, branch_name, working_dir,
		       started_at, last_activity_at, completed_at, process_id, error,
		       metadata, security_context
		FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sessionstore.postgres.Store.List: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *Store) ListActive(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, issue_id, issue_identifier, status, branch_name, working_dir,
		       started_at, last_activity_at, completed_at, process_id, error,
		       metadata, security_context
		FROM sessions WHERE status IN ('created','running') ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sessionstore.postgres.Store.ListActive: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sessionstore.postgres.Store.Delete: %w", err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	now := time.Now()
	var completedAt any
	if status.Terminal() {
		completedAt = now
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET status = $1, last_activity_at = $2,
		    completed_at = COALESCE(completed_at, $3)
		WHERE id = $4`, status, now, completedAt, id)
	if err != nil {
		return fmt.Errorf("sessionstore.postgres.Store.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sessionstore.postgres.Store.UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (s *Store) CleanupOldSessions(ctx context.Context, maxAgeDays int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE status IN ('completed','failed','cancelled')
		  AND COALESCE(completed_at, last_activity_at) < now() - ($1 || ' days')::interval`,
		maxAgeDays)
	if err != nil {
		return 0, fmt.Errorf("sessionstore.postgres.Store.CleanupOldSessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanOne(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var metadata, secCtx []byte

	err := row.Scan(&s.ID, &s.IssueID, &s.IssueIdentifier, &s.Status, &s.BranchName, &s.WorkingDir,
		&s.StartedAt, &s.LastActivityAt, &s.CompletedAt, &s.ProcessID, &s.Error, &metadata, &secCtx)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessionstore.postgres: scan: %w", err)
	}
	if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
		return nil, fmt.Errorf("sessionstore.postgres: unmarshal metadata: %w", err)
	}
	if err := json.Unmarshal(secCtx, &s.SecurityContext); err != nil {
		return nil, fmt.Errorf("sessionstore.postgres: unmarshal security_context: %w", err)
	}
	return &s, nil
}

func scanAll(rows pgx.Rows) ([]*domain.Session, error) {
	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		var metadata, secCtx []byte
		if err := rows.Scan(&s.ID, &s.IssueID, &s.IssueIdentifier, &s.Status, &s.BranchName, &s.WorkingDir,
			&s.StartedAt, &s.LastActivityAt, &s.CompletedAt, &s.ProcessID, &s.Error, &metadata, &secCtx); err != nil {
			return nil, fmt.Errorf("sessionstore.postgres: scan: %w", err)
		}
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("sessionstore.postgres: unmarshal metadata: %w", err)
		}
		if err := json.Unmarshal(secCtx, &s.SecurityContext); err != nil {
			return nil, fmt.Errorf("sessionstore.postgres: unmarshal security_context: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessionstore.postgres: rows: %w", err)
	}
	return out, nil
}

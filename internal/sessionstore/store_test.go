package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/bridge/internal/domain"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFile(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemory(),
		"file":   fileStore,
	}
}

func mkSession(id, issueID string, status domain.SessionStatus, startedAt time.Time) *domain.Session {
	return &domain.Session{
		ID:              id,
		IssueID:         issueID,
		IssueIdentifier: "DEV-1",
		Status:          status,
		WorkingDir:      "/tmp/" + id,
		StartedAt:       startedAt,
		LastActivityAt:  startedAt,
		Metadata: domain.SessionMetadata{
			CreatorID: "user-1",
			TenantID:  "org-1",
		},
		SecurityContext: domain.SecurityContext{
			AllowedPaths: []string{"/tmp"},
		},
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mkSession("s-1", "iss-1", domain.SessionCreated, time.Now())

			require.NoError(t, store.Save(ctx, s))

			loaded, err := store.Load(ctx, "s-1")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, s.ID, loaded.ID)
			assert.Equal(t, s.IssueID, loaded.IssueID)
			assert.Equal(t, s.Status, loaded.Status)
			assert.WithinDuration(t, s.StartedAt, loaded.StartedAt, time.Second)
		})
	}
}

func TestStoreLoadMissingReturnsNilNotError(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := store.Load(context.Background(), "does-not-exist")
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestStoreLoadByIssuePrefersActiveThenMostRecent(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()

			old := mkSession("s-old", "iss-1", domain.SessionCompleted, now.Add(-time.Hour))
			active := mkSession("s-active", "iss-1", domain.SessionRunning, now.Add(-time.Minute))
			require.NoError(t, store.Save(ctx, old))
			require.NoError(t, store.Save(ctx, active))

			got, err := store.LoadByIssue(ctx, "iss-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "s-active", got.ID)
		})
	}
}

func TestStoreUpdateStatusSetsCompletedAt(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mkSession("s-1", "iss-1", domain.SessionRunning, time.Now())
			require.NoError(t, store.Save(ctx, s))

			require.NoError(t, store.UpdateStatus(ctx, "s-1", domain.SessionCompleted))

			loaded, err := store.Load(ctx, "s-1")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, domain.SessionCompleted, loaded.Status)
			require.NotNil(t, loaded.CompletedAt)
		})
	}
}

func TestStoreUpdateStatusMissingReturnsNotFound(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.UpdateStatus(context.Background(), "missing", domain.SessionCompleted)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestStoreListActiveExcludesTerminal(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()
			require.NoError(t, store.Save(ctx, mkSession("s-active", "iss-1", domain.SessionRunning, now)))
			require.NoError(t, store.Save(ctx, mkSession("s-done", "iss-2", domain.SessionCompleted, now)))

			active, err := store.ListActive(ctx)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, "s-active", active[0].ID)
		})
	}
}

func TestStoreCleanupOldSessions(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()

			completedOld := mkSession("completed-old", "iss-1", domain.SessionCompleted, now.Add(-10*24*time.Hour))
			t8 := now.Add(-8 * 24 * time.Hour)
			completedOld.CompletedAt = &t8
			require.NoError(t, store.Save(ctx, completedOld))

			failedRecent := mkSession("failed-recent", "iss-2", domain.SessionFailed, now.Add(-2*24*time.Hour))
			t2 := now.Add(-2 * 24 * time.Hour)
			failedRecent.CompletedAt = &t2
			require.NoError(t, store.Save(ctx, failedRecent))

			runningOld := mkSession("running-old", "iss-3", domain.SessionRunning, now.Add(-20*24*time.Hour))
			require.NoError(t, store.Save(ctx, runningOld))

			deleted, err := store.CleanupOldSessions(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, 1, deleted)

			remaining, err := store.List(ctx)
			require.NoError(t, err)
			ids := make(map[string]bool)
			for _, s := range remaining {
				ids[s.ID] = true
			}
			assert.False(t, ids["completed-old"])
			assert.True(t, ids["failed-recent"])
			assert.True(t, ids["running-old"])
		})
	}
}

func TestFileStoreCreatesMissingDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/sessions"
	store, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), mkSession("s-1", "iss-1", domain.SessionCreated, time.Now())))
}

package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// initTestRepo creates a throwaway git repository with one commit on
// "main" so CreateWorktree has something real to branch from.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}

	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))
	run("add", ".")
	run("commit", "-m", "initial")

	return dir
}

func TestManagerCreateAndRemoveWorktree(t *testing.T) {
	repoDir := initTestRepo(t)
	baseDir := t.TempDir()
	m := NewManager(repoDir, baseDir)
	ctx := context.Background()

	path, err := m.CreateWorktree(ctx, "sess-1", "main", "claude/dev-1-fix")
	require.NoError(t, err)
	require.DirExists(t, path)

	require.NoError(t, m.RemoveWorktree(ctx, "sess-1"))
	require.NoDirExists(t, path)
}

func TestManagerRemoveWorktreeIsIdempotent(t *testing.T) {
	repoDir := initTestRepo(t)
	baseDir := t.TempDir()
	m := NewManager(repoDir, baseDir)
	ctx := context.Background()

	require.NoError(t, m.RemoveWorktree(ctx, "never-created"))
	require.NoError(t, m.RemoveWorktree(ctx, "never-created"))
}

func TestManagerCreateWorktreeRejectsExistingBranch(t *testing.T) {
	repoDir := initTestRepo(t)
	baseDir := t.TempDir()
	m := NewManager(repoDir, baseDir)
	ctx := context.Background()

	_, err := m.CreateWorktree(ctx, "sess-1", "main", "claude/dev-1-fix")
	require.NoError(t, err)

	_, err = m.CreateWorktree(ctx, "sess-2", "main", "claude/dev-1-fix")
	require.ErrorIs(t, err, ErrBranchExists)
}

func TestManagerCreateWorktreeRejectsMissingBaseBranch(t *testing.T) {
	repoDir := initTestRepo(t)
	baseDir := t.TempDir()
	m := NewManager(repoDir, baseDir)
	ctx := context.Background()

	_, err := m.CreateWorktree(ctx, "sess-1", "does-not-exist", "claude/dev-1-fix")
	require.ErrorIs(t, err, ErrBaseBranchMissing)
}

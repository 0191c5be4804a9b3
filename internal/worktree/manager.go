// Package worktree creates and destroys isolated git worktrees for
// sessions and derives deterministic branch names for them.
package worktree

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Manager creates one worktree per session, rooted under baseDir, against a
// single configured repository. Git plumbing is invoked directly via
// os/exec because no git library in the reference corpus exposes real
// `git worktree` support; a single mutex serializes operations against the
// repository the way a per-repo lock would in a multi-repo deployment.
type Manager struct {
	repoDir string
	baseDir string

	mu    sync.Mutex
	paths map[string]string // sessionID -> worktree path
}

// NewManager constructs a Manager. repoDir must already be a git
// repository; baseDir is created lazily to hold per-session worktree
// directories.
func NewManager(repoDir, baseDir string) *Manager {
	return &Manager{
		repoDir: repoDir,
		baseDir: baseDir,
		paths:   make(map[string]string),
	}
}

// CreateWorktree checks out a new branch from baseBranch into a directory
// keyed by sessionID, returning the absolute path.
func (m *Manager) CreateWorktree(ctx context.Context, sessionID, baseBranch, branchName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isGitRepo() {
		return "", fmt.Errorf("worktree.Manager.CreateWorktree: %w: %s", ErrNotGitRepo, m.repoDir)
	}
	if m.branchExists(ctx, branchName) {
		return "", fmt.Errorf("worktree.Manager.CreateWorktree: %w: %s", ErrBranchExists, branchName)
	}
	if !m.branchExists(ctx, baseBranch) && !m.remoteBranchExists(ctx, baseBranch) {
		return "", fmt.Errorf("worktree.Manager.CreateWorktree: %w: %s", ErrBaseBranchMissing, baseBranch)
	}

	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("worktree.Manager.CreateWorktree: mkdir base dir: %w", err)
	}

	path, err := filepath.Abs(filepath.Join(m.baseDir, sessionID))
	if err != nil {
		return "", fmt.Errorf("worktree.Manager.CreateWorktree: resolve path: %w", err)
	}

	base := baseBranch
	if !m.branchExists(ctx, baseBranch) {
		base = "origin/" + baseBranch
	}

	cmd := m.gitCmd(ctx, "worktree", "add", "-b", branchName, path, base)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("worktree.Manager.CreateWorktree: %w: %s", ErrGitCommandFailed, strings.TrimSpace(string(out)))
	}

	m.paths[sessionID] = path
	return path, nil
}

// RemoveWorktree is idempotent: removing an unknown or already-removed
// session is not an error.
func (m *Manager) RemoveWorktree(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, ok := m.paths[sessionID]
	if !ok {
		path = filepath.Join(m.baseDir, sessionID)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		delete(m.paths, sessionID)
		return nil
	}

	cmd := m.gitCmd(ctx, "worktree", "remove", "--force", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		// Fall back to a direct directory removal plus a prune, matching
		// the corpus's own fallback for a worktree git has lost track of.
		if rmErr := os.RemoveAll(path); rmErr != nil {
			return fmt.Errorf("worktree.Manager.RemoveWorktree: %w: %s (fallback rm: %v)", ErrGitCommandFailed, strings.TrimSpace(string(out)), rmErr)
		}
		_ = m.gitCmd(ctx, "worktree", "prune").Run()
	}

	delete(m.paths, sessionID)
	return nil
}

func (m *Manager) isGitRepo() bool {
	info, err := os.Stat(filepath.Join(m.repoDir, ".git"))
	return err == nil && (info.IsDir() || info.Mode().IsRegular())
}

func (m *Manager) branchExists(ctx context.Context, branch string) bool {
	cmd := m.gitCmd(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return cmd.Run() == nil
}

func (m *Manager) remoteBranchExists(ctx context.Context, branch string) bool {
	cmd := m.gitCmd(ctx, "show-ref", "--verify", "--quiet", "refs/remotes/origin/"+branch)
	return cmd.Run() == nil
}

// gitCmd builds a non-interactive git invocation so a worktree operation
// never blocks on a credential prompt.
func (m *Manager) gitCmd(ctx context.Context, args ...string) *exec.Cmd {
	full := append([]string{"-C", m.repoDir}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_ASKPASS=echo",
		"SSH_ASKPASS=/bin/false",
		"GIT_SSH_COMMAND=ssh -oBatchMode=yes -oStrictHostKeyChecking=no",
	)
	cmd.WaitDelay = 500 * time.Millisecond
	return cmd
}

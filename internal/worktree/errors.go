package worktree

import "errors"

var (
	ErrBranchExists    = errors.New("worktree: branch already exists")    //nolint:gochecknoglobals // sentinel error
	ErrBaseBranchMissing = errors.New("worktree: base branch missing")    //nolint:gochecknoglobals // sentinel error
	ErrNotGitRepo      = errors.New("worktree: not a git repository")     //nolint:gochecknoglobals // sentinel error
	ErrGitCommandFailed = errors.New("worktree: git command failed")      //nolint:gochecknoglobals // sentinel error
)

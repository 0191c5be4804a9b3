package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunTestSucceedsAgainstNoopTracker(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LINEAR_API_TOKEN", "token")
	t.Setenv("LINEAR_ORGANIZATION_ID", "tenant-1")
	t.Setenv("PROJECT_ROOT_DIR", dir)
	t.Setenv("LINEAR_WEBHOOK_SECRET", "secret")

	require.NoError(t, runTest(testCmd, nil))
}

func TestRunTestFailsOnBadConfig(t *testing.T) {
	t.Setenv("LINEAR_API_TOKEN", "")
	t.Setenv("PROJECT_ROOT_DIR", filepath.Join(t.TempDir(), "missing"))

	err := runTest(testCmd, nil)
	require.Error(t, err)
}

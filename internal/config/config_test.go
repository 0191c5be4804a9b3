package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("LINEAR_API_TOKEN", "tok-123")
	t.Setenv("LINEAR_ORGANIZATION_ID", "org-1")
	t.Setenv("PROJECT_ROOT_DIR", dir)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultSessionTimeoutMinutes, cfg.SessionTimeoutMinutes)
	assert.Equal(t, defaultBranch, cfg.DefaultBranch)
	assert.True(t, cfg.CreateBranches)
	assert.False(t, cfg.OAuthEnabled())
}

func TestLoadMissingToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LINEAR_API_TOKEN", "")
	t.Setenv("LINEAR_ORGANIZATION_ID", "org-1")
	t.Setenv("PROJECT_ROOT_DIR", dir)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINEAR_API_TOKEN")
}

func TestLoadInvalidProjectRoot(t *testing.T) {
	t.Setenv("LINEAR_API_TOKEN", "tok-123")
	t.Setenv("LINEAR_ORGANIZATION_ID", "org-1")
	t.Setenv("PROJECT_ROOT_DIR", "/does/not/exist/at/all")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROJECT_ROOT_DIR")
}

func TestLoadInvalidPort(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t, dir)
	t.Setenv("WEBHOOK_PORT", "99999")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEBHOOK_PORT")
}

func TestLoadPreviewURLForcesPort(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t, dir)
	t.Setenv("WEBHOOK_PORT", "8080")
	t.Setenv("PREVIEW_URL", "https://preview.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, previewForcedPort, cfg.Port)
}

func TestLoadOAuthRequiresAllThreeVars(t *testing.T) {
	dir := t.TempDir()
	setRequiredEnv(t, dir)
	t.Setenv("LINEAR_OAUTH_CLIENT_ID", "client-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.OAuthEnabled())

	t.Setenv("LINEAR_OAUTH_CLIENT_SECRET", "secret-1")
	t.Setenv("LINEAR_OAUTH_TOKEN_URL", "https://tracker.example.com/oauth/token")

	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.OAuthEnabled())
}

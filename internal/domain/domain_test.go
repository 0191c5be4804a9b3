package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStatusTerminalActive(t *testing.T) {
	cases := []struct {
		status           SessionStatus
		wantTerminal     bool
		wantActive       bool
	}{
		{SessionCreated, false, true},
		{SessionRunning, false, true},
		{SessionCompleted, true, false},
		{SessionFailed, true, false},
		{SessionCancelled, true, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.wantTerminal, c.status.Terminal(), "status %s", c.status)
		assert.Equal(t, c.wantActive, c.status.Active(), "status %s", c.status)
	}
}

func TestSessionCloneIsIndependent(t *testing.T) {
	completed := time.Now()
	s := &Session{
		ID:     "sess-1",
		Status: SessionCompleted,
		CompletedAt: &completed,
		Metadata: SessionMetadata{
			Extra: map[string]string{"k": "v"},
		},
		SecurityContext: SecurityContext{
			AllowedPaths: []string{"/repo"},
		},
	}

	cp := s.Clone()
	require.NotNil(t, cp)

	cp.Metadata.Extra["k"] = "changed"
	cp.SecurityContext.AllowedPaths[0] = "/other"
	*cp.CompletedAt = completed.Add(time.Hour)

	assert.Equal(t, "v", s.Metadata.Extra["k"])
	assert.Equal(t, "/repo", s.SecurityContext.AllowedPaths[0])
	assert.Equal(t, completed, *s.CompletedAt)
}

func TestSessionCloneNil(t *testing.T) {
	var s *Session
	assert.Nil(t, s.Clone())
}

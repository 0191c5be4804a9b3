package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/bridge/internal/bossagent"
	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/events"
	"github.com/agentbridge/bridge/internal/router"
	"github.com/agentbridge/bridge/internal/runner"
	"github.com/agentbridge/bridge/internal/tracker"
	"github.com/agentbridge/bridge/internal/webhook"
)

type fakeSessions struct {
	sessions  map[string]*domain.Session
	started   []string
	cancelled []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*domain.Session)}
}

func (f *fakeSessions) CreateSession(_ context.Context, issue *domain.Issue, _ *domain.Comment) (*domain.Session, error) {
	s := &domain.Session{ID: "sess-" + issue.ID, IssueID: issue.ID, Status: domain.SessionCreated}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) StartSession(_ context.Context, sessionID string, _ *domain.Issue, _ *domain.Comment) error {
	f.started = append(f.started, sessionID)
	if s, ok := f.sessions[sessionID]; ok {
		s.Status = domain.SessionCompleted
	}
	return nil
}

func (f *fakeSessions) GetSession(_ context.Context, id string) (*domain.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeSessions) ListSessions(_ context.Context) ([]*domain.Session, error) {
	out := make([]*domain.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSessions) ListActiveSessions(_ context.Context) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.Status.Active() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) CancelSession(_ context.Context, id string) error {
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.cancelled = append(f.cancelled, id)
	s.Status = domain.SessionCancelled
	return nil
}

func (f *fakeSessions) GetStats(_ context.Context) (domain.Stats, error) {
	stats := domain.Stats{ByStatus: make(map[string]int)}
	for _, s := range f.sessions {
		stats.Total++
		stats.ByStatus[string(s.Status)]++
	}
	return stats, nil
}

func testServer(t *testing.T, sessions *fakeSessions, boss *bossagent.BossAgent) *Server {
	t.Helper()
	cfg := &config.Config{
		APIToken:              "token",
		ProjectRootDir:        t.TempDir(),
		Port:                  0,
		AgentUserID:           "agent-1",
		WebhookSecret:         "s3cr3t",
		SessionTimeoutMinutes: 30,
		AdminRateLimitRPS:     1000,
		AdminRateLimitBurst:   1000,
		CORSAllowedOrigins:    []string{"https://example.com"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	wh := webhook.NewHandler(cfg)
	evtRouter := router.New(sessions)
	bus := events.NewBus()

	return New(ctx, cfg, sessions, wh, evtRouter, boss, bus)
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHealthEndpointReportsHealthy(t *testing.T) {
	s := testServer(t, newFakeSessions(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestConfigEndpointOmitsSecrets(t *testing.T) {
	s := testServer(t, newFakeSessions(), nil)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cr3t")
	assert.NotContains(t, rec.Body.String(), "token")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := testServer(t, newFakeSessions(), nil)

	body := []byte(`{"action":"update","type":"Issue","data":{"id":"iss-1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewReader(body))
	req.Header.Set("Linear-Signature", "not-a-real-signature")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAcceptsValidSignatureAndRoutesAsync(t *testing.T) {
	sessions := newFakeSessions()
	s := testServer(t, sessions, nil)

	body := []byte(`{"action":"update","type":"Issue","actor":{"id":"human-1"},"data":{"id":"iss-1","assignee":{"id":"agent-1"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewReader(body))
	req.Header.Set("Linear-Signature", sign(body, "s3cr3t"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accepted":true}`, rec.Body.String())
}

func TestCodegenCallbackReturns501WithoutBossAgent(t *testing.T) {
	s := testServer(t, newFakeSessions(), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/codegen", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCodegenCallbackDeliversToWaitingMonitor(t *testing.T) {
	r := &fakeRunnerForServer{taskID: "task-1"}
	boss := bossagent.New(1, time.Minute, r, tracker.Noop{})
	s := testServer(t, newFakeSessions(), boss)

	issue := &domain.Issue{ID: "iss-1", Title: "Implement auth migration for concurrency"}
	done := make(chan *bossagent.DelegationResult, 1)
	go func() {
		result, err := boss.HandleTask(context.Background(), issue, nil)
		require.NoError(t, err)
		done <- result
	}()

	require.Eventually(t, func() bool {
		evt := bossagent.CallbackEvent{TaskID: "task-1", Kind: bossagent.CallbackCompleted, Success: true, Summary: "done"}
		payload, err := json.Marshal(evt)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/codegen", bytes.NewReader(payload))
		req.Header.Set("Linear-Signature", sign(payload, "s3cr3t"))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case result := <-done:
		require.NotNil(t, result)
		assert.True(t, result.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("HandleTask did not resolve")
	}
}

func TestCodegenCallbackUnknownTaskIsNotFound(t *testing.T) {
	r := &fakeRunnerForServer{taskID: "task-x"}
	boss := bossagent.New(6, time.Minute, r, tracker.Noop{})
	s := testServer(t, newFakeSessions(), boss)

	evt := bossagent.CallbackEvent{TaskID: "unknown", Kind: bossagent.CallbackCompleted}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/codegen", bytes.NewReader(payload))
	req.Header.Set("Linear-Signature", sign(payload, "s3cr3t"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionLifecycleOverAdminAPI(t *testing.T) {
	sessions := newFakeSessions()
	sessions.sessions["sess-1"] = &domain.Session{ID: "sess-1", Status: domain.SessionRunning}
	s := testServer(t, sessions, nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/sessions/missing", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/sessions/sess-1", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, sessions.cancelled, "sess-1")
	var cancelled domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, domain.SessionCancelled, cancelled.Status)
}

type fakeRunnerForServer struct {
	taskID string
}

func (r *fakeRunnerForServer) CreateTask(context.Context, string, map[string]string) (runner.TaskResult, error) {
	return runner.TaskResult{TaskID: r.taskID}, nil
}

func (r *fakeRunnerForServer) CancelTask(context.Context, string) error { return nil }

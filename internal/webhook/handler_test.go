package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/domain"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func testCfg() *config.Config {
	return &config.Config{
		TenantID:      "tenant-1",
		AgentUserID:   "agent-1",
		WebhookSecret: "s3cr3t",
	}
}

func TestHandleRejectsBadSignature(t *testing.T) {
	h := NewHandler(testCfg())
	body := []byte(`{"tenantId":"tenant-1","type":"Issue","action":"create"}`)

	_, err := h.Handle(body, "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	cfg := testCfg()
	body := []byte(`not json`)
	sig := sign(body, cfg.WebhookSecret)

	h := NewHandler(cfg)
	_, err := h.Handle(body, sig)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestHandleAcceptsWhenNoSecretConfigured(t *testing.T) {
	cfg := testCfg()
	cfg.WebhookSecret = ""
	body := []byte(`{"tenantId":"tenant-1","type":"Issue","action":"create","data":{"id":"i1"}}`)

	h := NewHandler(cfg)
	evt, err := h.Handle(body, "")
	require.NoError(t, err)
	assert.NotNil(t, evt)
}

func marshalEvent(t *testing.T, evt domain.WebhookEvent) []byte {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return b
}

func TestHandleWrongTenantIsNonTriggerButAccepted(t *testing.T) {
	cfg := testCfg()
	evt := domain.WebhookEvent{
		TenantID: "other-tenant",
		Type:     domain.EventTypeIssue,
		Action:   domain.ActionCreate,
		Data:     domain.WebhookData{ID: "i1"},
	}
	body := marshalEvent(t, evt)
	sig := sign(body, cfg.WebhookSecret)

	h := NewHandler(cfg)
	processed, err := h.Handle(body, sig)
	require.NoError(t, err)
	assert.False(t, processed.ShouldTrigger)
	assert.Equal(t, "wrong tenant", processed.TriggerReason)
}

func TestHandleIssueAssignedToAgentTriggers(t *testing.T) {
	cfg := testCfg()
	evt := domain.WebhookEvent{
		TenantID: cfg.TenantID,
		Type:     domain.EventTypeIssue,
		Action:   domain.ActionUpdate,
		Actor:    domain.Actor{ID: "human-1"},
		Data: domain.WebhookData{
			ID:         "i1",
			Identifier: "DEV-1",
			Title:      "Fix the bug",
			Assignee:   &domain.Actor{ID: "agent-1"},
		},
	}
	body := marshalEvent(t, evt)
	sig := sign(body, cfg.WebhookSecret)

	h := NewHandler(cfg)
	processed, err := h.Handle(body, sig)
	require.NoError(t, err)
	assert.True(t, processed.ShouldTrigger)
	assert.Equal(t, "issue assigned to agent", processed.TriggerReason)
	require.NotNil(t, processed.Issue)
	assert.Equal(t, "DEV-1", processed.Issue.Identifier)
}

func TestHandleCommentMentionTriggers(t *testing.T) {
	cfg := testCfg()
	evt := domain.WebhookEvent{
		TenantID: cfg.TenantID,
		Type:     domain.EventTypeComment,
		Action:   domain.ActionCreate,
		Actor:    domain.Actor{ID: "human-1"},
		Data: domain.WebhookData{
			ID:      "c1",
			Body:    "@claude please take a look at this",
			Creator: &domain.Actor{ID: "human-1"},
			Issue:   &domain.WebhookIssue{ID: "i1", Identifier: "DEV-1"},
		},
	}
	body := marshalEvent(t, evt)
	sig := sign(body, cfg.WebhookSecret)

	h := NewHandler(cfg)
	processed, err := h.Handle(body, sig)
	require.NoError(t, err)
	assert.True(t, processed.ShouldTrigger)
	assert.Contains(t, processed.TriggerReason, "@claude")
	require.NotNil(t, processed.Comment)
	assert.Equal(t, "i1", processed.Comment.IssueID)
}

func TestHandleCommentWithoutTriggerTokenDoesNotTrigger(t *testing.T) {
	cfg := testCfg()
	evt := domain.WebhookEvent{
		TenantID: cfg.TenantID,
		Type:     domain.EventTypeComment,
		Action:   domain.ActionCreate,
		Actor:    domain.Actor{ID: "human-1"},
		Data: domain.WebhookData{
			ID:      "c1",
			Body:    "looks good to me",
			Creator: &domain.Actor{ID: "human-1"},
			Issue:   &domain.WebhookIssue{ID: "i1"},
		},
	}
	body := marshalEvent(t, evt)
	sig := sign(body, cfg.WebhookSecret)

	h := NewHandler(cfg)
	processed, err := h.Handle(body, sig)
	require.NoError(t, err)
	assert.False(t, processed.ShouldTrigger)
}

func TestHandleBotActorNeverTriggers(t *testing.T) {
	cfg := testCfg()
	evt := domain.WebhookEvent{
		TenantID: cfg.TenantID,
		Type:     domain.EventTypeComment,
		Action:   domain.ActionCreate,
		Actor:    domain.Actor{ID: "agent-1"},
		Data: domain.WebhookData{
			ID:      "c1",
			Body:    "@claude fix this please",
			Creator: &domain.Actor{ID: "agent-1"},
			Issue:   &domain.WebhookIssue{ID: "i1"},
		},
	}
	body := marshalEvent(t, evt)
	sig := sign(body, cfg.WebhookSecret)

	h := NewHandler(cfg)
	processed, err := h.Handle(body, sig)
	require.NoError(t, err)
	assert.False(t, processed.ShouldTrigger)
	assert.Equal(t, "actor is the agent", processed.TriggerReason)
}

func TestHandleUnsupportedEventTypeIsNonTrigger(t *testing.T) {
	cfg := testCfg()
	evt := domain.WebhookEvent{
		TenantID: cfg.TenantID,
		Type:     "Project",
		Action:   domain.ActionCreate,
	}
	body := marshalEvent(t, evt)
	sig := sign(body, cfg.WebhookSecret)

	h := NewHandler(cfg)
	processed, err := h.Handle(body, sig)
	require.NoError(t, err)
	assert.False(t, processed.ShouldTrigger)
	assert.Equal(t, "unsupported event type", processed.TriggerReason)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/bossagent"
	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/webhook"
)

const signatureHeader = "Linear-Signature"

// handleTrackerWebhook implements POST /webhooks/linear: read raw body,
// verify, parse, classify, respond. Routing the classified event to the
// Session Manager happens in a detached goroutine so the handler returns
// 200 promptly regardless of how long the resulting session takes to start
// (a synchronous Boss Agent delegation can run for the task's whole
// duration).
func (s *Server) handleTrackerWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	processed, err := s.webhooks.Handle(body, r.Header.Get(signatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			writeJSONError(w, http.StatusUnauthorized, "invalid signature")
		case errors.Is(err, domain.ErrMalformedPayload):
			writeJSONError(w, http.StatusBadRequest, "malformed payload")
		default:
			log.Error().Err(err).Msg("server: webhook handling failed")
			writeJSONError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	go func() {
		if routeErr := s.router.Route(context.Background(), processed); routeErr != nil {
			log.Error().Err(routeErr).Msg("server: routing webhook event failed")
		}
	}()

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

// handleCodegenCallback implements the optional POST /webhooks/codegen: an
// external runner reports task progress/completion, which is delivered to
// whichever Boss Agent monitor() call is waiting on the task id. A 501 is
// returned when no Boss Agent is configured, and a 404 when the task id is
// unknown or already resolved.
func (s *Server) handleCodegenCallback(w http.ResponseWriter, r *http.Request) {
	if s.boss == nil {
		writeJSONError(w, http.StatusNotImplemented, "boss agent not enabled")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if s.cfg.WebhookSecret != "" && !webhook.VerifySignature(body, r.Header.Get(signatureHeader), s.cfg.WebhookSecret) {
		writeJSONError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var evt bossagent.CallbackEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	if err := s.boss.HandleCallback(evt); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "unknown task id")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

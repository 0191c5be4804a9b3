// Package webhook verifies, parses, and classifies inbound tracker webhook
// deliveries into a domain.ProcessedEvent the Event Router can act on.
package webhook

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/domain"
)

// Handler implements the read-raw-body -> verify -> parse -> classify shape.
// It is transport-agnostic: internal/server owns the HTTP-specific parts
// (reading the body, reading the signature header, writing the response).
type Handler struct {
	cfg *config.Config

	warnOnce sync.Once
}

// NewHandler constructs a Handler bound to cfg.
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{cfg: cfg}
}

// Handle verifies sig against rawBody (when a webhook secret is configured),
// parses the body as a domain.WebhookEvent, and classifies it. Signature and
// parse failures are returned as errors wrapping domain.ErrInvalidSignature
// or domain.ErrMalformedPayload, both of which MUST be rejected before any
// tenant-specific data in the body is trusted.
func (h *Handler) Handle(rawBody []byte, sig string) (*domain.ProcessedEvent, error) {
	if h.cfg.WebhookSecret == "" {
		h.warnOnce.Do(func() {
			log.Warn().Msg("webhook.Handler: no webhook secret configured; signature verification disabled")
		})
	} else if !VerifySignature(rawBody, sig, h.cfg.WebhookSecret) {
		return nil, fmt.Errorf("webhook.Handler.Handle: %w", domain.ErrInvalidSignature)
	}

	var evt domain.WebhookEvent
	if err := json.Unmarshal(rawBody, &evt); err != nil {
		return nil, fmt.Errorf("webhook.Handler.Handle: %w: %v", domain.ErrMalformedPayload, err)
	}

	processed := classify(&evt, h.cfg)
	return processed, nil
}

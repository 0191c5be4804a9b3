// Package router maps a classified webhook event to a session lifecycle
// call. It is deliberately thin: all decision logic lives in
// internal/webhook (classification) and internal/session (lifecycle).
package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/domain"
)

// SessionManager is the slice of session.Manager the router depends on.
type SessionManager interface {
	CreateSession(ctx context.Context, issue *domain.Issue, comment *domain.Comment) (*domain.Session, error)
	StartSession(ctx context.Context, sessionID string, issue *domain.Issue, comment *domain.Comment) error
}

// Router dispatches ProcessedEvents to the Session Manager.
type Router struct {
	sessions SessionManager
}

// New constructs a Router bound to a SessionManager.
func New(sessions SessionManager) *Router {
	return &Router{sessions: sessions}
}

// Route creates (or reuses) a session for evt and starts it. A non-trigger
// event is logged and dropped. createSession returning an existing active
// session is not special-cased here: startSession is always called and must
// itself be idempotent.
func (r *Router) Route(ctx context.Context, evt *domain.ProcessedEvent) error {
	if !evt.ShouldTrigger {
		log.Debug().Str("reason", evt.TriggerReason).Msg("router: event did not trigger")
		return nil
	}

	s, err := r.sessions.CreateSession(ctx, evt.Issue, evt.Comment)
	if err != nil {
		return fmt.Errorf("router.Router.Route: %w", err)
	}

	if err := r.sessions.StartSession(ctx, s.ID, evt.Issue, evt.Comment); err != nil {
		return fmt.Errorf("router.Router.Route: %w", err)
	}
	return nil
}

// Package server wires the bridge's HTTP surface: the inbound tracker
// webhook, the optional codegen callback, and a small admin API for
// inspecting and cancelling sessions. Grounded on the teacher's own
// chi+huma+cors server wiring (internal/server/server.go), with the
// JWT-auth/Slack/SPA-specific routes replaced by the bridge's own endpoints
// and the CORS origin list corrected from a wildcard to an explicit list —
// an empty list means same-origin only, never rs/cors's allow-all default.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/agentbridge/bridge/internal/bossagent"
	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/events"
	"github.com/agentbridge/bridge/internal/router"
	"github.com/agentbridge/bridge/internal/server/middleware"
	"github.com/agentbridge/bridge/internal/webhook"
)

// Server is the HTTP server that wires all bridge routes and middleware.
type Server struct {
	mux        chi.Router
	httpServer *http.Server
	cfg        *config.Config

	sessions  SessionManager
	webhooks  *webhook.Handler
	router    *router.Router
	boss      *bossagent.BossAgent // nil when the Boss Agent is not configured
	bus       *events.Bus
	startedAt time.Time
}

// New creates a Server with all routes wired. boss may be nil, in which
// case POST /webhooks/codegen responds 501.
func New(
	ctx context.Context,
	cfg *config.Config,
	sessions SessionManager,
	webhooks *webhook.Handler,
	evtRouter *router.Router,
	boss *bossagent.BossAgent,
	bus *events.Bus,
) *Server {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	// rs/cors treats a nil/empty AllowedOrigins as allow-all, and reflects
	// the request Origin to stay usable with AllowCredentials. That is a
	// credentialed-wildcard footgun, so the middleware is only installed
	// once an explicit origin list is configured; otherwise the browser's
	// own same-origin policy is the only cross-origin guard.
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Linear-Signature", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}

	s := &Server{
		mux:       r,
		cfg:       cfg,
		sessions:  sessions,
		webhooks:  webhooks,
		router:    evtRouter,
		boss:      boss,
		bus:       bus,
		startedAt: time.Now(),
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	rateLimit := middleware.RateLimit(ctx, cfg.AdminRateLimitRPS, cfg.AdminRateLimitBurst)

	r.Route("/webhooks", func(wr chi.Router) {
		wr.Use(rateLimit)
		wr.Post("/linear", s.handleTrackerWebhook)
		wr.Post("/codegen", s.handleCodegenCallback)
	})

	r.Group(func(gr chi.Router) {
		gr.Use(rateLimit)
		apiConfig := huma.DefaultConfig("AgentBridge Admin API", "1.0.0")
		api := humachi.New(gr, apiConfig)
		registerAdminRoutes(api, s)
	})

	r.Get("/ws/events", s.handleWSEvents)

	return s
}

// Handler returns the root http.Handler so tests can drive requests
// without binding a socket.
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins listening for HTTP requests. It blocks until Shutdown is
// called or the listener fails.
func (s *Server) Start(_ context.Context) error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server: listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Server.Shutdown: %w", err)
	}
	return nil
}

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/version"
)

// SessionManager is the slice of session.Manager the admin API depends on.
type SessionManager interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	ListActiveSessions(ctx context.Context) ([]*domain.Session, error)
	CancelSession(ctx context.Context, sessionID string) error
	GetStats(ctx context.Context) (domain.Stats, error)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	OAuthEnabled  bool   `json:"oauthEnabled"`
}

type healthOutput struct {
	Body healthResponse
}

// configResponse is the sanitized view of config.Config: no API tokens,
// webhook secrets, OAuth client credentials, or database/redis DSNs.
type configResponse struct {
	TenantID              string `json:"tenantId"`
	Port                  int    `json:"port"`
	SessionTimeoutMinutes int    `json:"sessionTimeoutMinutes"`
	DefaultBranch         string `json:"defaultBranch"`
	CreateBranches        bool   `json:"createBranches"`
	MaxConcurrentSessions int    `json:"maxConcurrentSessions"`
	EnableBossAgent       bool   `json:"enableBossAgent"`
	BossAgentThreshold    int    `json:"bossAgentThreshold"`
	OAuthEnabled          bool   `json:"oauthEnabled"`
	Debug                 bool   `json:"debug"`
}

type configOutput struct {
	Body configResponse
}

type statsOutput struct {
	Body domain.Stats
}

type listSessionsOutput struct {
	Body []*domain.Session
}

type getSessionInput struct {
	ID string `path:"id" doc:"Session id"`
}

type getSessionOutput struct {
	Body *domain.Session
}

type deleteSessionInput struct {
	ID string `path:"id" doc:"Session id"`
}

// registerAdminRoutes wires the bridge's own read/cancel surface over
// sessions, stats, health, and a sanitized config snapshot, grounded in the
// teacher's huma.Register shape (internal/api/v1) but with the bridge's own
// domain types in place of the teacher's tenant/project/task model.
func registerAdminRoutes(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Report process health and build identity",
		Tags:        []string{"Admin"},
	}, func(_ context.Context, _ *struct{}) (*healthOutput, error) {
		return &healthOutput{Body: healthResponse{
			Status:        "healthy",
			Version:       version.Version,
			Commit:        version.Commit,
			UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
			OAuthEnabled:  s.cfg.OAuthEnabled(),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/config",
		Summary:     "Report the running, sanitized configuration",
		Tags:        []string{"Admin"},
	}, func(_ context.Context, _ *struct{}) (*configOutput, error) {
		cfg := s.cfg
		return &configOutput{Body: configResponse{
			TenantID:              cfg.TenantID,
			Port:                  cfg.Port,
			SessionTimeoutMinutes: cfg.SessionTimeoutMinutes,
			DefaultBranch:         cfg.DefaultBranch,
			CreateBranches:        cfg.CreateBranches,
			MaxConcurrentSessions: cfg.MaxConcurrentSessions,
			EnableBossAgent:       cfg.EnableBossAgent,
			BossAgentThreshold:    cfg.BossAgentThreshold,
			OAuthEnabled:          cfg.OAuthEnabled(),
			Debug:                 cfg.Debug,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Aggregate session counts by status",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, _ *struct{}) (*statsOutput, error) {
		stats, err := s.sessions.GetStats(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load stats", err)
		}
		return &statsOutput{Body: stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/sessions",
		Summary:     "List every session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, _ *struct{}) (*listSessionsOutput, error) {
		sessions, err := s.sessions.ListSessions(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list sessions", err)
		}
		return &listSessionsOutput{Body: sessions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-active-sessions",
		Method:      http.MethodGet,
		Path:        "/sessions/active",
		Summary:     "List CREATED or RUNNING sessions",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, _ *struct{}) (*listSessionsOutput, error) {
		sessions, err := s.sessions.ListActiveSessions(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list active sessions", err)
		}
		return &listSessionsOutput{Body: sessions}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Fetch one session by id",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *getSessionInput) (*getSessionOutput, error) {
		sess, err := s.sessions.GetSession(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load session", err)
		}
		if sess == nil {
			return nil, huma.Error404NotFound("session not found")
		}
		return &getSessionOutput{Body: sess}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "cancel-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{id}",
		Summary:       "Cancel a session",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusOK,
	}, func(ctx context.Context, input *deleteSessionInput) (*getSessionOutput, error) {
		if err := s.sessions.CancelSession(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("session not found")
			}
			return nil, huma.Error500InternalServerError("failed to cancel session", err)
		}
		sess, err := s.sessions.GetSession(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load cancelled session", err)
		}
		return &getSessionOutput{Body: sess}, nil
	})
}

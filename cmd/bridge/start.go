package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentbridge/bridge/internal/bossagent"
	"github.com/agentbridge/bridge/internal/bossagent/redismirror"
	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/events"
	"github.com/agentbridge/bridge/internal/events/redisrelay"
	"github.com/agentbridge/bridge/internal/executor"
	"github.com/agentbridge/bridge/internal/executor/dockerexec"
	"github.com/agentbridge/bridge/internal/router"
	"github.com/agentbridge/bridge/internal/runner"
	"github.com/agentbridge/bridge/internal/server"
	"github.com/agentbridge/bridge/internal/session"
	"github.com/agentbridge/bridge/internal/sessionstore"
	"github.com/agentbridge/bridge/internal/sessionstore/postgres"
	"github.com/agentbridge/bridge/internal/tracker"
	"github.com/agentbridge/bridge/internal/webhook"
	"github.com/agentbridge/bridge/internal/worktree"
)

const (
	shutdownTimeout         = 10 * time.Second
	defaultMaxPostgresConns = 8
)

func runStart(_ *cobra.Command, _ []string) error {
	bootstrapLogging()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug || debugFlag {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bridge: session store: %w", err)
	}
	defer closeStore()

	direct, err := buildExecutor(cfg)
	if err != nil {
		return fmt.Errorf("bridge: executor: %w", err)
	}

	wt := worktree.NewManager(cfg.ProjectRootDir, cfg.ProjectRootDir+"/.bridge-worktrees")
	bus := events.NewBus()

	// No concrete tracker ships in this module (see internal/tracker), so
	// trk is tracker.Noop until a deployment links a real wrapper. The
	// lookup is still exercised here so AgentUserID gets populated the
	// moment a real Tracker is wired in.
	trk := tracker.Tracker(tracker.Noop{})
	if cfg.AgentUserID == "" {
		actor, actorErr := trk.GetCurrentUser(ctx)
		if actorErr != nil {
			log.Warn().Err(actorErr).Msg("bridge: could not auto-discover agent user id, trigger rules needing it stay disabled")
		} else {
			cfg.AgentUserID = actor.ID
		}
	}

	if cfg.RedisAddr != "" {
		relay, relayErr := redisrelay.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if relayErr != nil {
			return fmt.Errorf("bridge: redis relay: %w", relayErr)
		}
		defer relay.Close()
		bus.Subscribe(relay.Handler())
	}

	var boss *bossagent.BossAgent
	if cfg.EnableBossAgent {
		var opts []bossagent.Option
		if cfg.RedisAddr != "" {
			mirror, mirrorErr := redismirror.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if mirrorErr != nil {
				return fmt.Errorf("bridge: redis mirror: %w", mirrorErr)
			}
			defer mirror.Close()
			opts = append(opts, bossagent.WithMirror(mirror))
		}
		boss = bossagent.New(cfg.BossAgentThreshold, cfg.Timeout(), runner.Noop{}, trk, opts...)
	}

	// boss is handed to both the Session Manager and the HTTP server. The
	// Session Manager takes the bossagent.Agent interface, so a nil
	// *bossagent.BossAgent must be passed as an untyped nil rather than a
	// nil-valued interface (a non-nil interface wrapping a nil pointer would
	// make the Manager's own boss != nil check pass incorrectly).
	var sessionBoss bossagent.Agent
	if boss != nil {
		sessionBoss = boss
	}

	sessions := session.New(cfg, store, wt, direct, sessionBoss, bus)
	webhooks := webhook.NewHandler(cfg)
	evtRouter := router.New(sessions)

	srv := server.New(ctx, cfg, sessions, webhooks, evtRouter, boss, bus)

	go func() {
		log.Info().Int("port", cfg.Port).Msg("bridge: starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("bridge: server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("bridge: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bridge: shutdown: %w", err)
	}
	return nil
}

// buildStore selects a sessionstore.Store implementation from cfg: Postgres
// when SESSION_STORE_DSN is non-empty, a file-backed store under the project
// root otherwise. Both keep session state across a restart.
func buildStore(ctx context.Context, cfg *config.Config) (sessionstore.Store, func(), error) {
	if cfg.SessionStoreDSN != "" {
		store, err := postgres.New(ctx, cfg.SessionStoreDSN, defaultMaxPostgresConns)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	dir := cfg.ProjectRootDir + "/.bridge-sessions"
	store, err := sessionstore.NewFile(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

// buildExecutor selects a direct-execution engine: Docker when an image is
// configured, a declining Noop otherwise (Boss Agent delegation still works
// without it).
func buildExecutor(cfg *config.Config) (executor.Executor, error) {
	if cfg.ExecutorDockerImage == "" {
		return executor.Noop{}, nil
	}
	return dockerexec.New(cfg.DockerHost, cfg.ExecutorDockerImage, nil)
}

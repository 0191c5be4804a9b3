package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/agentbridge/bridge/internal/domain"
	"github.com/agentbridge/bridge/internal/version"
)

const (
	exitOK           = 0
	exitOther        = 1
	exitConfigError  = 2
	exitConnectivity = 3
)

func main() {
	// version.Version/Commit/BuildDate are the ldflags targets (-X
	// github.com/agentbridge/bridge/internal/version.Version=...); reusing
	// them here keeps GET /health and --version reporting the same build.
	SetVersionInfo(version.Version, version.Commit, version.BuildDate)

	err := Execute()
	if err != nil {
		slog.Error("bridge: command failed", "error", err)
	}
	os.Exit(exitCodeFor(err))
}

// exitCodeFor maps a command error to the bridge's documented exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var cfgErr *domain.ConfigError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, domain.ErrConfig):
		return exitConfigError
	case errors.Is(err, errConnectivity):
		return exitConnectivity
	default:
		return exitOther
	}
}

// Package main is the bridge's CLI entrypoint: start, init, test, help.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	debugFlag              bool
	version, commit, built = "dev", "none", "unknown"
)

// SetVersionInfo is called from main with values injected via -ldflags -X.
func SetVersionInfo(v, c, d string) {
	version, commit, built = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Issue-driven automation bridge",
	Long: `bridge receives webhook events from an issue tracker, classifies them as
triggers, and manages a per-issue session lifecycle: worktree planning,
direct execution, and optional Boss Agent delegation.`,
	RunE:          runStart,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.AddCommand(initCmd, testCmd)
	rootCmd.SetVersionTemplate(versionTemplate())
}

// Execute runs the root command and returns the error it produced, if any.
// main maps that error to a process exit code.
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.Execute()
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("bridge %s\n  commit: %s\n  built:  %s\n", version, commit, built)
	}
	return fmt.Sprintf("bridge %s\n", version)
}

// bootstrapLogging configures the stdlib slog default logger used for the
// earliest startup lines, before the zerolog logger is constructed inside
// runStart. Env vars are read directly here since config.Load has not run
// yet.
func bootstrapLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("BRIDGE_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debugFlag {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.ToLower(os.Getenv("BRIDGE_LOG_FORMAT")) == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

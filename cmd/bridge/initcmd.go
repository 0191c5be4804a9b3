package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const templateEnv = `# Tracker identity and auth.
LINEAR_API_TOKEN=
LINEAR_ORGANIZATION_ID=
CLAUDE_AGENT_USER_ID=

# Filesystem: must already be a git repository.
PROJECT_ROOT_DIR=

# HTTP.
WEBHOOK_PORT=3005

# Session behavior.
SESSION_TIMEOUT_MINUTES=30
DEFAULT_BRANCH=main
CREATE_BRANCHES=true
MAX_CONCURRENT_SESSIONS=16

# Webhook signature secret. Leave empty only for local testing.
LINEAR_WEBHOOK_SECRET=

# Boss Agent.
ENABLE_BOSS_AGENT=false
BOSS_AGENT_THRESHOLD=6

# Enrichment, all optional.
SESSION_STORE_DSN=
REDIS_ADDR=
REDIS_PASSWORD=
REDIS_DB=0
EXECUTOR_DOCKER_IMAGE=
DOCKER_HOST=
CORS_ALLOWED_ORIGINS=
ADMIN_RATE_LIMIT_RPS=10
ADMIN_RATE_LIMIT_BURST=20

DEBUG=false
`

var initOutPath string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a template configuration file",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutPath, "output", "o", ".env", "path to write the template configuration file")
}

func runInit(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(initOutPath); err == nil {
		return fmt.Errorf("bridge: %s already exists, refusing to overwrite", initOutPath)
	}
	if err := os.WriteFile(initOutPath, []byte(templateEnv), 0o600); err != nil {
		return fmt.Errorf("bridge: write %s: %w", initOutPath, err)
	}
	fmt.Fprintf(os.Stdout, "wrote template configuration to %s\n", initOutPath)
	return nil
}

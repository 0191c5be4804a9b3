// Package config resolves the bridge's configuration from the process
// environment and validates it eagerly on startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/agentbridge/bridge/internal/domain"
)

// Config is the fully resolved, validated configuration for one process.
// Exactly one tenant is honored per process (see spec non-goals); there is
// no per-request tenant routing anywhere in the bridge.
type Config struct {
	// Tracker identity and auth.
	APIToken   string
	TenantID   string
	AgentUserID string // auto-discovered by the tracker wrapper when empty

	// Filesystem.
	ProjectRootDir string

	// HTTP.
	Port int

	// Session behavior.
	SessionTimeoutMinutes int
	DefaultBranch         string
	CreateBranches        bool
	MaxConcurrentSessions int

	// Webhook.
	WebhookSecret string // empty disables signature checking (warns)

	// Boss Agent.
	EnableBossAgent    bool
	BossAgentThreshold int

	Debug bool

	// OAuth is populated only when all three LINEAR_OAUTH_* variables are
	// set; it gives the tracker wrapper a client-credentials alternative to
	// the static API token. Reported by GET /health as "oauthEnabled".
	OAuth *oauth2.Config

	// Enrichment knobs, all optional.
	SessionStoreDSN     string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	ExecutorDockerImage string
	DockerHost          string
	CORSAllowedOrigins  []string
	AdminRateLimitRPS   float64
	AdminRateLimitBurst int
}

const (
	defaultPort                  = 3005
	previewForcedPort            = 3000
	defaultSessionTimeoutMinutes = 30
	defaultBranch                = "main"
	defaultMaxConcurrentSessions = 16
	defaultBossAgentThreshold    = 6
	defaultAdminRateLimitRPS     = 10
	defaultAdminRateLimitBurst   = 20
)

// Load reads the configuration from the process environment and validates
// it, returning a *domain.ConfigError (wrapping domain.ErrConfig) on the
// first violation encountered.
func Load() (*Config, error) {
	cfg := &Config{
		APIToken:              os.Getenv("LINEAR_API_TOKEN"),
		TenantID:              os.Getenv("LINEAR_ORGANIZATION_ID"),
		AgentUserID:           os.Getenv("CLAUDE_AGENT_USER_ID"),
		ProjectRootDir:        os.Getenv("PROJECT_ROOT_DIR"),
		Port:                  getEnvInt("WEBHOOK_PORT", defaultPort),
		SessionTimeoutMinutes: getEnvInt("SESSION_TIMEOUT_MINUTES", defaultSessionTimeoutMinutes),
		DefaultBranch:         getEnvDefault("DEFAULT_BRANCH", defaultBranch),
		CreateBranches:        getEnvBool("CREATE_BRANCHES", true),
		MaxConcurrentSessions: getEnvInt("MAX_CONCURRENT_SESSIONS", defaultMaxConcurrentSessions),
		WebhookSecret:         os.Getenv("LINEAR_WEBHOOK_SECRET"),
		EnableBossAgent:       getEnvBool("ENABLE_BOSS_AGENT", false),
		BossAgentThreshold:    getEnvInt("BOSS_AGENT_THRESHOLD", defaultBossAgentThreshold),
		Debug:                 getEnvBool("DEBUG", false),

		SessionStoreDSN:     os.Getenv("SESSION_STORE_DSN"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		ExecutorDockerImage: os.Getenv("EXECUTOR_DOCKER_IMAGE"),
		DockerHost:          os.Getenv("DOCKER_HOST"),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		AdminRateLimitRPS:   getEnvFloat("ADMIN_RATE_LIMIT_RPS", defaultAdminRateLimitRPS),
		AdminRateLimitBurst: getEnvInt("ADMIN_RATE_LIMIT_BURST", defaultAdminRateLimitBurst),
	}

	// A preview-URL environment hint forces the listen port to 3000
	// regardless of WEBHOOK_PORT, matching hosted-preview deployments.
	if os.Getenv("PREVIEW_URL") != "" || os.Getenv("RENDER_EXTERNAL_URL") != "" {
		cfg.Port = previewForcedPort
	}

	if clientID := os.Getenv("LINEAR_OAUTH_CLIENT_ID"); clientID != "" {
		clientSecret := os.Getenv("LINEAR_OAUTH_CLIENT_SECRET")
		tokenURL := os.Getenv("LINEAR_OAUTH_TOKEN_URL")
		if clientSecret != "" && tokenURL != "" {
			cfg.OAuth = &oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return &domain.ConfigError{Field: "LINEAR_API_TOKEN", Msg: "must not be empty"}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &domain.ConfigError{Field: "WEBHOOK_PORT", Msg: fmt.Sprintf("must be in [1, 65535], got %d", cfg.Port)}
	}
	if cfg.ProjectRootDir == "" {
		return &domain.ConfigError{Field: "PROJECT_ROOT_DIR", Msg: "must not be empty"}
	}
	if info, err := os.Stat(cfg.ProjectRootDir); err != nil || !info.IsDir() {
		return &domain.ConfigError{Field: "PROJECT_ROOT_DIR", Msg: fmt.Sprintf("does not exist: %s", cfg.ProjectRootDir)}
	}
	if cfg.SessionTimeoutMinutes <= 0 {
		return &domain.ConfigError{Field: "SESSION_TIMEOUT_MINUTES", Msg: "must be > 0"}
	}
	if cfg.WebhookSecret == "" {
		fmt.Fprintln(os.Stderr, "config: LINEAR_WEBHOOK_SECRET not set; webhook signature verification is disabled")
	}
	return nil
}

// Timeout returns the session timeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

// OAuthEnabled reports whether the tracker's OAuth2 alternative auth path is
// configured, for GET /health.
func (c *Config) OAuthEnabled() bool {
	return c.OAuth != nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package domain

import "errors"

// Named error kinds surfaced across component boundaries. These are the
// "surface names" from the error handling design, not Go types: callers
// match them with errors.Is against the sentinels below, or wrap them with
// additional context via fmt.Errorf("%w: ...", ErrX).
var (
	// ErrConfig marks a fatal configuration violation; the process exits at
	// startup when this is returned from config.Load.
	ErrConfig = errors.New("domain: config error") //nolint:gochecknoglobals // sentinel error

	// ErrInvalidSignature marks a webhook whose HMAC did not match; it must
	// never reach the Session Manager.
	ErrInvalidSignature = errors.New("domain: invalid signature") //nolint:gochecknoglobals // sentinel error

	// ErrMalformedPayload marks a webhook body that failed to parse as JSON.
	ErrMalformedPayload = errors.New("domain: malformed payload") //nolint:gochecknoglobals // sentinel error

	// ErrNotFound marks a lookup miss surfaced as 404 from admin endpoints.
	ErrNotFound = errors.New("domain: not found") //nolint:gochecknoglobals // sentinel error

	// ErrGit marks a worktree/branch operation failure; the owning session
	// moves to FAILED without the executor ever being invoked.
	ErrGit = errors.New("domain: git error") //nolint:gochecknoglobals // sentinel error

	// ErrExecutor marks a failure caught inside the executor task.
	ErrExecutor = errors.New("domain: executor error") //nolint:gochecknoglobals // sentinel error

	// ErrStore marks a session-store I/O failure.
	ErrStore = errors.New("domain: store error") //nolint:gochecknoglobals // sentinel error

	// ErrDelegation marks a Boss Agent failure; the Session Manager treats
	// it as "delegation declined" and falls through to the direct executor.
	ErrDelegation = errors.New("domain: delegation error") //nolint:gochecknoglobals // sentinel error
)

// ConfigError wraps ErrConfig with the specific field that failed
// validation, so cmd/bridge can print an actionable message.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Msg
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

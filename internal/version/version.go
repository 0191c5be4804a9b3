// Package version carries the build identity reported by GET /health and
// by the bridge binary's --version flag.
package version

// Version is overridden at build time via -ldflags "-X
// github.com/agentbridge/bridge/internal/version.Version=...". The default
// "dev" marks a development build.
var Version = "dev" //nolint:gochecknoglobals // build-time override target

// Commit is overridden the same way as Version.
var Commit = "unknown" //nolint:gochecknoglobals // build-time override target

// BuildDate is overridden the same way as Version.
var BuildDate = "unknown" //nolint:gochecknoglobals // build-time override target

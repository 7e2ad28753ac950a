// Package logging configures the process-wide slog logger.
//
// Diagnostic logs go to stderr as key/value text so they never mix with the
// command output printed by the ui package. The level comes from LOG_LEVEL
// (debug, info, warn, error) and is forced to debug by the --debug flag.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel is the environment variable consulted for the log level.
const EnvLevel = "LOG_LEVEL"

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a text logger tagged with module and version.
// Debug level also records source locations.
func New(w io.Writer, module, version string, level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(h).With("module", module, "version", version)
}

// SetDefault installs the process logger. debug overrides LOG_LEVEL.
func SetDefault(module, version string, debug bool) *slog.Logger {
	level := ParseLevel(os.Getenv(EnvLevel))
	if debug {
		level = slog.LevelDebug
	}
	logger := New(os.Stderr, module, version, level)
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything; used by tests and quiet paths.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

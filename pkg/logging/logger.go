// Package logging configures the zerolog logger shared by the extractor.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every page fetch and cache decision.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs export start and finish.
	LevelInfo LogLevel = "info"

	// LevelWarn logs skipped rows, low quota and cache errors.
	LevelWarn LogLevel = "warn"

	// LevelError logs fatal failures only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr. Stdout is reserved for CSV.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name given on the command line or in the
// environment. The empty string means info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// zerologLevel converts LogLevel to zerolog.Level, defaulting to info.
func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn, "warning":
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-request detail
//   - Page fetched (url, bytes, last)
//   - Conditional requests, 304 responses and cached pages
//   - Rate limit state updates
//
// Info: export lifecycle
//   - Export started (kind, repository, since, mode)
//   - Export finished (pages, items, rows, early stop)
//
// Warn: conditions that do not stop the export
//   - Skipped rows under the skip row policy
//   - Rate limit below 10% of the window
//   - Cache errors (the request goes to the API)
//
// Error: the export failed
//   - Quota exhausted before a request
//   - API, decode and encode errors reported by the CLI
//
// Context Fields:
//   - component: client, cache, ratelimit, pagination, extract, sink
//   - url / route: request URL or its normalized route
//   - status, error_class: HTTP status and classification
//   - walker: listing being walked
//   - remaining, reset_at: rate limit state

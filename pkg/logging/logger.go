// Package logging configures the zerolog loggers used by the exporter.
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
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON lines.
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns the logger configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var output io.Writer = out
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidateLevel reports whether level names a supported log level.
func ValidateLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
}

// parseLevel converts LogLevel to zerolog.Level. Unknown values fall back to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a child of the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow details
//   - Cache hits, misses and conditional requests
//   - Request URLs and response sizes
//
// Info: normal export progress
//   - "Fetched page N of M"
//   - CSV file completion with row counts
//   - Selected scope and collections
//
// Warn: recoverable problems, the run continues
//   - A page or collection fetch failed and was skipped
//   - Rate limit cool-down entered
//   - Cache errors (request goes to the storefront directly)
//
// Error: the run cannot continue
//   - Meta fetch failure
//   - Output file cannot be created in catalog mode
//
// Context Fields:
//   - endpoint: request path
//   - url: full request URL
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network, decode
//   - page, total_pages: pagination position
//   - collection: collection handle
//   - file, rows: CSV output
//   - run_id: identifier of one export run

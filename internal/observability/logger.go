package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line as the service field.
const ServiceName = "paper-search-service"

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is json, or console/pretty for human-readable output.
	Format string

	// Output is stdout or stderr.
	Output string

	// AddSource adds the caller file and line to log entries.
	AddSource bool

	// TimeFormat is the timestamp layout; empty keeps RFC 3339.
	TimeFormat string

	// Environment is recorded as the env field when set.
	Environment string

	// Writer overrides Output when set.
	Writer io.Writer
}

// DefaultLoggingConfig returns the service defaults: JSON at info to stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds the root logger. Components derive children from it with
// With().Str("component", ...).
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	w := resolveWriter(cfg)
	if isHumanFormat(cfg.Format) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: zerolog.TimeFieldFormat}
	}

	ctx := zerolog.New(w).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", ServiceName)
	if cfg.Environment != "" {
		ctx = ctx.Str("env", cfg.Environment)
	}
	if cfg.AddSource {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func resolveWriter(cfg LoggingConfig) io.Writer {
	if cfg.Writer != nil {
		return cfg.Writer
	}
	if strings.EqualFold(cfg.Output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func isHumanFormat(format string) bool {
	f := strings.ToLower(format)
	return f == "console" || f == "pretty"
}

// parseLevel maps a configured level name to a zerolog level. Unknown or empty
// names fall back to info.
func parseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	if name == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithRequestContext adds HTTP request fields to a logger.
func WithRequestContext(logger zerolog.Logger, requestID, remoteAddr string) zerolog.Logger {
	return logger.With().
		Str("request_id", requestID).
		Str("remote_addr", remoteAddr).
		Logger()
}

// WithSearchContext adds the query and requested sources to a logger.
func WithSearchContext(logger zerolog.Logger, query string, sources []string) zerolog.Logger {
	return logger.With().
		Str("query", query).
		Strs("sources", sources).
		Logger()
}

// WithSourceContext adds the upstream source to a logger.
func WithSourceContext(logger zerolog.Logger, source string) zerolog.Logger {
	return logger.With().Str("source", source).Logger()
}

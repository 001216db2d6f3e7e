package internal

import (
	"log/slog"
	"os"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/config"
)

// NewLogger builds the process logger from the logging configuration.
// Verbose forces debug level and quiet drops everything below error.
// Log lines go to stderr so command output on stdout stays parseable.
func NewLogger(cfg config.LoggingConfig, verbose, quiet bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

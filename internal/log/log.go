// Package log provides the logging infrastructure: a type alias for
// *slog.Logger plus factory functions.
//
// Loggers travel by dependency injection, never as globals. Each component
// takes a logger in its constructor and may narrow it with
// logger.With("component", ...). Tests use NewNop or NewWithWriter with a
// buffer.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger. The alias keeps constructor
// signatures short and the whole slog ecosystem available without a custom
// interface.
type Logger = *slog.Logger

// Config defines logger options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo.
	Level slog.Level

	// JSON switches output from text to JSON format.
	JSON bool

	// AddSource adds source file and line to log entries.
	AddSource bool
}

// New creates a logger writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// NewNop creates a logger that discards everything. Tests only; production
// code silently swallowing logs is a bug.
func NewNop() Logger {
	return slog.New(slog.DiscardHandler)
}

// Package logging provides the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON slog logger writing to w. Pass os.Stdout in production;
// tests hand in a buffer or io.Discard.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default returns a logger for normal gateway operation. PARLEY_DEBUG=1
// lowers the level to debug.
func Default() *slog.Logger {
	level := slog.LevelInfo
	if v := os.Getenv("PARLEY_DEBUG"); v == "1" || v == "true" {
		level = slog.LevelDebug
	}
	return New(os.Stdout, level)
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

package util

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Development gets human-readable text at
// debug level, everything else JSON at info. Every record carries the
// component name so server and worker output can share a sink.
func NewLogger(env, component string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("component", component)
}

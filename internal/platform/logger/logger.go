package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the service-wide slog.Logger writing JSON to stdout.
// Accepted levels: debug, info, warn, error (anything else falls back to info).
func New(level string) *slog.Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter is like New but writes to the given writer. Used by tests to
// capture or discard output.
func NewWithWriter(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}

// Package logging builds the application-wide slog.Logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a console slog.Logger. format selects the handler:
// "json" for machine-readable output, anything else for text.
func New(level string, format ...string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}

	var handler slog.Handler
	if len(format) > 0 && strings.EqualFold(format[0], "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

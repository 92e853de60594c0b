// Package logger provides structured logging for dukhota.
// It uses Go's slog package with configurable levels and formats, and adapts
// it to the logging hooks of the Telegram and scheduler libraries.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates a slog Logger writing to stdout with the specified level
// and format, and installs it as the default logger.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	log := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(log)
	return log
}

// New creates a slog Logger writing to w. Unknown levels fall back to info.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a config level name onto a slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

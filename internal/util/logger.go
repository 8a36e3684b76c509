package util

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a text slog logger writing to w. The level comes from
// LOG_LEVEL (debug, info, warn, error); verbose forces debug.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OrDiscard returns l, or a logger that drops everything when l is nil
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

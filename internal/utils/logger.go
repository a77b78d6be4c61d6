package utils

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a config string to a slog level. Unrecognised values fall
// back to info, reported via ok=false so callers can warn.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// NewLogger returns a slog.Logger writing to stdout at the desired verbosity,
// as JSON when json is set and logfmt text otherwise.
func NewLogger(level string, json bool) *slog.Logger {
	handlerLevel, _ := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: handlerLevel}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Package logging configures the process-wide slog logger. Logs always go
// to stderr so they never mix with reports written to stdout.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a logger writing to w. JSON output suits machine consumers
// (e.g. when the report itself is JSON); text is easier to read by eye.
func New(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init creates a stderr logger, sets it as the slog default, and returns it.
func Init(json bool, level slog.Level) *slog.Logger {
	l := New(os.Stderr, json, level)
	slog.SetDefault(l)
	return l
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	l, err := CheckLevel(s)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// CheckLevel is ParseLevel that rejects unknown names. Empty means info.
func CheckLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Package observability wires the runtime's ambient concerns —
// structured logging, Prometheus metrics, and OpenTelemetry tracing —
// the same way every other component in this codebase is built:
// concrete collaborators configured once at process start, not
// interfaces threaded through every call site. Code elsewhere logs via
// plain package-level slog.Debug/Info/Warn calls against whatever
// handler Init installed as the default logger.
package observability

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel converts a level name to slog.Level, defaulting to Info
// for anything unrecognised rather than failing — a misconfigured log
// level should never be the reason the agent won't start.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init builds a slog.Logger writing to w at level, in either "json" or
// "text" format (text is the default for any other value), installs it
// as the process default via slog.SetDefault, and returns it.
func Init(level slog.Level, w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

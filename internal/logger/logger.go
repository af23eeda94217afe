// Package logger builds the engine's structured logger.
package logger

import (
	"log/slog"
	"os"
)

// New creates a structured JSON logger tagged with serviceName. The log
// level is read from LOG_LEVEL (DEBUG, INFO, WARN, ERROR; default INFO).
func New(serviceName string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromEnv(os.Getenv("LOG_LEVEL"))}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler).With(slog.String("service", serviceName))
}

func levelFromEnv(s string) slog.Level {
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package logging configures structured logging with slog.
//
// Usage:
//
//	logging.Setup("text")  // colored tint output for terminals
//	logging.Setup("json")  // JSON lines for log shippers
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger in the given format at the level from the
// LOG_LEVEL env var.
func Setup(format string) {
	SetupWithLevel(format, levelFromEnv())
}

// SetupWithLevel installs the default logger at an explicit level.
func SetupWithLevel(format string, level slog.Level) {
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	}
	slog.SetDefault(slog.New(handler))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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

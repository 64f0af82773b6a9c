// Package logging configures the library's slog logger from the
// environment.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/unhoang/nlp-recipes/internal/config"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Default returns the library logger, created on first use with a
// TextHandler on stderr at the level named by NLP_RECIPES_LOG_LEVEL.
func Default() *slog.Logger {
	once.Do(func() {
		opts := &slog.HandlerOptions{Level: ParseLevel(config.Load().LogLevel)}
		logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	})
	return logger
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to
// slog.Level. Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

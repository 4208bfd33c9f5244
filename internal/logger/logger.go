package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mdnair2344/greenbasket/internal/config"
)

// New creates a preconfigured slog.Logger writing JSON to stdout.
func New(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg.LogLevel)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler).With(slog.String("service", "greenbasket"))
}

// parseLevel falls back to info for unknown names.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

package postgres

import (
	"context"
	"log/slog"

	"github.com/mdnair2344/greenbasket/internal/config"
)

// Open connects using the application configuration.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	return New(ctx, cfg.DatabaseURI, cfg.SubscriptionBuffer, logger)
}

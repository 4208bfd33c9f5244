package dynamodb

import (
	"context"
	"log/slog"

	"github.com/mdnair2344/greenbasket/internal/config"
)

// Open builds a client from cfg and returns a store over the configured table.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(client, Options{
		Table:        cfg.DynamoDBTable,
		PollInterval: cfg.DynamoDBPollInterval,
		Buffer:       cfg.SubscriptionBuffer,
	}, logger), nil
}

// Package storage selects the document store backend.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/config"
	"github.com/mdnair2344/greenbasket/internal/domain/document"
	"github.com/mdnair2344/greenbasket/internal/storage/dynamodb"
	"github.com/mdnair2344/greenbasket/internal/storage/memory"
	"github.com/mdnair2344/greenbasket/internal/storage/postgres"
)

// Module wires the configured document store and closes it on stop.
var Module = fx.Options(
	fx.Provide(newStore),
	fx.Invoke(registerLifecycle),
)

type storeParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

type opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (document.Store, error)

var openPostgres, openDynamoDB = defaultOpeners()

func defaultOpeners() (opener, opener) {
	pg := func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (document.Store, error) {
		s, err := postgres.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	ddb := func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (document.Store, error) {
		s, err := dynamodb.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return pg, ddb
}

func newStore(p storeParams) (document.Store, error) {
	logger := p.Logger.With(slog.String("store", p.Config.StoreDriver))
	switch p.Config.StoreDriver {
	case config.DriverMemory, "":
		logger.Warn("using in-memory document store; data is lost on restart")
		return memory.New(p.Config.SubscriptionBuffer, logger), nil
	case config.DriverPostgres:
		return openPostgres(p.Ctx, p.Config, logger)
	case config.DriverDynamoDB:
		return openDynamoDB(p.Ctx, p.Config, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", p.Config.StoreDriver)
	}
}

// healthChecker is implemented by backends that can verify connectivity
// before the application starts serving.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

var _ healthChecker = (*postgres.Storage)(nil)

func registerLifecycle(lc fx.Lifecycle, store document.Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			hc, ok := store.(healthChecker)
			if !ok {
				return nil
			}
			if err := hc.HealthCheck(ctx); err != nil {
				return fmt.Errorf("store health check: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
}

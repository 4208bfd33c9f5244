package revenue

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/config"
)

// Module provides the revenue aggregator and the shared report cache.
var Module = fx.Provide(
	newAggregator,
	NewCache,
)

func newAggregator(cfg *config.Config, logger *slog.Logger) *Aggregator {
	return NewAggregator(Options{CountApproved: cfg.CountApprovedRevenue}, logger)
}

package normalize

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/config"
)

// Module provides the record normalizer bound to the producer time zone.
var Module = fx.Provide(newNormalizer)

func newNormalizer(cfg *config.Config, logger *slog.Logger) *Normalizer {
	return New(cfg.Location, logger)
}

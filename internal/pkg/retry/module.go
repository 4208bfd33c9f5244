package retry

import (
	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/config"
)

// Module provides the transaction retry policy.
var Module = fx.Provide(newPolicy)

func newPolicy(cfg *config.Config) Policy {
	return Policy{
		MaxAttempts: cfg.TxMaxAttempts,
		BaseDelay:   cfg.TxBackoff,
		MaxDelay:    DefaultPolicy.MaxDelay,
	}
}

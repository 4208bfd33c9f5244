package ledger

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/config"
	"github.com/mdnair2344/greenbasket/internal/domain/document"
	"github.com/mdnair2344/greenbasket/internal/normalize"
)

// Module provides the order ledger.
var Module = fx.Provide(newLedger)

type ledgerParams struct {
	fx.In

	Store      document.Store
	Normalizer *normalize.Normalizer
	Config     *config.Config
	Logger     *slog.Logger
}

func newLedger(p ledgerParams) *Ledger {
	return New(p.Store, p.Normalizer, Options{
		Buffer:        p.Config.SubscriptionBuffer,
		ResyncBackoff: p.Config.ResyncBackoff,
	}, p.Logger)
}

package di

import (
	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/app"
	"github.com/mdnair2344/greenbasket/internal/config"
	"github.com/mdnair2344/greenbasket/internal/inventory"
	"github.com/mdnair2344/greenbasket/internal/ledger"
	"github.com/mdnair2344/greenbasket/internal/lifecycle"
	"github.com/mdnair2344/greenbasket/internal/logger"
	"github.com/mdnair2344/greenbasket/internal/normalize"
	"github.com/mdnair2344/greenbasket/internal/pkg/auth"
	"github.com/mdnair2344/greenbasket/internal/pkg/retry"
	"github.com/mdnair2344/greenbasket/internal/revenue"
	"github.com/mdnair2344/greenbasket/internal/score"
	"github.com/mdnair2344/greenbasket/internal/server/http/handlers"
	"github.com/mdnair2344/greenbasket/internal/server/http/router"
	"github.com/mdnair2344/greenbasket/internal/storage"
	"github.com/mdnair2344/greenbasket/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		normalize.Module,
		retry.Module,
		ledger.Module,
		lifecycle.Module,
		inventory.Module,
		revenue.Module,
		score.Module,
		usecase.Module,
		fx.Provide(func(f *app.MarketplaceFacade) handlers.MarketplaceFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

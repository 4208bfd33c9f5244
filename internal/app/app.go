package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/config"
	"github.com/mdnair2344/greenbasket/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewMarketplaceFacade,
		newHTTPServer,
		newReportRefresher,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type workerParams struct {
	fx.In

	Facade *MarketplaceFacade
	Config *config.Config
	Logger *slog.Logger
}

func newReportRefresher(p workerParams) *worker.ReportRefresher {
	return worker.NewReportRefresher(
		p.Facade,
		p.Config.ReportRefreshInterval,
		p.Config.WorkerPoolSize,
		p.Logger,
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.ReportRefresher
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	// Streaming handlers watch the base context so Shutdown does not wait
	// on them until the timeout.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	p.Server.BaseContext = func(net.Listener) context.Context { return baseCtx }

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting greenbasket",
				slog.String("addr", p.Server.Addr),
				slog.String("store", p.Config.StoreDriver),
			)
			// The start context ends once OnStart returns.
			p.Worker.Start(context.WithoutCancel(ctx))
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Worker.Stop()
			cancelBase()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("greenbasket stopped")
			return nil
		},
	})
}

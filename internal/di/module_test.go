package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/mdnair2344/greenbasket/internal/app"
	"github.com/mdnair2344/greenbasket/internal/config"
	"github.com/mdnair2344/greenbasket/internal/domain/document"
	"github.com/mdnair2344/greenbasket/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		RunAddress:            ":0",
		StoreDriver:           config.DriverMemory,
		TokenSecret:           "secret",
		TokenTTL:              time.Hour,
		ProducerTimezone:      "UTC",
		Location:              time.UTC,
		TxMaxAttempts:         3,
		TxBackoff:             time.Millisecond,
		ReportRefreshInterval: time.Hour,
		WorkerPoolSize:        1,
		ShutdownTimeout:       time.Millisecond,
	}
}

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := memory.New(0, logger)

	var facade *app.MarketplaceFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(testConfig()),
			fx.Replace(logger),
			fx.Replace(document.Store(store)),
		),
		fx.Populate(&facade),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected marketplace facade instance")
	}
}

func TestModuleUsesConfiguredMemoryStore(t *testing.T) {
	var store document.Store
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(testConfig()),
			fx.Replace(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		),
		fx.Populate(&store),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/inventory"
	"github.com/mdnair2344/greenbasket/internal/ledger"
	"github.com/mdnair2344/greenbasket/internal/revenue"
	"github.com/mdnair2344/greenbasket/internal/usecase"
)

// MarketplaceFacade is the single entry point the transport and the worker
// use. State changes that can move revenue drop the producer's cached snapshot.
type MarketplaceFacade struct {
	auth    *usecase.AuthUseCase
	orders  *usecase.OrderUseCase
	reports *usecase.ReportUseCase
}

func NewMarketplaceFacade(auth *usecase.AuthUseCase, orders *usecase.OrderUseCase, reports *usecase.ReportUseCase) *MarketplaceFacade {
	return &MarketplaceFacade{auth: auth, orders: orders, reports: reports}
}

func (f *MarketplaceFacade) ParseToken(token string) (string, error) {
	return f.auth.ParseToken(token)
}

func (f *MarketplaceFacade) WatchPending(ctx context.Context, producerID string) (*ledger.Subscription, error) {
	return f.orders.WatchPending(ctx, producerID)
}

func (f *MarketplaceFacade) Orders(ctx context.Context, producerID string, statuses ...model.OrderStatus) ([]model.Order, error) {
	return f.orders.List(ctx, producerID, statuses...)
}

func (f *MarketplaceFacade) Decide(ctx context.Context, producerID, orderID string, decision model.Decision) (model.OrderStatus, error) {
	status, err := f.orders.Decide(ctx, producerID, orderID, decision)
	if err == nil {
		f.reports.Invalidate(producerID)
	}
	return status, err
}

func (f *MarketplaceFacade) ConfirmPayment(ctx context.Context, producerID, orderID string) error {
	if err := f.orders.ConfirmPayment(ctx, producerID, orderID); err != nil {
		return err
	}
	f.reports.Invalidate(producerID)
	return nil
}

func (f *MarketplaceFacade) ConfirmDelivery(ctx context.Context, producerID, orderID string) (inventory.DeliveryResult, error) {
	result, err := f.orders.ConfirmDelivery(ctx, producerID, orderID)
	if err == nil && !result.AlreadyDelivered {
		f.reports.Invalidate(producerID)
	}
	return result, err
}

// Revenue folds the producer's current order history.
func (f *MarketplaceFacade) Revenue(ctx context.Context, producerID string) (*revenue.Report, error) {
	return f.reports.Revenue(ctx, producerID)
}

// RevenueSnapshot serves the report last published by the refresh worker,
// computing and publishing one on a miss.
func (f *MarketplaceFacade) RevenueSnapshot(ctx context.Context, producerID string) (*revenue.Report, error) {
	return f.reports.CachedRevenue(ctx, producerID)
}

func (f *MarketplaceFacade) CurrentMonthTotal(ctx context.Context, producerID, product string) (decimal.Decimal, error) {
	return f.reports.CurrentMonthTotal(ctx, producerID, product)
}

func (f *MarketplaceFacade) Sustainability(ctx context.Context, producerID string) (model.SustainabilityMetrics, error) {
	return f.reports.Sustainability(ctx, producerID)
}

func (f *MarketplaceFacade) Producers(ctx context.Context) ([]string, error) {
	return f.reports.Producers(ctx)
}

func (f *MarketplaceFacade) RefreshReport(ctx context.Context, producerID string) error {
	_, err := f.reports.Refresh(ctx, producerID)
	return err
}

package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/inventory"
	"github.com/mdnair2344/greenbasket/internal/ledger"
	"github.com/mdnair2344/greenbasket/internal/revenue"
)

// TokenFacade verifies producer tokens.
type TokenFacade interface {
	ParseToken(token string) (string, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	WatchPending(ctx context.Context, producerID string) (*ledger.Subscription, error)
	Orders(ctx context.Context, producerID string, statuses ...model.OrderStatus) ([]model.Order, error)
	Decide(ctx context.Context, producerID, orderID string, decision model.Decision) (model.OrderStatus, error)
	ConfirmPayment(ctx context.Context, producerID, orderID string) error
	ConfirmDelivery(ctx context.Context, producerID, orderID string) (inventory.DeliveryResult, error)
}

// ReportFacade provides revenue and sustainability reporting.
type ReportFacade interface {
	Revenue(ctx context.Context, producerID string) (*revenue.Report, error)
	RevenueSnapshot(ctx context.Context, producerID string) (*revenue.Report, error)
	CurrentMonthTotal(ctx context.Context, producerID, product string) (decimal.Decimal, error)
	Sustainability(ctx context.Context, producerID string) (model.SustainabilityMetrics, error)
}

// MarketplaceFacade aggregates the full set of operations used across handlers.
type MarketplaceFacade interface {
	TokenFacade
	OrderFacade
	ReportFacade
}

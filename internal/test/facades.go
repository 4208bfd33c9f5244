package test

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/inventory"
	"github.com/mdnair2344/greenbasket/internal/ledger"
	"github.com/mdnair2344/greenbasket/internal/revenue"
)

// OrderFacadeStub simulates order interactions for HTTP tests.
type OrderFacadeStub struct {
	WatchFn    func(context.Context, string) (*ledger.Subscription, error)
	OrdersFn   func(context.Context, string, ...model.OrderStatus) ([]model.Order, error)
	DecideFn   func(context.Context, string, string, model.Decision) (model.OrderStatus, error)
	PaymentFn  func(context.Context, string, string) error
	DeliveryFn func(context.Context, string, string) (inventory.DeliveryResult, error)
}

// WatchPending delegates to WatchFn or fails.
func (s OrderFacadeStub) WatchPending(ctx context.Context, producerID string) (*ledger.Subscription, error) {
	if s.WatchFn != nil {
		return s.WatchFn(ctx, producerID)
	}
	return nil, errors.New("watch not configured")
}

// Orders returns configured orders or none.
func (s OrderFacadeStub) Orders(ctx context.Context, producerID string, statuses ...model.OrderStatus) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, producerID, statuses...)
	}
	return nil, nil
}

// Decide maps the decision to its resulting status by default.
func (s OrderFacadeStub) Decide(ctx context.Context, producerID, orderID string, decision model.Decision) (model.OrderStatus, error) {
	if s.DecideFn != nil {
		return s.DecideFn(ctx, producerID, orderID, decision)
	}
	if decision == model.DecisionReject {
		return model.OrderStatusRejected, nil
	}
	return model.OrderStatusApproved, nil
}

// ConfirmPayment succeeds unless overridden.
func (s OrderFacadeStub) ConfirmPayment(ctx context.Context, producerID, orderID string) error {
	if s.PaymentFn != nil {
		return s.PaymentFn(ctx, producerID, orderID)
	}
	return nil
}

// ConfirmDelivery returns an empty result unless overridden.
func (s OrderFacadeStub) ConfirmDelivery(ctx context.Context, producerID, orderID string) (inventory.DeliveryResult, error) {
	if s.DeliveryFn != nil {
		return s.DeliveryFn(ctx, producerID, orderID)
	}
	return inventory.DeliveryResult{OrderID: orderID}, nil
}

// ReportFacadeStub simulates reporting interactions.
type ReportFacadeStub struct {
	RevenueFn        func(context.Context, string) (*revenue.Report, error)
	SnapshotFn       func(context.Context, string) (*revenue.Report, error)
	TotalFn          func(context.Context, string, string) (decimal.Decimal, error)
	SustainabilityFn func(context.Context, string) (model.SustainabilityMetrics, error)
}

// Revenue delegates to RevenueFn or fails.
func (s ReportFacadeStub) Revenue(ctx context.Context, producerID string) (*revenue.Report, error) {
	if s.RevenueFn != nil {
		return s.RevenueFn(ctx, producerID)
	}
	return nil, errors.New("revenue not configured")
}

// RevenueSnapshot delegates to SnapshotFn or fails.
func (s ReportFacadeStub) RevenueSnapshot(ctx context.Context, producerID string) (*revenue.Report, error) {
	if s.SnapshotFn != nil {
		return s.SnapshotFn(ctx, producerID)
	}
	return nil, errors.New("snapshot not configured")
}

// CurrentMonthTotal returns zero unless overridden.
func (s ReportFacadeStub) CurrentMonthTotal(ctx context.Context, producerID, product string) (decimal.Decimal, error) {
	if s.TotalFn != nil {
		return s.TotalFn(ctx, producerID, product)
	}
	return decimal.Zero, nil
}

// Sustainability returns empty metrics unless overridden.
func (s ReportFacadeStub) Sustainability(ctx context.Context, producerID string) (model.SustainabilityMetrics, error) {
	if s.SustainabilityFn != nil {
		return s.SustainabilityFn(ctx, producerID)
	}
	return model.SustainabilityMetrics{ProducerID: producerID}, nil
}

// MarketplaceFacadeStub aggregates facade dependencies for HTTP layer tests.
type MarketplaceFacadeStub struct {
	TokenParserStub
	OrderFacadeStub
	ReportFacadeStub
}

// WorkerFacadeStub records background refresh calls.
type WorkerFacadeStub struct {
	mu sync.Mutex

	ProducerIDs  []string
	ProducersErr error
	RefreshErr   map[string]error
	Refreshed    []string
}

// Producers returns configured producer identifiers.
func (s *WorkerFacadeStub) Producers(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ProducersErr != nil {
		return nil, s.ProducersErr
	}
	return append([]string(nil), s.ProducerIDs...), nil
}

// RefreshReport records the refresh and returns the configured error.
func (s *WorkerFacadeStub) RefreshReport(_ context.Context, producerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Refreshed = append(s.Refreshed, producerID)
	return s.RefreshErr[producerID]
}

// RefreshedIDs returns a copy of recorded refreshes.
func (s *WorkerFacadeStub) RefreshedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Refreshed...)
}

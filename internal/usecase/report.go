package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/normalize"
	"github.com/mdnair2344/greenbasket/internal/revenue"
	"github.com/mdnair2344/greenbasket/internal/score"
)

// ReportUseCase computes revenue reports and sustainability metrics.
type ReportUseCase struct {
	store      document.Store
	normalizer *normalize.Normalizer
	aggregator *revenue.Aggregator
	calculator *score.Calculator
	cache      *revenue.Cache
	logger     *slog.Logger
	now        func() time.Time
}

// NewReportUseCase constructs ReportUseCase.
func NewReportUseCase(
	store document.Store,
	normalizer *normalize.Normalizer,
	aggregator *revenue.Aggregator,
	calculator *score.Calculator,
	cache *revenue.Cache,
	logger *slog.Logger,
) *ReportUseCase {
	return &ReportUseCase{
		store:      store,
		normalizer: normalizer,
		aggregator: aggregator,
		calculator: calculator,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Producers lists the IDs of registered producers.
func (u *ReportUseCase) Producers(ctx context.Context) ([]string, error) {
	docs, err := u.store.Query(ctx, document.CollectionProducers)
	if err != nil {
		return nil, fmt.Errorf("list producers: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// Revenue computes a fresh report from the store without touching the cache.
func (u *ReportUseCase) Revenue(ctx context.Context, producerID string) (*revenue.Report, error) {
	var (
		orderDocs []document.Document
		cropDocs  []document.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orderDocs, err = u.queryOrders(gctx, producerID, u.aggregator.CountedStatuses()...)
		return err
	})
	g.Go(func() error {
		var err error
		cropDocs, err = u.queryCrops(gctx, producerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	orders, rejected := u.normalizer.Orders(orderDocs)
	if rejected > 0 {
		u.logger.Warn("orders excluded from revenue", slog.String("producer", producerID), slog.Int("rejected", rejected))
	}
	items := u.normalizer.InventoryItems(cropDocs)
	return u.aggregator.Aggregate(ctx, producerID, orders, items, u.now().In(u.normalizer.Location()))
}

// Refresh recomputes the producer's report and publishes it to the cache.
// A report whose reads raced an invalidation is returned but not published.
func (u *ReportUseCase) Refresh(ctx context.Context, producerID string) (*revenue.Report, error) {
	gen := u.cache.Generation(producerID)
	report, err := u.Revenue(ctx, producerID)
	if err != nil {
		return nil, err
	}
	if !u.cache.Publish(report, gen) {
		u.logger.Debug("stale revenue report discarded", slog.String("producer", producerID))
	}
	return report, nil
}

// CachedRevenue serves the last published snapshot when it belongs to the
// current month and refreshes otherwise. The snapshot may lag writes made
// outside this process until the next refresh.
func (u *ReportUseCase) CachedRevenue(ctx context.Context, producerID string) (*revenue.Report, error) {
	if report, ok := u.cache.Load(producerID); ok {
		if report.CurrentMonth() == model.YearMonthOf(u.now().In(u.normalizer.Location())) {
			return report, nil
		}
	}
	return u.Refresh(ctx, producerID)
}

// Invalidate drops the producer's cached report.
func (u *ReportUseCase) Invalidate(producerID string) {
	u.cache.Invalidate(producerID)
}

// CurrentMonthTotal returns the producer's revenue for product this month,
// folded from the current order history.
func (u *ReportUseCase) CurrentMonthTotal(ctx context.Context, producerID, product string) (decimal.Decimal, error) {
	report, err := u.Revenue(ctx, producerID)
	if err != nil {
		return decimal.Zero, err
	}
	return report.CurrentMonthTotal(product), nil
}

// Sustainability derives the producer's metrics and score.
func (u *ReportUseCase) Sustainability(ctx context.Context, producerID string) (model.SustainabilityMetrics, error) {
	var (
		report    *revenue.Report
		cropDocs  []document.Document
		delivered []document.Document
		reviews   []document.Document
		certs     []document.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report, err = u.Revenue(gctx, producerID)
		return err
	})
	g.Go(func() error {
		var err error
		cropDocs, err = u.queryCrops(gctx, producerID)
		return err
	})
	g.Go(func() error {
		var err error
		delivered, err = u.queryOrders(gctx, producerID, model.OrderStatusDelivered)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = u.store.Query(gctx, document.CollectionReviews, document.Eq(document.OwnerField, producerID))
		if err != nil {
			return fmt.Errorf("query reviews of %s: %w", producerID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		certs, err = u.store.Query(gctx, document.CollectionCertificates, document.Eq(document.OwnerField, producerID))
		if err != nil {
			return fmt.Errorf("query certificates of %s: %w", producerID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.SustainabilityMetrics{}, err
	}

	completed, _ := u.normalizer.Orders(delivered)
	avg, count := score.Ratings(u.normalizer.Reviews(reviews))
	today := u.normalizer.Today(u.now())
	valid := 0
	for _, c := range u.normalizer.Certificates(certs) {
		if c.ValidOn(today) {
			valid++
		}
	}

	metrics, err := u.calculator.Compute(score.Inputs{
		ProducerID:            producerID,
		CropCount:             len(u.normalizer.InventoryItems(cropDocs)),
		CompletedOrderCount:   len(completed),
		TotalRevenue:          report.Total(),
		AverageRating:         avg,
		ReviewCount:           count,
		ValidCertificateCount: valid,
	})
	if err != nil {
		u.logger.Error("sustainability score rejected", slog.String("producer", producerID), slog.String("error", err.Error()))
		return model.SustainabilityMetrics{}, err
	}
	return metrics, nil
}

func (u *ReportUseCase) queryOrders(ctx context.Context, producerID string, statuses ...model.OrderStatus) ([]document.Document, error) {
	values := make([]any, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	docs, err := u.store.Query(ctx, document.CollectionOrders,
		document.Eq(document.OwnerField, producerID), document.In("status", values...))
	if err != nil {
		return nil, fmt.Errorf("query orders of %s: %w", producerID, err)
	}
	return docs, nil
}

func (u *ReportUseCase) queryCrops(ctx context.Context, producerID string) ([]document.Document, error) {
	docs, err := u.store.Query(ctx, document.CollectionCrops, document.Eq(document.OwnerField, producerID))
	if err != nil {
		return nil, fmt.Errorf("query crops of %s: %w", producerID, err)
	}
	return docs, nil
}

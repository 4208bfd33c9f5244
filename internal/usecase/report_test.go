package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	mock_document "github.com/mdnair2344/greenbasket/internal/domain/document/mocks"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/normalize"
	"github.com/mdnair2344/greenbasket/internal/revenue"
	"github.com/mdnair2344/greenbasket/internal/score"
	"github.com/mdnair2344/greenbasket/internal/storage/memory"
)

var fixedNow = time.Date(2024, time.June, 20, 12, 0, 0, 0, time.UTC)

func newReportUseCase(store document.Store) *ReportUseCase {
	logger := discardLogger()
	uc := NewReportUseCase(
		store,
		normalize.New(time.UTC, logger),
		revenue.NewAggregator(revenue.Options{}, logger),
		&score.Calculator{Weights: score.DefaultWeights},
		revenue.NewCache(),
		logger,
	)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func seedReportData(store *memory.Store) {
	store.Put(document.CollectionProducers, "F1", map[string]any{"name": "Green Acres"})
	store.Put(document.CollectionProducers, "F2", map[string]any{"name": "Hill Farm"})
	store.Put(document.CollectionCrops, "c1", map[string]any{"producerId": "F1", "name": "Tomato", "quantity": 90, "category": "vegetable", "emoji": "🍅"})
	store.Put(document.CollectionCrops, "c2", map[string]any{"producerId": "F1", "name": "Onion", "quantity": 10})
	putOrder(store, "O1", "F1", "delivered")
	putOrder(store, "O2", "F1", "payment_successful")
	putOrder(store, "O3", "F1", "waiting_for_approval")
	store.Put(document.CollectionOrders, "O4", map[string]any{
		"producerId": "F1", "status": "delivered", "productName": "Onion", "quantity": 4, "unitPrice": 2.5,
		"orderDate": map[string]any{"_seconds": fixedNow.Unix(), "_nanoseconds": 0},
	})
	store.Put(document.CollectionReviews, "r1", map[string]any{"producerId": "F1", "rating": 4})
	store.Put(document.CollectionReviews, "r2", map[string]any{"producerId": "F1", "rating": 5})
	store.Put(document.CollectionCertificates, "k1", map[string]any{"producerId": "F1", "name": "organic", "validUntil": "2024-06-20"})
	store.Put(document.CollectionCertificates, "k2", map[string]any{"producerId": "F1", "name": "fair", "validUntil": "2024-06-19"})
}

func TestReportUseCaseRevenue(t *testing.T) {
	store := memory.New(0, nil)
	seedReportData(store)
	uc := newReportUseCase(store)

	report, err := uc.Revenue(context.Background(), "F1")
	if err != nil {
		t.Fatalf("revenue failed: %v", err)
	}
	june := model.YearMonth{Year: 2024, Month: time.June}
	if got := report.Revenue("Tomato", june); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected tomato revenue %s", got)
	}
	if got := report.CurrentMonthTotal("Onion"); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected onion total %s", got)
	}
	if report.Meta("Tomato").Emoji != "🍅" {
		t.Fatalf("expected crop metadata, got %+v", report.Meta("Tomato"))
	}
	if _, ok := uc.cache.Load("F1"); ok {
		t.Fatal("fresh computation must not publish")
	}
}

func TestReportUseCaseCachedRevenue(t *testing.T) {
	store := memory.New(0, nil)
	seedReportData(store)
	uc := newReportUseCase(store)
	ctx := context.Background()

	first, err := uc.CachedRevenue(ctx, "F1")
	if err != nil {
		t.Fatalf("cached revenue failed: %v", err)
	}
	putOrder(store, "O9", "F1", "delivered")
	second, err := uc.CachedRevenue(ctx, "F1")
	if err != nil {
		t.Fatalf("cached revenue failed: %v", err)
	}
	if first != second {
		t.Fatal("expected cached report to be served")
	}
	fresh, err := uc.CurrentMonthTotal(ctx, "F1", "Tomato")
	if err != nil {
		t.Fatalf("current month total failed: %v", err)
	}
	if !fresh.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected current month total to see the new order, got %s", fresh)
	}

	uc.Invalidate("F1")
	total, err := uc.CurrentMonthTotal(ctx, "F1", "Tomato")
	if err != nil {
		t.Fatalf("current month total failed: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected refreshed total 150, got %s", total)
	}

	uc.now = func() time.Time { return fixedNow.AddDate(0, 1, 0) }
	next, err := uc.CachedRevenue(ctx, "F1")
	if err != nil {
		t.Fatalf("cached revenue failed: %v", err)
	}
	if next.CurrentMonth().String() != "2024-07" {
		t.Fatalf("expected report for new month, got %s", next.CurrentMonth())
	}
}

// invalidatingStore drops the producer's cached report while a refresh is
// reading orders, as a concurrent payment would.
type invalidatingStore struct {
	*memory.Store
	once sync.Once
	uc   *ReportUseCase
}

func (s *invalidatingStore) Query(ctx context.Context, collection string, filters ...document.Filter) ([]document.Document, error) {
	if collection == document.CollectionOrders {
		s.once.Do(func() { s.uc.Invalidate("F1") })
	}
	return s.Store.Query(ctx, collection, filters...)
}

func TestReportUseCaseRefreshDiscardsRacedReport(t *testing.T) {
	mem := memory.New(0, nil)
	seedReportData(mem)
	store := &invalidatingStore{Store: mem}
	uc := newReportUseCase(store)
	store.uc = uc
	ctx := context.Background()

	report, err := uc.Refresh(ctx, "F1")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if report == nil {
		t.Fatal("expected the computed report to be returned")
	}
	if _, ok := uc.cache.Load("F1"); ok {
		t.Fatal("report computed across an invalidation must not be published")
	}

	if _, err := uc.Refresh(ctx, "F1"); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, ok := uc.cache.Load("F1"); !ok {
		t.Fatal("expected an undisturbed refresh to publish")
	}
}

func TestReportUseCaseIgnoresOwnerAlias(t *testing.T) {
	store := memory.New(0, nil)
	store.Put(document.CollectionCrops, "c1", map[string]any{"farmerId": "F1", "name": "Tomato", "quantity": 90})
	store.Put(document.CollectionOrders, "O1", map[string]any{
		"farmerId": "F1", "status": "delivered", "productName": "Tomato", "quantity": 10, "unitPrice": 5, "orderDate": "2024-06-15",
	})
	uc := newReportUseCase(store)
	ctx := context.Background()

	report, err := uc.Revenue(ctx, "F1")
	if err != nil {
		t.Fatalf("revenue failed: %v", err)
	}
	if !report.Total().IsZero() {
		t.Fatalf("expected no revenue for alias-owned orders, got %s", report.Total())
	}
	m, err := uc.Sustainability(ctx, "F1")
	if err != nil {
		t.Fatalf("sustainability failed: %v", err)
	}
	if m.CropCount != 0 || m.CompletedOrderCount != 0 {
		t.Fatalf("expected alias-owned records to be ignored, got %+v", m)
	}
}

func TestReportUseCaseSustainability(t *testing.T) {
	store := memory.New(0, nil)
	seedReportData(store)
	uc := newReportUseCase(store)

	m, err := uc.Sustainability(context.Background(), "F1")
	if err != nil {
		t.Fatalf("sustainability failed: %v", err)
	}
	if m.CropCount != 2 || m.CompletedOrderCount != 2 || m.ReviewCount != 2 || m.ValidCertificateCount != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if !m.TotalRevenue.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("unexpected revenue %s", m.TotalRevenue)
	}
	if m.AverageRating != 4.5 {
		t.Fatalf("unexpected rating %v", m.AverageRating)
	}
	if m.Score <= 0 || m.Score > 100 {
		t.Fatalf("score out of range %v", m.Score)
	}
}

func TestReportUseCaseProducers(t *testing.T) {
	store := memory.New(0, nil)
	seedReportData(store)
	ids, err := newReportUseCase(store).Producers(context.Background())
	if err != nil {
		t.Fatalf("producers failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "F1" || ids[1] != "F2" {
		t.Fatalf("unexpected producers %v", ids)
	}
}

func TestReportUseCasePropagatesStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_document.NewMockStore(ctrl)
	boom := errors.New("store unavailable")

	store.EXPECT().Query(gomock.Any(), document.CollectionOrders, gomock.Any(), gomock.Any()).Return(nil, boom)
	store.EXPECT().Query(gomock.Any(), document.CollectionCrops, gomock.Any()).Return(nil, nil).AnyTimes()

	uc := newReportUseCase(store)
	if _, err := uc.Revenue(context.Background(), "F1"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, ok := uc.cache.Load("F1"); ok {
		t.Fatal("failed computation must not publish")
	}
}

func TestReportUseCaseProducersError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock_document.NewMockStore(ctrl)
	store.EXPECT().Query(gomock.Any(), document.CollectionProducers).Return(nil, errors.New("down"))

	if _, err := newReportUseCase(store).Producers(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// Package revenue folds counted orders into per-product monthly revenue.
package revenue

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdnair2344/greenbasket/internal/domain/model"
)

const (
	DefaultCategory = "other"
	DefaultEmoji    = "🌱"

	// cancelCheckEvery is how many orders are folded between context checks.
	cancelCheckEvery = 64
)

// Options tune which orders count as revenue.
type Options struct {
	// CountApproved also counts approved but unpaid orders.
	CountApproved bool
}

// Aggregator builds revenue reports. It holds no per-report state and is
// safe for concurrent use.
type Aggregator struct {
	counted map[model.OrderStatus]bool
	logger  *slog.Logger
}

// NewAggregator constructs Aggregator.
func NewAggregator(opts Options, logger *slog.Logger) *Aggregator {
	counted := map[model.OrderStatus]bool{
		model.OrderStatusPaymentSuccessful: true,
		model.OrderStatusDelivered:         true,
	}
	if opts.CountApproved {
		counted[model.OrderStatusApproved] = true
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{counted: counted, logger: logger}
}

// Counts reports whether orders in status contribute revenue.
func (a *Aggregator) Counts(status model.OrderStatus) bool {
	return a.counted[status]
}

// CountedStatuses lists the statuses that contribute revenue.
func (a *Aggregator) CountedStatuses() []model.OrderStatus {
	out := make([]model.OrderStatus, 0, len(a.counted))
	for _, s := range []model.OrderStatus{
		model.OrderStatusApproved, model.OrderStatusPaymentSuccessful, model.OrderStatusDelivered,
	} {
		if a.counted[s] {
			out = append(out, s)
		}
	}
	return out
}

// Aggregate folds orders of producerID into a Report. The fold is commutative:
// any permutation of orders yields the same buckets. now selects the current
// month and should be expressed in the producer's zone. A cancelled context
// returns its error and no report.
func (a *Aggregator) Aggregate(ctx context.Context, producerID string, orders []model.Order, inventory []model.InventoryItem, now time.Time) (*Report, error) {
	report := &Report{
		producerID:  producerID,
		generatedAt: now,
		month:       model.YearMonthOf(now),
		buckets:     make(map[model.BucketKey]decimal.Decimal),
		current:     make(map[string]decimal.Decimal),
		meta:        make(map[string]model.ProductMeta),
	}

	for i, order := range orders {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if order.ProducerID != producerID || !a.counted[order.Status] {
			continue
		}
		month := order.Month()
		for _, line := range order.Lines {
			amount := line.Total()
			key := model.BucketKey{ProductName: line.ProductName, Month: month}
			report.buckets[key] = report.buckets[key].Add(amount)
			if month == report.month {
				report.current[line.ProductName] = report.current[line.ProductName].Add(amount)
			}
		}
	}

	for _, item := range inventory {
		if item.ProducerID != "" && item.ProducerID != producerID {
			continue
		}
		meta := model.ProductMeta{
			Name:         item.Name,
			Category:     item.Category,
			Emoji:        item.Emoji,
			PricePerUnit: item.PricePerUnit,
		}
		if meta.Category == "" {
			meta.Category = DefaultCategory
		}
		if meta.Emoji == "" {
			meta.Emoji = DefaultEmoji
		}
		report.meta[item.Name] = meta
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.logger.Debug("revenue aggregated",
		slog.String("producer", producerID),
		slog.Int("orders", len(orders)),
		slog.Int("buckets", len(report.buckets)))
	return report, nil
}

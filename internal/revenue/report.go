package revenue

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdnair2344/greenbasket/internal/domain/model"
)

// Row is one revenue bucket decorated with product metadata.
type Row struct {
	ProductName  string
	Month        model.YearMonth
	Revenue      decimal.Decimal
	Category     string
	Emoji        string
	PricePerUnit decimal.Decimal
}

// Report is an immutable revenue snapshot for one producer.
type Report struct {
	producerID  string
	generatedAt time.Time
	month       model.YearMonth
	buckets     map[model.BucketKey]decimal.Decimal
	current     map[string]decimal.Decimal
	meta        map[string]model.ProductMeta
}

func (r *Report) ProducerID() string            { return r.producerID }
func (r *Report) GeneratedAt() time.Time        { return r.generatedAt }
func (r *Report) CurrentMonth() model.YearMonth { return r.month }

// Buckets returns the raw aggregation cells.
func (r *Report) Buckets() []model.RevenueBucket {
	out := make([]model.RevenueBucket, 0, len(r.buckets))
	for key, revenue := range r.buckets {
		out = append(out, model.RevenueBucket{
			ProducerID:  r.producerID,
			ProductName: key.ProductName,
			Month:       key.Month,
			Revenue:     revenue,
		})
	}
	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Month, out[i].ProductName, out[j].Month, out[j].ProductName) })
	return out
}

// Rows returns buckets ordered by month, then product name.
func (r *Report) Rows() []Row {
	buckets := r.Buckets()
	rows := make([]Row, 0, len(buckets))
	for _, b := range buckets {
		meta := r.Meta(b.ProductName)
		rows = append(rows, Row{
			ProductName:  b.ProductName,
			Month:        b.Month,
			Revenue:      b.Revenue,
			Category:     meta.Category,
			Emoji:        meta.Emoji,
			PricePerUnit: meta.PricePerUnit,
		})
	}
	return rows
}

// Revenue returns the bucket value, zero when absent.
func (r *Report) Revenue(product string, month model.YearMonth) decimal.Decimal {
	return r.buckets[model.BucketKey{ProductName: product, Month: month}]
}

// Total sums every bucket.
func (r *Report) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.buckets {
		total = total.Add(v)
	}
	return total
}

// CurrentMonthTotal returns the product's revenue in the report's current month.
func (r *Report) CurrentMonthTotal(product string) decimal.Decimal {
	return r.current[product]
}

// CurrentMonthTotals returns a copy of all current-month running totals.
func (r *Report) CurrentMonthTotals() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.current))
	for k, v := range r.current {
		out[k] = v
	}
	return out
}

// Meta returns display metadata for product, with defaults for unknown ones.
func (r *Report) Meta(product string) model.ProductMeta {
	if meta, ok := r.meta[product]; ok {
		return meta
	}
	return model.ProductMeta{Name: product, Category: DefaultCategory, Emoji: DefaultEmoji}
}

func lessKey(am model.YearMonth, ap string, bm model.YearMonth, bp string) bool {
	if am != bm {
		return am.Before(bm)
	}
	return ap < bp
}

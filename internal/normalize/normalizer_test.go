package normalize

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
)

func newTestNormalizer() *Normalizer {
	return New(time.UTC, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func legacyOrder(date any) document.Document {
	return document.Document{ID: "o1", Data: map[string]any{
		"producerId":  "p1",
		"consumerId":  "c1",
		"status":      "payment_successful",
		"productName": "Tomato",
		"quantity":    10,
		"unitPrice":   5,
		"orderDate":   date,
	}}
}

func TestOrderDateEncodingsAreEquivalent(t *testing.T) {
	instant := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	encodings := map[string]any{
		"epoch millis":        instant.UnixMilli(),
		"epoch millis float":  float64(instant.UnixMilli()),
		"iso date":            "2024-06-15",
		"rfc3339":             "2024-06-15T12:00:00Z",
		"store timestamp":     document.TimestampOf(instant),
		"store timestamp ptr": &document.Timestamp{Seconds: instant.Unix()},
		"time":                instant,
		"exported map":        map[string]any{"_seconds": float64(instant.Unix()), "_nanoseconds": float64(0)},
		"json number":         json.Number("1718452800000"),
	}

	n := newTestNormalizer()
	for name, date := range encodings {
		t.Run(name, func(t *testing.T) {
			order, err := n.Order(legacyOrder(date))
			require.NoError(t, err)
			assert.Equal(t, "2024-06", order.Month().String())
			assert.Equal(t, 15, order.OrderDate.Day())
			assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(50)))
		})
	}
}

func TestOrderDateUsesProducerZone(t *testing.T) {
	zone := time.FixedZone("UTC+5", 5*3600)
	n := New(zone, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	late := time.Date(2024, time.June, 30, 21, 0, 0, 0, time.UTC)
	order, err := n.Order(legacyOrder(late.UnixMilli()))
	require.NoError(t, err)
	assert.Equal(t, "2024-07", order.Month().String())
	assert.Equal(t, zone, order.OrderDate.Location())
}

func TestOrderRejectsUninterpretableDate(t *testing.T) {
	n := newTestNormalizer()
	for _, date := range []any{"yesterday", nil, true, 0, -5, map[string]any{"when": 1}} {
		_, err := n.Order(legacyOrder(date))
		assert.ErrorIs(t, err, domainErrors.ErrMalformedRecord, "date %v", date)
	}
}

func TestOrderFallsBackToOtherDateFields(t *testing.T) {
	doc := legacyOrder("garbage")
	doc.Data["timestamp"] = "2024-06-15"
	order, err := newTestNormalizer().Order(doc)
	require.NoError(t, err)
	assert.Equal(t, "2024-06", order.Month().String())
}

func TestOrderMultiLineShape(t *testing.T) {
	doc := document.Document{ID: "o2", Data: map[string]any{
		"producerId": "p1",
		"status":     "delivered",
		"orderDate":  "2024-05-02",
		"items": []any{
			map[string]any{"productName": "Tomato", "quantity": "2", "unitPrice": "1.50"},
			map[string]any{"name": "Onion", "qty": 3.0, "price": json.Number("2")},
			map[string]any{"productName": "Garlic", "quantity": -1, "unitPrice": 1},
			map[string]any{"productName": "Leek", "quantity": 1, "unitPrice": "free"},
			"not a line",
		},
		"totalAmount": 9,
	}}

	order, err := newTestNormalizer().Order(doc)
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Tomato", order.Lines[0].ProductName)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, "Onion", order.Lines[1].ProductName)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(9)))
	assert.Equal(t, model.OrderStatusDelivered, order.Status)
}

func TestOrderTypedItemSlice(t *testing.T) {
	doc := document.Document{ID: "o3", Data: map[string]any{
		"producerId": "p1",
		"status":     "approved",
		"orderDate":  "2024-05-02",
		"items":      []map[string]any{{"productName": "Kale", "quantity": 1, "unitPrice": 4}},
	}}
	order, err := newTestNormalizer().Order(doc)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
}

func TestOrderRejectsWhenNoValidLines(t *testing.T) {
	doc := document.Document{ID: "o4", Data: map[string]any{
		"producerId": "p1",
		"status":     "delivered",
		"orderDate":  "2024-05-02",
		"items":      []any{map[string]any{"productName": "Tomato", "quantity": 1.5, "unitPrice": 1}},
	}}
	_, err := newTestNormalizer().Order(doc)
	assert.ErrorIs(t, err, domainErrors.ErrMalformedRecord)
}

func TestOrderRejectsBadEnvelope(t *testing.T) {
	n := newTestNormalizer()

	missingProducer := legacyOrder("2024-06-15")
	delete(missingProducer.Data, "producerId")
	_, err := n.Order(missingProducer)
	assert.ErrorIs(t, err, domainErrors.ErrMalformedRecord)

	badStatus := legacyOrder("2024-06-15")
	badStatus.Data["status"] = "shipped"
	_, err = n.Order(badStatus)
	assert.ErrorIs(t, err, domainErrors.ErrMalformedRecord)

	_, err = n.Order(document.Document{ID: "empty"})
	assert.ErrorIs(t, err, domainErrors.ErrMalformedRecord)
}

func TestOrderIgnoresOwnerAlias(t *testing.T) {
	doc := legacyOrder("2024-06-15")
	delete(doc.Data, "producerId")
	doc.Data["farmerId"] = "p1"
	_, err := newTestNormalizer().Order(doc)
	assert.ErrorIs(t, err, domainErrors.ErrMalformedRecord)
}

func TestFulfillmentSkipsDate(t *testing.T) {
	n := newTestNormalizer()

	order, err := n.Fulfillment(legacyOrder("yesterday"))
	require.NoError(t, err)
	assert.True(t, order.OrderDate.IsZero())
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "Tomato", order.Lines[0].ProductName)
	assert.Equal(t, "p1", order.ProducerID)

	noLines := legacyOrder("yesterday")
	delete(noLines.Data, "productName")
	_, err = n.Fulfillment(noLines)
	assert.ErrorIs(t, err, domainErrors.ErrMalformedRecord)
}

func TestOrdersBatchSkipsRejected(t *testing.T) {
	good := legacyOrder("2024-06-15")
	bad := legacyOrder("never")
	bad.ID = "bad"
	orders, rejected := newTestNormalizer().Orders([]document.Document{good, bad})
	assert.Len(t, orders, 1)
	assert.Equal(t, 1, rejected)
}

func TestInventoryAndScoreInputs(t *testing.T) {
	n := newTestNormalizer()

	items := n.InventoryItems([]document.Document{
		{ID: "c1", Data: map[string]any{"producerId": "p1", "name": "Tomato", "quantity": 100, "pricePerUnit": "5", "category": "vegetable", "emoji": "🍅"}},
		{ID: "c2", Data: map[string]any{"producerId": "p1", "name": "Ghost", "quantity": -1}},
		{ID: "c3", Data: map[string]any{"producerId": "p1", "quantity": 1}},
	})
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ProductID)
	assert.Equal(t, 100, items[0].Quantity)
	assert.True(t, items[0].PricePerUnit.Equal(decimal.NewFromInt(5)))

	reviews := n.Reviews([]document.Document{
		{ID: "r1", Data: map[string]any{"producerId": "p1", "rating": 4}},
		{ID: "r2", Data: map[string]any{"producerId": "p1", "rating": "4.5"}},
		{ID: "r3", Data: map[string]any{"producerId": "p1", "rating": 9}},
	})
	assert.Len(t, reviews, 2)

	certs := n.Certificates([]document.Document{
		{ID: "x1", Data: map[string]any{"producerId": "p1", "validUntil": "2030-01-01"}},
		{ID: "x2", Data: map[string]any{"producerId": "p1"}},
	})
	require.Len(t, certs, 1)
	assert.Equal(t, 2030, certs[0].ValidUntil.Year())
}

func TestToday(t *testing.T) {
	n := newTestNormalizer()
	day := n.Today(time.Date(2024, time.June, 15, 18, 4, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), day)
	assert.Equal(t, time.UTC, n.Location())
}

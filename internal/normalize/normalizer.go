// Package normalize turns heterogeneous stored records into canonical domain
// values. Records that cannot be interpreted are rejected, never defaulted.
package normalize

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
)

// totalTolerance is the accepted gap between a stored totalAmount and the sum
// of its lines.
var totalTolerance = decimal.RequireFromString("0.01")

// Normalizer parses raw order, crop, review and certificate documents.
type Normalizer struct {
	loc    *time.Location
	logger *slog.Logger
}

// New creates a Normalizer resolving dates to day boundaries in loc.
func New(loc *time.Location, logger *slog.Logger) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{loc: loc, logger: logger}
}

// Location returns the producer zone used for day boundaries.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Today returns the current calendar day in the producer zone.
func (n *Normalizer) Today(now time.Time) time.Time {
	return dayIn(now, n.loc)
}

// Order converts one raw order document. Invalid lines are dropped; the order
// is rejected with ErrMalformedRecord when nothing valid remains.
func (n *Normalizer) Order(doc document.Document) (model.Order, error) {
	order, err := n.Fulfillment(doc)
	if err != nil {
		return model.Order{}, err
	}

	date, err := resolveDate(doc.Data, dateFields, n.loc)
	if err != nil {
		return model.Order{}, malformed(doc.ID, err.Error())
	}
	order.OrderDate = date

	if v, ok := doc.Data["totalAmount"]; ok {
		if stored, ok := toDecimal(v); ok && stored.Sub(order.TotalAmount).Abs().GreaterThan(totalTolerance) {
			n.logger.Warn("order total differs from lines",
				slog.String("order", doc.ID),
				slog.String("stored", stored.String()),
				slog.String("computed", order.TotalAmount.String()),
			)
		}
	}

	return order, nil
}

// Fulfillment parses what stock movement needs: owner, status and lines.
// OrderDate is left zero, so a record with an unreadable date can still be
// delivered.
func (n *Normalizer) Fulfillment(doc document.Document) (model.Order, error) {
	data := doc.Data
	if data == nil {
		return model.Order{}, malformed(doc.ID, "empty document")
	}

	producerID := stringField(data, document.OwnerField)
	if producerID == "" {
		return model.Order{}, malformed(doc.ID, "missing producerId")
	}

	status := model.OrderStatus(stringField(data, "status"))
	if !status.Valid() {
		return model.Order{}, malformed(doc.ID, fmt.Sprintf("unknown status %q", status))
	}

	shape := detectShape(data)
	raw := shape.rawLines()
	lines := make([]model.OrderLine, 0, len(raw))
	for i, item := range raw {
		line, reason := parseLine(item)
		if reason != "" {
			n.logger.Warn("order line dropped",
				slog.String("order", doc.ID),
				slog.Int("line", i),
				slog.String("reason", reason),
			)
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return model.Order{}, malformed(doc.ID, "no valid lines")
	}

	order := model.Order{
		ID:         doc.ID,
		ProducerID: producerID,
		ConsumerID: stringField(data, "consumerId", "userId", "buyerId"),
		Lines:      lines,
		Status:     status,
	}
	order.TotalAmount = order.LinesTotal()
	return order, nil
}

// Orders normalizes a batch, logging and skipping rejected records.
func (n *Normalizer) Orders(docs []document.Document) ([]model.Order, int) {
	orders := make([]model.Order, 0, len(docs))
	rejected := 0
	for _, doc := range docs {
		order, err := n.Order(doc)
		if err != nil {
			rejected++
			n.logger.Warn("order record rejected", slog.String("order", doc.ID), slog.String("error", err.Error()))
			continue
		}
		orders = append(orders, order)
	}
	return orders, rejected
}

func parseLine(item any) (model.OrderLine, string) {
	fields, ok := item.(map[string]any)
	if !ok {
		return model.OrderLine{}, "line is not a map"
	}
	name := stringField(fields, "productName", "name", "cropName")
	if name == "" {
		return model.OrderLine{}, "missing product name"
	}
	rawQty, _ := firstPresent(fields, "quantity", "qty")
	qty, ok := toCount(rawQty)
	if !ok || qty == 0 {
		return model.OrderLine{}, "quantity is not a positive integer"
	}
	rawPrice, _ := firstPresent(fields, "unitPrice", "price", "pricePerUnit")
	price, ok := toNonNegative(rawPrice)
	if !ok {
		return model.OrderLine{}, "unit price is not a non-negative number"
	}
	return model.OrderLine{ProductName: name, Quantity: qty, UnitPrice: price}, ""
}

func malformed(id, reason string) error {
	return fmt.Errorf("%w: order %s: %s", domainErrors.ErrMalformedRecord, id, reason)
}

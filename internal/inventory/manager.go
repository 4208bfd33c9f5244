// Package inventory keeps crop stock consistent with delivered orders.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/lifecycle"
	"github.com/mdnair2344/greenbasket/internal/normalize"
	"github.com/mdnair2344/greenbasket/internal/pkg/retry"
)

// errAlreadyDelivered aborts a transaction that found the order delivered.
var errAlreadyDelivered = errors.New("order already delivered")

// DeliveryResult describes what a delivery confirmation did.
type DeliveryResult struct {
	OrderID          string
	AlreadyDelivered bool
	Changes          []model.StockChange
	// Missing lists products that had no inventory item to decrement.
	Missing []string
}

// Manager confirms deliveries and decrements stock exactly once per order.
type Manager struct {
	store      document.Store
	normalizer *normalize.Normalizer
	policy     retry.Policy
	logger     *slog.Logger
	now        func() time.Time
}

// NewManager constructs Manager.
func NewManager(store document.Store, normalizer *normalize.Normalizer, policy retry.Policy, logger *slog.Logger) *Manager {
	return &Manager{
		store:      store,
		normalizer: normalizer,
		policy:     policy,
		logger:     logger,
		now:        time.Now,
	}
}

type demand struct {
	product  string
	quantity int
	itemID   string
}

// ConfirmDelivery marks the order delivered and decrements the stock of every
// product it contains in a single transaction. Calling it again for the same
// order is a no-op.
func (m *Manager) ConfirmDelivery(ctx context.Context, orderID string) (DeliveryResult, error) {
	result := DeliveryResult{OrderID: orderID}

	doc, err := m.store.Get(ctx, document.CollectionOrders, orderID)
	if err != nil {
		return result, fmt.Errorf("read order %s: %w", orderID, err)
	}
	if model.OrderStatus(statusOf(doc)) == model.OrderStatusDelivered {
		result.AlreadyDelivered = true
		return result, nil
	}
	order, err := m.normalizer.Fulfillment(doc)
	if err != nil {
		return result, err
	}
	if err := lifecycle.Check(order.Status, model.OrderStatusDelivered); err != nil {
		return result, fmt.Errorf("confirm delivery of %s: %w", orderID, err)
	}

	demands, err := m.resolve(ctx, order)
	if err != nil {
		return result, err
	}

	err = retry.OnConflict(ctx, m.policy, func(ctx context.Context) error {
		changes, missing, err := m.apply(ctx, orderID, demands)
		if err != nil {
			return err
		}
		result.Changes, result.Missing = changes, missing
		return nil
	})
	switch {
	case errors.Is(err, errAlreadyDelivered):
		result.AlreadyDelivered = true
		result.Changes, result.Missing = nil, nil
		return result, nil
	case err != nil:
		return result, err
	}

	for _, name := range result.Missing {
		m.logger.Warn("delivered product has no inventory item",
			slog.String("order", orderID),
			slog.String("product", name),
			slog.String("error", domainErrors.ErrMissingReference.Error()))
	}
	m.logger.Info("order delivered", slog.String("order", orderID), slog.Int("stock_changes", len(result.Changes)))
	return result, nil
}

// resolve merges lines by product and looks up the inventory item of each.
func (m *Manager) resolve(ctx context.Context, order model.Order) ([]demand, error) {
	index := make(map[string]int)
	var demands []demand
	for _, line := range order.Lines {
		if i, ok := index[line.ProductName]; ok {
			demands[i].quantity += line.Quantity
			continue
		}
		index[line.ProductName] = len(demands)
		demands = append(demands, demand{product: line.ProductName, quantity: line.Quantity})
	}

	for i := range demands {
		id, err := m.lookupItem(ctx, order.ProducerID, demands[i].product)
		if err != nil {
			return nil, err
		}
		demands[i].itemID = id
	}
	return demands, nil
}

func (m *Manager) lookupItem(ctx context.Context, producerID, name string) (string, error) {
	docs, err := m.store.Query(ctx, document.CollectionCrops, document.Eq(document.OwnerField, producerID), document.Eq("name", name))
	if err != nil {
		return "", fmt.Errorf("lookup crop %q: %w", name, err)
	}
	if len(docs) == 0 {
		return "", nil
	}
	first := docs[0]
	for _, d := range docs[1:] {
		if d.ID < first.ID {
			first = d
		}
	}
	return first.ID, nil
}

func (m *Manager) apply(ctx context.Context, orderID string, demands []demand) ([]model.StockChange, []string, error) {
	var (
		changes []model.StockChange
		missing []string
	)
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		changes, missing = nil, nil

		doc, err := tx.Get(ctx, document.CollectionOrders, orderID)
		if err != nil {
			return fmt.Errorf("read order %s: %w", orderID, err)
		}
		current := model.OrderStatus(statusOf(doc))
		if current == model.OrderStatusDelivered {
			return errAlreadyDelivered
		}
		if err := lifecycle.Check(current, model.OrderStatusDelivered); err != nil {
			return fmt.Errorf("confirm delivery of %s: %w", orderID, err)
		}

		for _, d := range demands {
			if d.itemID == "" {
				missing = append(missing, d.product)
				continue
			}
			itemDoc, err := tx.Get(ctx, document.CollectionCrops, d.itemID)
			if errors.Is(err, domainErrors.ErrNotFound) {
				missing = append(missing, d.product)
				continue
			}
			if err != nil {
				return fmt.Errorf("read crop %s: %w", d.itemID, err)
			}
			item, err := m.normalizer.InventoryItem(itemDoc)
			if err != nil {
				m.logger.Warn("crop unreadable during delivery", slog.String("crop", d.itemID), slog.String("error", err.Error()))
				missing = append(missing, d.product)
				continue
			}
			after := max(item.Quantity-d.quantity, 0)
			if err := tx.Update(document.CollectionCrops, d.itemID, map[string]any{"quantity": after}); err != nil {
				return err
			}
			changes = append(changes, model.StockChange{
				ProductID:   d.itemID,
				ProductName: d.product,
				Before:      item.Quantity,
				After:       after,
			})
		}

		now := document.TimestampOf(m.now())
		return tx.Update(document.CollectionOrders, orderID, map[string]any{
			"status":          string(model.OrderStatusDelivered),
			"deliveredAt":     now,
			"statusUpdatedAt": now,
		})
	})
	return changes, missing, err
}

func statusOf(doc document.Document) string {
	s, _ := doc.Data["status"].(string)
	return s
}

package usecase

import (
	"context"
	"fmt"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/inventory"
	"github.com/mdnair2344/greenbasket/internal/ledger"
	"github.com/mdnair2344/greenbasket/internal/lifecycle"
)

// OrderUseCase drives a producer's order workflow: pending views, decisions,
// payment and delivery confirmation.
type OrderUseCase struct {
	store     document.Store
	ledger    *ledger.Ledger
	machine   *lifecycle.Machine
	inventory *inventory.Manager
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(store document.Store, l *ledger.Ledger, m *lifecycle.Machine, inv *inventory.Manager) *OrderUseCase {
	return &OrderUseCase{store: store, ledger: l, machine: m, inventory: inv}
}

// WatchPending opens a live view of orders waiting for the producer's decision.
func (u *OrderUseCase) WatchPending(ctx context.Context, producerID string) (*ledger.Subscription, error) {
	return u.ledger.Subscribe(ctx, producerID, model.OrderStatusWaitingForApproval)
}

// List returns the producer's orders in statuses, or all of them.
func (u *OrderUseCase) List(ctx context.Context, producerID string, statuses ...model.OrderStatus) ([]model.Order, error) {
	for _, s := range statuses {
		if !s.Valid() {
			return nil, fmt.Errorf("unknown status %q: %w", s, domainErrors.ErrInvalidStatus)
		}
	}
	return u.ledger.Orders(ctx, producerID, statuses...)
}

// Decide approves or rejects one of the producer's pending orders.
func (u *OrderUseCase) Decide(ctx context.Context, producerID, orderID string, decision model.Decision) (model.OrderStatus, error) {
	if err := u.ensureOwner(ctx, producerID, orderID); err != nil {
		return "", err
	}
	return u.machine.Decide(ctx, orderID, decision)
}

// ConfirmPayment records payment of an approved order.
func (u *OrderUseCase) ConfirmPayment(ctx context.Context, producerID, orderID string) error {
	if err := u.ensureOwner(ctx, producerID, orderID); err != nil {
		return err
	}
	return u.machine.ConfirmPayment(ctx, orderID)
}

// ConfirmDelivery marks the order delivered and decrements stock once.
func (u *OrderUseCase) ConfirmDelivery(ctx context.Context, producerID, orderID string) (inventory.DeliveryResult, error) {
	if err := u.ensureOwner(ctx, producerID, orderID); err != nil {
		return inventory.DeliveryResult{OrderID: orderID}, err
	}
	return u.inventory.ConfirmDelivery(ctx, orderID)
}

// ensureOwner hides other producers' orders behind ErrNotFound.
func (u *OrderUseCase) ensureOwner(ctx context.Context, producerID, orderID string) error {
	if !ValidateDocumentID(orderID) {
		return fmt.Errorf("order %q: %w", orderID, domainErrors.ErrInvalidID)
	}
	doc, err := u.store.Get(ctx, document.CollectionOrders, orderID)
	if err != nil {
		return fmt.Errorf("read order %s: %w", orderID, err)
	}
	if owner, _ := doc.Data[document.OwnerField].(string); owner != producerID {
		return fmt.Errorf("order %s: %w", orderID, domainErrors.ErrNotFound)
	}
	return nil
}

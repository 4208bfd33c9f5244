package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
	"github.com/mdnair2344/greenbasket/internal/pkg/retry"
)

// Machine applies status transitions through store transactions so every
// decision is taken against a freshly read status.
type Machine struct {
	store  document.Store
	policy retry.Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewMachine constructs Machine.
func NewMachine(store document.Store, policy retry.Policy, logger *slog.Logger) *Machine {
	return &Machine{store: store, policy: policy, logger: logger, now: time.Now}
}

// Decide approves or rejects an order waiting for approval. From any other
// status it reports ErrInvalidTransition and writes nothing.
func (m *Machine) Decide(ctx context.Context, orderID string, decision model.Decision) (model.OrderStatus, error) {
	target, err := TargetOf(decision)
	if err != nil {
		return "", err
	}
	if err := m.transition(ctx, orderID, model.OrderStatusWaitingForApproval, target); err != nil {
		return "", err
	}
	m.logger.Info("order decided", slog.String("order", orderID), slog.String("status", string(target)))
	return target, nil
}

// ConfirmPayment records a successful payment for an approved order.
func (m *Machine) ConfirmPayment(ctx context.Context, orderID string) error {
	if err := m.transition(ctx, orderID, model.OrderStatusApproved, model.OrderStatusPaymentSuccessful); err != nil {
		return err
	}
	m.logger.Info("order paid", slog.String("order", orderID))
	return nil
}

func (m *Machine) transition(ctx context.Context, orderID string, from, to model.OrderStatus) error {
	return retry.OnConflict(ctx, m.policy, func(ctx context.Context) error {
		return m.store.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
			doc, err := tx.Get(ctx, document.CollectionOrders, orderID)
			if err != nil {
				return fmt.Errorf("read order %s: %w", orderID, err)
			}
			current := model.OrderStatus(statusOf(doc))
			if current != from {
				return fmt.Errorf("%w: order %s is %s, expected %s", domainErrors.ErrInvalidTransition, orderID, current, from)
			}
			if err := Check(current, to); err != nil {
				return err
			}
			return tx.Update(document.CollectionOrders, orderID, map[string]any{
				"status":          string(to),
				"statusUpdatedAt": document.TimestampOf(m.now()),
			})
		})
	})
}

func statusOf(doc document.Document) string {
	s, _ := doc.Data["status"].(string)
	return s
}

// Package lifecycle governs legal order status transitions.
package lifecycle

import (
	"fmt"

	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
)

var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusWaitingForApproval: {model.OrderStatusApproved, model.OrderStatusRejected},
	model.OrderStatusApproved:           {model.OrderStatusPaymentSuccessful, model.OrderStatusDelivered},
	model.OrderStatusPaymentSuccessful:  {model.OrderStatusDelivered},
}

// CanTransition reports whether from -> to is a legal single step.
func CanTransition(from, to model.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status model.OrderStatus) bool {
	return status.Valid() && len(transitions[status]) == 0
}

// Check returns ErrInvalidTransition when from -> to is illegal.
func Check(from, to model.OrderStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, from, to)
	}
	return nil
}

// TargetOf maps a producer decision onto the resulting status.
func TargetOf(decision model.Decision) (model.OrderStatus, error) {
	switch decision {
	case model.DecisionApprove:
		return model.OrderStatusApproved, nil
	case model.DecisionReject:
		return model.OrderStatusRejected, nil
	}
	return "", fmt.Errorf("%w: %q", domainErrors.ErrInvalidDecision, decision)
}

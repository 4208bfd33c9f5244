package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusWaitingForApproval OrderStatus = "waiting_for_approval"
	OrderStatusApproved           OrderStatus = "approved"
	OrderStatusRejected           OrderStatus = "rejected"
	OrderStatusPaymentSuccessful  OrderStatus = "payment_successful"
	OrderStatusDelivered          OrderStatus = "delivered"
)

// Valid reports whether the status belongs to the known lifecycle.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusWaitingForApproval, OrderStatusApproved, OrderStatusRejected,
		OrderStatusPaymentSuccessful, OrderStatusDelivered:
		return true
	}
	return false
}

// Decision is a producer's answer to a pending order.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// OrderLine is one product/quantity/price triple within an order.
type OrderLine struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Total returns quantity * unit price.
func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the canonical view of a marketplace order.
type Order struct {
	ID          string
	ProducerID  string
	ConsumerID  string
	Lines       []OrderLine
	Status      OrderStatus
	TotalAmount decimal.Decimal
	// OrderDate is truncated to midnight in the producer's zone.
	OrderDate time.Time
}

// LinesTotal sums line totals.
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// Month returns the calendar month the order falls in.
func (o Order) Month() YearMonth {
	return YearMonthOf(o.OrderDate)
}

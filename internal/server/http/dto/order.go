package dto

import "github.com/shopspring/decimal"

// OrderLineResponse is one product line of an order.
type OrderLineResponse struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// OrderResponse describes an order in API responses.
type OrderResponse struct {
	ID          string              `json:"id"`
	ProducerID  string              `json:"producer_id"`
	ConsumerID  string              `json:"consumer_id,omitempty"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	OrderDate   string              `json:"order_date"`
	Lines       []OrderLineResponse `json:"lines"`
}

// DeltaResponse is one pending-order change pushed over the event stream.
type DeltaResponse struct {
	Kind  string        `json:"kind"`
	Order OrderResponse `json:"order"`
}

// DecisionRequest describes a producer decision payload.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

// StatusResponse reports an order's status after a command.
type StatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// StockChangeResponse describes one stock decrement.
type StockChangeResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Before      int    `json:"before"`
	After       int    `json:"after"`
}

// DeliveryResponse describes the outcome of a delivery confirmation.
type DeliveryResponse struct {
	OrderID          string                `json:"order_id"`
	AlreadyDelivered bool                  `json:"already_delivered"`
	Changes          []StockChangeResponse `json:"changes"`
	Missing          []string              `json:"missing,omitempty"`
}

// ErrorResponse carries a client-facing error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

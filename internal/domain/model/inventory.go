package model

import "github.com/shopspring/decimal"

// InventoryItem is a producer's crop listing. Quantity is the only field the
// fulfillment core ever writes.
type InventoryItem struct {
	ProducerID   string
	ProductID    string
	Name         string
	Quantity     int
	PricePerUnit decimal.Decimal
	Category     string
	Emoji        string
}

// StockChange records one decrement applied during delivery confirmation.
type StockChange struct {
	ProductID   string
	ProductName string
	Before      int
	After       int
}

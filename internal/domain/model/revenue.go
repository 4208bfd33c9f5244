package model

import "github.com/shopspring/decimal"

// BucketKey identifies a revenue aggregation cell for one producer.
type BucketKey struct {
	ProductName string
	Month       YearMonth
}

// RevenueBucket is an accumulated revenue cell.
type RevenueBucket struct {
	ProducerID  string
	ProductName string
	Month       YearMonth
	Revenue     decimal.Decimal
}

// ProductMeta carries display metadata looked up from inventory.
type ProductMeta struct {
	Name         string
	Category     string
	Emoji        string
	PricePerUnit decimal.Decimal
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueRowResponse is one product/month revenue row.
type RevenueRowResponse struct {
	ProductName  string          `json:"product_name"`
	Month        string          `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	Category     string          `json:"category"`
	Emoji        string          `json:"emoji"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// RevenueResponse describes a producer's revenue report.
type RevenueResponse struct {
	ProducerID   string                     `json:"producer_id"`
	GeneratedAt  time.Time                  `json:"generated_at"`
	CurrentMonth string                     `json:"current_month"`
	Total        decimal.Decimal            `json:"total"`
	CurrentTotal map[string]decimal.Decimal `json:"current_month_totals"`
	Rows         []RevenueRowResponse       `json:"rows"`
}

// ProductTotalResponse is one product's revenue for the current month.
type ProductTotalResponse struct {
	Product string          `json:"product"`
	Total   decimal.Decimal `json:"total"`
}

// SustainabilityResponse describes a producer's sustainability metrics.
type SustainabilityResponse struct {
	ProducerID            string          `json:"producer_id"`
	Score                 float64         `json:"score"`
	CropCount             int             `json:"crop_count"`
	CompletedOrderCount   int             `json:"completed_order_count"`
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	AverageRating         float64         `json:"average_rating"`
	ReviewCount           int             `json:"review_count"`
	ValidCertificateCount int             `json:"valid_certificate_count"`
}

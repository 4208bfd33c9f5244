package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Review is a consumer rating left for a producer.
type Review struct {
	ProducerID string
	Rating     float64
}

// Certificate is a producer certification with an expiry date.
type Certificate struct {
	ProducerID string
	Name       string
	ValidUntil time.Time
}

// ValidOn reports whether the certificate has not expired by day.
func (c Certificate) ValidOn(day time.Time) bool {
	return !c.ValidUntil.Before(day)
}

// SustainabilityMetrics is derived per producer and never mutated incrementally.
type SustainabilityMetrics struct {
	ProducerID            string
	CropCount             int
	CompletedOrderCount   int
	TotalRevenue          decimal.Decimal
	AverageRating         float64
	ReviewCount           int
	ValidCertificateCount int
	Score                 float64
}

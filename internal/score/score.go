// Package score derives a producer's sustainability score from aggregate
// activity figures. Everything here is pure.
package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
)

// MaxScore is the upper bound of a score.
const MaxScore = 100

// Weights parameterize the score formula. Component weights must sum to
// MaxScore and each share pair must sum to one.
type Weights struct {
	Efficiency   float64
	Reputation   float64
	Crops        float64
	Certificates float64

	OrdersShare  float64
	RevenueShare float64
	RatingShare  float64
	ReviewShare  float64

	OrdersPerCropTarget  float64
	RevenuePerCropTarget float64
	ReviewTarget         float64
	CropTarget           float64
	CertificateTarget    float64
	MaxRating            float64
}

// DefaultWeights is the marketplace's published formula.
var DefaultWeights = Weights{
	Efficiency:   45,
	Reputation:   35,
	Crops:        10,
	Certificates: 10,

	OrdersShare:  0.5,
	RevenueShare: 0.5,
	RatingShare:  0.7,
	ReviewShare:  0.3,

	OrdersPerCropTarget:  10,
	RevenuePerCropTarget: 500,
	ReviewTarget:         50,
	CropTarget:           10,
	CertificateTarget:    5,
	MaxRating:            5,
}

const epsilon = 1e-9

// Validate checks that the weights keep every score within [0, MaxScore].
func (w Weights) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"efficiency": w.Efficiency, "reputation": w.Reputation, "crops": w.Crops, "certificates": w.Certificates,
		"orders share": w.OrdersShare, "revenue share": w.RevenueShare,
		"rating share": w.RatingShare, "review share": w.ReviewShare,
	} {
		if v < 0 || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("%s weight must be non-negative", name))
		}
	}
	for name, v := range map[string]float64{
		"orders per crop": w.OrdersPerCropTarget, "revenue per crop": w.RevenuePerCropTarget,
		"reviews": w.ReviewTarget, "crops": w.CropTarget, "certificates": w.CertificateTarget,
		"rating": w.MaxRating,
	} {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s target must be positive", name))
		}
	}
	if sum := w.Efficiency + w.Reputation + w.Crops + w.Certificates; math.Abs(sum-MaxScore) > epsilon {
		errs = append(errs, fmt.Errorf("component weights sum to %v, want %d", sum, MaxScore))
	}
	if math.Abs(w.OrdersShare+w.RevenueShare-1) > epsilon {
		errs = append(errs, errors.New("efficiency shares must sum to 1"))
	}
	if math.Abs(w.RatingShare+w.ReviewShare-1) > epsilon {
		errs = append(errs, errors.New("reputation shares must sum to 1"))
	}
	return errors.Join(errs...)
}

// Inputs are the aggregate figures the score is computed from.
type Inputs struct {
	ProducerID            string
	CropCount             int
	CompletedOrderCount   int
	TotalRevenue          decimal.Decimal
	AverageRating         float64
	ReviewCount           int
	ValidCertificateCount int
}

// Calculator computes scores with fixed weights.
type Calculator struct {
	Weights Weights
}

// NewCalculator returns a Calculator, rejecting invalid weights.
func NewCalculator(w Weights) (*Calculator, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("score weights: %w", err)
	}
	return &Calculator{Weights: w}, nil
}

// Compute returns the metrics with Score rounded to two decimals. A score
// outside [0, MaxScore] is reported as ErrScoreOutOfRange.
func (c *Calculator) Compute(in Inputs) (model.SustainabilityMetrics, error) {
	w := c.Weights
	crops := float64(max(in.CropCount, 1))
	revenue, _ := in.TotalRevenue.Float64()

	ordersPerCrop := float64(in.CompletedOrderCount) / crops
	revenuePerCrop := revenue / crops

	efficiency := w.OrdersShare*capped(ordersPerCrop, w.OrdersPerCropTarget) +
		w.RevenueShare*capped(revenuePerCrop, w.RevenuePerCropTarget)
	reputation := w.RatingShare*(in.AverageRating/w.MaxRating) +
		w.ReviewShare*capped(float64(in.ReviewCount), w.ReviewTarget)
	cropBonus := capped(float64(in.CropCount), w.CropTarget)
	certBonus := capped(float64(in.ValidCertificateCount), w.CertificateTarget)

	raw := w.Efficiency*efficiency + w.Reputation*reputation + w.Crops*cropBonus + w.Certificates*certBonus
	metrics := model.SustainabilityMetrics{
		ProducerID:            in.ProducerID,
		CropCount:             in.CropCount,
		CompletedOrderCount:   in.CompletedOrderCount,
		TotalRevenue:          in.TotalRevenue,
		AverageRating:         in.AverageRating,
		ReviewCount:           in.ReviewCount,
		ValidCertificateCount: in.ValidCertificateCount,
	}
	if math.IsNaN(raw) || raw < -epsilon || raw > MaxScore+epsilon {
		return metrics, fmt.Errorf("%w: %v", domainErrors.ErrScoreOutOfRange, raw)
	}
	metrics.Score = math.Round(math.Min(math.Max(raw, 0), MaxScore)*100) / 100
	return metrics, nil
}

// Ratings returns the mean rating and the number of reviews.
func Ratings(reviews []model.Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / float64(len(reviews)), len(reviews)
}

func capped(v, target float64) float64 {
	return math.Min(v/target, 1)
}

package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

const (
	highConfidenceComparables = 3
	nearAskingTolerance       = 0.03
)

var (
	narrowSpread = decimal.NewFromFloat(0.08)
	wideSpread   = decimal.NewFromFloat(0.15)
	one          = decimal.NewFromInt(1)
)

// EstimateFairPrice builds a price band from catalog listings with the same
// feedstock as target, excluding target itself. It returns nil when there are
// no comparables.
func EstimateFairPrice(target models.Listing, catalog []models.Listing) *models.FairPriceRange {
	var prices []decimal.Decimal
	for _, l := range catalog {
		if l.ID == target.ID || l.Feedstock != target.Feedstock {
			continue
		}
		prices = append(prices, decimal.NewFromFloat(l.PricePerTonne))
	}
	if len(prices) == 0 {
		return nil
	}

	avg := decimal.Avg(prices[0], prices[1:]...)

	spread := wideSpread
	confidence := models.ConfidenceLimited
	if len(prices) >= highConfidenceComparables {
		spread = narrowSpread
		confidence = models.ConfidenceHigh
	}

	return &models.FairPriceRange{
		Average:         avg.Round(0).InexactFloat64(),
		Low:             avg.Mul(one.Sub(spread)).Round(0).InexactFloat64(),
		High:            avg.Mul(one.Add(spread)).Round(0).InexactFloat64(),
		Confidence:      confidence,
		ComparableCount: len(prices),
	}
}

// IsNearAsking reports whether price is within 3% of the listed price.
func IsNearAsking(price, listed float64) bool {
	if listed <= 0 {
		return false
	}
	diff := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(listed)).Abs()
	return diff.Div(decimal.NewFromFloat(listed)).LessThanOrEqual(decimal.NewFromFloat(nearAskingTolerance))
}

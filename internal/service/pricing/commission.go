package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Commission is the platform fee owed on a transaction value.
type Commission struct {
	Rate         float64 `json:"rate"`
	RateDisplay  string  `json:"rate_display"`
	Amount       float64 `json:"commission_amount"`
	BracketLabel string  `json:"bracket_label"`
}

// CalculateCommission maps a transaction value onto the commission brackets.
// Negative and non-finite values are treated as zero.
func CalculateCommission(value float64) Commission {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	return commissionOn(decimal.NewFromFloat(value))
}

func commissionOn(value decimal.Decimal) Commission {
	if value.IsNegative() {
		value = decimal.Zero
	}

	var rate float64
	var label string

	switch {
	case value.LessThan(decimal.NewFromInt(10000)):
		rate, label = 0.048, "Under $10,000"
	case value.LessThanOrEqual(decimal.NewFromInt(50000)):
		rate, label = 0.043, "$10,000–$50,000"
	case value.LessThanOrEqual(decimal.NewFromInt(150000)):
		rate, label = 0.039, "$50,000–$150,000"
	case value.LessThanOrEqual(decimal.NewFromInt(400000)):
		rate, label = 0.034, "$150,000–$400,000"
	default:
		rate, label = 0.03, "Over $400,000"
	}

	return Commission{
		Rate:         rate,
		RateDisplay:  fmt.Sprintf("%.1f%%", rate*100),
		Amount:       value.Mul(decimal.NewFromFloat(rate)).Round(2).InexactFloat64(),
		BracketLabel: label,
	}
}

// Quote prices volume tonnes at pricePerTonne. The bracket and commission
// come from the exact product; only the returned total is rounded to cents.
func Quote(volume, pricePerTonne float64) (float64, Commission) {
	total := decimal.NewFromFloat(volume).Mul(decimal.NewFromFloat(pricePerTonne))
	return total.Round(2).InexactFloat64(), commissionOn(total)
}

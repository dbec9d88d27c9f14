package pricing

import "github.com/mamadbah2/dealroom/internal/domain/models"

const (
	smallDealCeiling  = 25000
	mediumDealCeiling = 100000
	largeDealFloor    = 100000
)

var (
	smallDeal = models.DealComplexity{
		Bracket:       models.BracketSmall,
		Label:         "Small deal",
		MaxRounds:     4,
		ExpiryDays:    14,
		ExtensionDays: 3,
	}
	mediumDeal = models.DealComplexity{
		Bracket:       models.BracketMedium,
		Label:         "Mid-size deal",
		MaxRounds:     6,
		ExpiryDays:    14,
		ExtensionDays: 3,
	}
	largeDeal = models.DealComplexity{
		Bracket:       models.BracketLarge,
		Label:         "Large deal",
		MaxRounds:     8,
		ExpiryDays:    30,
		ExtensionDays: 3,
	}
)

// ClassifyDeal derives the negotiation profile of a listing. The stages are
// evaluated in order and the first match wins: the full value, then 70% of
// it, then 40% of it for the large bracket, falling back to mid-size.
func ClassifyDeal(listing models.Listing) models.DealComplexity {
	fullValue := listing.FullValue()
	if fullValue < smallDealCeiling {
		return withEstimate(smallDeal, fullValue)
	}

	seventy := fullValue * 0.7
	if seventy < smallDealCeiling {
		return withEstimate(smallDeal, seventy)
	}
	if seventy < mediumDealCeiling {
		return withEstimate(mediumDeal, seventy)
	}

	forty := fullValue * 0.4
	if forty >= largeDealFloor {
		return withEstimate(largeDeal, forty)
	}

	return withEstimate(mediumDeal, forty)
}

func withEstimate(profile models.DealComplexity, estimate float64) models.DealComplexity {
	profile.EstimatedValue = estimate
	return profile
}

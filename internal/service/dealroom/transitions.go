package dealroom

import (
	"fmt"
	"time"

	"github.com/mamadbah2/dealroom/internal/domain/models"
	"github.com/mamadbah2/dealroom/internal/service/pricing"
)

// The functions below are the complete transition table of a deal room. They
// mutate the deal in memory only; the service persists the result with a
// single guarded write, so a returned error means nothing was stored.

func requireOpen(deal *models.Deal) error {
	if deal.Status != models.DealOpen {
		return fmt.Errorf("%w: status is %s", ErrInvalidState, deal.Status)
	}
	return nil
}

func checkMinimumOrder(deal *models.Deal, volume float64) error {
	if volume < deal.MinOrderTonnes {
		return fmt.Errorf("%w of %g tonnes", ErrBelowMinimumOrder, deal.MinOrderTonnes)
	}
	return nil
}

// pendingBid returns the bid a responder may act on.
func pendingBid(deal *models.Deal, bidID, responderUID string) (*models.Bid, error) {
	bid := deal.FindBid(bidID)
	if bid == nil {
		return nil, fmt.Errorf("%w: %s", ErrBidNotFound, bidID)
	}
	if bid.Status != models.BidPending {
		return nil, fmt.Errorf("%w: bid %s is %s", ErrInvalidState, bidID, bid.Status)
	}
	if responderUID != "" && responderUID == bid.BidderUID {
		return nil, fmt.Errorf("%w: cannot respond to own bid", ErrInvalidState)
	}
	return bid, nil
}

// applyAction records a bid or a counter-offer. A price under the hard floor
// is recorded as Auto-Rejected and does not consume a round.
func applyAction(deal *models.Deal, action models.NegotiationAction, bidID string, now time.Time) (models.Bid, error) {
	if err := requireOpen(deal); err != nil {
		return models.Bid{}, err
	}

	var countered *models.Bid
	if action.Kind == models.ActionCounter {
		bid, err := pendingBid(deal, action.CounterTo, action.BidderUID)
		if err != nil {
			return models.Bid{}, err
		}
		countered = bid
	}

	if deal.RoundsUsed >= deal.MaxRounds {
		return models.Bid{}, ErrRoundsExhausted
	}
	if err := checkMinimumOrder(deal, action.Volume); err != nil {
		return models.Bid{}, err
	}
	if action.Volume <= 0 || action.PricePerTonne <= 0 {
		return models.Bid{}, ErrInvalidBid
	}

	totalValue, commission := pricing.Quote(action.Volume, action.PricePerTonne)

	role := action.BidderRole
	if role == "" {
		role = deal.RoleOf(action.BidderUID)
	}

	bid := models.Bid{
		ID:                    bidID,
		Kind:                  action.Kind,
		CounterTo:             action.CounterTo,
		BidderUID:             action.BidderUID,
		BidderName:            action.BidderName,
		BidderRole:            role,
		Volume:                action.Volume,
		PricePerTonne:         action.PricePerTonne,
		TotalValue:            totalValue,
		CommissionRate:        commission.Rate,
		CommissionRateDisplay: commission.RateDisplay,
		CommissionAmount:      commission.Amount,
		DeliveryMethod:        action.Delivery.Method,
		DeliveryDate:          action.Delivery.Date,
		Notes:                 action.Notes,
		Timestamp:             nextTimestamp(deal, now),
	}

	if countered != nil {
		countered.Status = models.BidCountered
	}

	if deal.HardFloor != nil && action.PricePerTonne < *deal.HardFloor {
		bid.Status = models.BidAutoRejected
		bid.AutoRejectReason = models.AutoRejectBelowFloor
		deal.Bids = append(deal.Bids, bid)
		return bid, nil
	}

	bid.Status = models.BidPending
	bid.NearAsking = pricing.IsNearAsking(action.PricePerTonne, deal.ListedPricePerTonne)
	deal.Bids = append(deal.Bids, bid)
	deal.RoundsUsed++
	deal.CurrentBidID = bid.ID
	return bid, nil
}

// acceptBid freezes the bid's terms and closes the deal as Agreed.
func acceptBid(deal *models.Deal, bidID, responderUID string, now time.Time) (models.Bid, error) {
	if err := requireOpen(deal); err != nil {
		return models.Bid{}, err
	}
	bid, err := pendingBid(deal, bidID, responderUID)
	if err != nil {
		return models.Bid{}, err
	}

	bid.Status = models.BidAccepted
	deal.Status = models.DealAgreed
	deal.AgreedTerms = &models.AgreedTerms{
		BidID:                 bid.ID,
		Volume:                bid.Volume,
		PricePerTonne:         bid.PricePerTonne,
		TotalValue:            bid.TotalValue,
		CommissionRate:        bid.CommissionRate,
		CommissionRateDisplay: bid.CommissionRateDisplay,
		CommissionAmount:      bid.CommissionAmount,
		DeliveryMethod:        bid.DeliveryMethod,
		DeliveryDate:          bid.DeliveryDate,
		AgreedAt:              now,
	}
	return *bid, nil
}

// rejectBid rejects a pending bid; the deal expires once no rounds remain.
func rejectBid(deal *models.Deal, bidID, responderUID string) (models.Bid, error) {
	if err := requireOpen(deal); err != nil {
		return models.Bid{}, err
	}
	bid, err := pendingBid(deal, bidID, responderUID)
	if err != nil {
		return models.Bid{}, err
	}

	bid.Status = models.BidRejected
	if deal.RoundsUsed >= deal.MaxRounds {
		deal.Status = models.DealExpired
	}
	return *bid, nil
}

// agreeBuyNow closes the deal at the listed price without negotiation.
func agreeBuyNow(deal *models.Deal, volume float64, delivery models.Delivery, now time.Time) error {
	if err := requireOpen(deal); err != nil {
		return err
	}
	if err := checkMinimumOrder(deal, volume); err != nil {
		return err
	}
	if volume <= 0 {
		return ErrInvalidBid
	}

	totalValue, commission := pricing.Quote(volume, deal.ListedPricePerTonne)

	deal.Status = models.DealAgreed
	deal.AgreedTerms = &models.AgreedTerms{
		Volume:                volume,
		PricePerTonne:         deal.ListedPricePerTonne,
		TotalValue:            totalValue,
		CommissionRate:        commission.Rate,
		CommissionRateDisplay: commission.RateDisplay,
		CommissionAmount:      commission.Amount,
		DeliveryMethod:        delivery.Method,
		DeliveryDate:          delivery.Date,
		AgreedAt:              now,
	}
	return nil
}

func requestExtension(deal *models.Deal, requesterUID string) error {
	if err := requireOpen(deal); err != nil {
		return err
	}
	if deal.ExtensionUsed {
		return ErrExtensionAlreadyUsed
	}
	deal.ExtensionRequested = true
	deal.ExtensionRequestedBy = requesterUID
	return nil
}

func respondToExtension(deal *models.Deal, responderUID string, accept bool) error {
	if err := requireOpen(deal); err != nil {
		return err
	}
	if deal.ExtensionUsed {
		return ErrExtensionAlreadyUsed
	}
	if !deal.ExtensionRequested {
		return fmt.Errorf("%w: no extension requested", ErrInvalidState)
	}
	if responderUID != "" && responderUID == deal.ExtensionRequestedBy {
		return fmt.Errorf("%w: cannot answer own extension request", ErrInvalidState)
	}

	if accept {
		deal.ExpiryDate = deal.ExpiryDate.AddDate(0, 0, deal.Complexity.ExtensionDays)
		deal.ExtensionUsed = true
		deal.ExtensionRequested = false
		return nil
	}

	deal.ExtensionRequested = false
	deal.ExtensionRequestedBy = ""
	return nil
}

func cancelDeal(deal *models.Deal) error {
	if err := requireOpen(deal); err != nil {
		return err
	}
	deal.Status = models.DealCancelled
	return nil
}

// nextTimestamp keeps bid timestamps strictly increasing within a deal at the
// millisecond precision the store keeps.
func nextTimestamp(deal *models.Deal, now time.Time) time.Time {
	ts := now.Truncate(time.Millisecond)
	if last := deal.LastBidAt(); !last.IsZero() && !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}
	return ts
}

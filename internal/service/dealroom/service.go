package dealroom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/domain/models"
	"github.com/mamadbah2/dealroom/internal/service/pricing"
	"github.com/mamadbah2/dealroom/pkg/metrics"
)

const (
	defaultMaxAttempts = 5
	sweepBatchSize     = 200
)

// Store persists deals and their chat messages. ReplaceDeal must only succeed
// when the stored version equals expectedVersion and must return
// models.ErrConflict otherwise.
type Store interface {
	InsertDeal(ctx context.Context, deal *models.Deal) error
	FindDeal(ctx context.Context, id string) (*models.Deal, error)
	ReplaceDeal(ctx context.Context, deal *models.Deal, expectedVersion int64) error
	MarkFinalized(ctx context.Context, dealID, transactionID string) error
	ListLapsedDeals(ctx context.Context, before time.Time, limit int) ([]models.Deal, error)
	ListUnfinalizedDeals(ctx context.Context, limit int) ([]models.Deal, error)
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, dealID string) ([]models.Message, error)
}

// ListingReader gives read-only access to the catalog.
type ListingReader interface {
	FindListing(ctx context.Context, id string) (*models.Listing, error)
	ListByFeedstock(ctx context.Context, feedstock string) ([]models.Listing, error)
}

// Finalizer turns an agreed deal into its transaction record.
type Finalizer interface {
	Finalize(ctx context.Context, deal *models.Deal) (*models.Transaction, error)
}

// Publisher fans deal-room changes out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, event models.DealEvent) error
}

// CreateDealInput opens a deal room for a buyer on a listing.
type CreateDealInput struct {
	ListingID string
	BuyerUID  string
	BuyerName string
}

// BidInput describes an offer. An empty BidderRole is derived from the deal.
type BidInput struct {
	BidderUID     string
	BidderName    string
	BidderRole    models.BidderRole
	Volume        float64
	PricePerTonne float64
	Delivery      models.Delivery
	Notes         string
}

// ResponseAction is the answer to a pending bid.
type ResponseAction string

const (
	ActionAccept  ResponseAction = "accept"
	ActionReject  ResponseAction = "reject"
	ActionCounter ResponseAction = "counter"
)

// ResponseInput answers a bid. Counter is required for ActionCounter.
type ResponseInput struct {
	ResponderUID  string
	ResponderName string
	Action        ResponseAction
	Counter       *BidInput
}

// BuyNowInput closes a deal at the listed price.
type BuyNowInput struct {
	BuyerUID  string
	BuyerName string
	Volume    float64
	Delivery  models.Delivery
}

// MessageInput posts a chat message into a deal room.
type MessageInput struct {
	SenderUID  string
	SenderName string
	SenderRole models.BidderRole
	Text       string
}

// BidResult is the outcome of SubmitBid. An auto-rejected bid is not an error.
type BidResult struct {
	Deal           *models.Deal           `json:"deal"`
	Bid            models.Bid             `json:"bid"`
	AutoRejected   bool                   `json:"auto_rejected"`
	FairPriceRange *models.FairPriceRange `json:"fair_price_range,omitempty"`
}

// ResponseResult is the outcome of RespondToBid.
type ResponseResult struct {
	Deal        *models.Deal        `json:"deal"`
	Bid         models.Bid          `json:"bid"`
	Counter     *BidResult          `json:"counter,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// AgreementResult is the outcome of BuyNow.
type AgreementResult struct {
	Deal        *models.Deal        `json:"deal"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// Service runs the deal room state machine on top of a Store.
type Service struct {
	store       Store
	listings    ListingReader
	finalizer   Finalizer
	publisher   Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
	maxAttempts int
}

// NewService wires a deal room service. finalizer and publisher may be nil.
func NewService(store Store, listings ListingReader, finalizer Finalizer, publisher Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		listings:    listings,
		finalizer:   finalizer,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		maxAttempts: defaultMaxAttempts,
	}
}

// CreateDealRoom opens a negotiation on a listing. Complexity and the
// fair-price band are computed here once and never recomputed.
func (s *Service) CreateDealRoom(ctx context.Context, in CreateDealInput) (*models.Deal, error) {
	listing, err := s.listings.FindListing(ctx, in.ListingID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrListingNotFound, in.ListingID)
		}
		return nil, fmt.Errorf("load listing %s: %w", in.ListingID, err)
	}

	catalog, err := s.listings.ListByFeedstock(ctx, listing.Feedstock)
	if err != nil {
		return nil, fmt.Errorf("load comparables for %s: %w", listing.Feedstock, err)
	}

	complexity := pricing.ClassifyDeal(*listing)
	now := s.clock()

	deal := &models.Deal{
		ID:                  s.newID(),
		ListingID:           listing.ID,
		ProducerUID:         listing.ProducerUID,
		ProducerName:        listing.ProducerName,
		BuyerUID:            in.BuyerUID,
		BuyerName:           in.BuyerName,
		Feedstock:           listing.Feedstock,
		ListedPricePerTonne: listing.PricePerTonne,
		AvailableTonnes:     listing.AvailableTonnes,
		MinOrderTonnes:      listing.MinOrderTonnes,
		HardFloor:           listing.HardFloor,
		Complexity:          complexity,
		FairPriceRange:      pricing.EstimateFairPrice(*listing, catalog),
		Status:              models.DealOpen,
		MaxRounds:           complexity.MaxRounds,
		Bids:                []models.Bid{},
		ExpiryDate:          now.AddDate(0, 0, complexity.ExpiryDays),
		CreatedAt:           now,
		UpdatedAt:           now,
		Version:             1,
	}

	if err := s.store.InsertDeal(ctx, deal); err != nil {
		return nil, fmt.Errorf("insert deal: %w", err)
	}

	s.metrics.IncDealsCreated()
	s.logger.Info("deal room opened",
		zap.String("deal_id", deal.ID),
		zap.String("listing_id", deal.ListingID),
		zap.String("bracket", string(complexity.Bracket)),
		zap.Int("max_rounds", deal.MaxRounds))

	return deal, nil
}

// GetDeal returns the current state of a deal.
func (s *Service) GetDeal(ctx context.Context, dealID string) (*models.Deal, error) {
	return s.loadDeal(ctx, dealID)
}

// SubmitBid records an opening bid on an open deal.
func (s *Service) SubmitBid(ctx context.Context, dealID string, in BidInput) (*BidResult, error) {
	return s.negotiate(ctx, dealID, models.NegotiationAction{
		Kind:          models.ActionBid,
		BidderUID:     in.BidderUID,
		BidderName:    in.BidderName,
		BidderRole:    in.BidderRole,
		Volume:        in.Volume,
		PricePerTonne: in.PricePerTonne,
		Delivery:      in.Delivery,
		Notes:         in.Notes,
	})
}

func (s *Service) negotiate(ctx context.Context, dealID string, action models.NegotiationAction) (*BidResult, error) {
	bidID := s.newID()
	var bid models.Bid

	deal, err := s.mutate(ctx, dealID, func(deal *models.Deal, now time.Time) error {
		var err error
		bid, err = applyAction(deal, action, bidID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncBid(string(bid.Status))
	autoRejected := bid.Status == models.BidAutoRejected
	if autoRejected {
		s.logger.Info("bid auto-rejected below floor", zap.String("deal_id", dealID), zap.String("bid_id", bid.ID))
	}

	result := &BidResult{Deal: deal, Bid: bid, AutoRejected: autoRejected}
	if autoRejected {
		result.FairPriceRange = deal.FairPriceRange
	}
	return result, nil
}

// RespondToBid accepts, rejects or counters a pending bid.
func (s *Service) RespondToBid(ctx context.Context, dealID, bidID string, in ResponseInput) (*ResponseResult, error) {
	switch in.Action {
	case ActionAccept:
		var bid models.Bid
		deal, err := s.mutate(ctx, dealID, func(deal *models.Deal, now time.Time) error {
			var err error
			bid, err = acceptBid(deal, bidID, in.ResponderUID, now)
			return err
		})
		if err != nil {
			return nil, err
		}
		s.metrics.IncAgreement("bid")
		s.logger.Info("bid accepted", zap.String("deal_id", dealID), zap.String("bid_id", bidID))
		tx := s.finalize(ctx, deal)
		return &ResponseResult{Deal: deal, Bid: bid, Transaction: tx}, nil

	case ActionReject:
		var bid models.Bid
		deal, err := s.mutate(ctx, dealID, func(deal *models.Deal, _ time.Time) error {
			var err error
			bid, err = rejectBid(deal, bidID, in.ResponderUID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if deal.Status == models.DealExpired {
			s.logger.Info("deal expired after final rejection", zap.String("deal_id", dealID))
		}
		return &ResponseResult{Deal: deal, Bid: bid}, nil

	case ActionCounter:
		if in.Counter == nil {
			return nil, fmt.Errorf("%w: counter terms required", ErrInvalidAction)
		}
		counter, err := s.negotiate(ctx, dealID, models.NegotiationAction{
			Kind:          models.ActionCounter,
			CounterTo:     bidID,
			BidderUID:     in.ResponderUID,
			BidderName:    in.ResponderName,
			BidderRole:    in.Counter.BidderRole,
			Volume:        in.Counter.Volume,
			PricePerTonne: in.Counter.PricePerTonne,
			Delivery:      in.Counter.Delivery,
			Notes:         in.Counter.Notes,
		})
		if err != nil {
			return nil, err
		}
		countered := counter.Deal.FindBid(bidID)
		if countered == nil {
			return nil, fmt.Errorf("%w: %s", ErrBidNotFound, bidID)
		}
		return &ResponseResult{Deal: counter.Deal, Bid: *countered, Counter: counter}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, in.Action)
	}
}

// BuyNow agrees the deal at the listed price, bypassing the bidding rounds.
// Unlike the bidding path it does not look at rounds, but it still requires
// the deal to be open.
func (s *Service) BuyNow(ctx context.Context, dealID string, in BuyNowInput) (*AgreementResult, error) {
	deal, err := s.mutate(ctx, dealID, func(deal *models.Deal, now time.Time) error {
		return agreeBuyNow(deal, in.Volume, in.Delivery, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAgreement("buy_now")
	s.logger.Info("deal agreed via buy now", zap.String("deal_id", dealID), zap.Float64("volume", in.Volume))
	tx := s.finalize(ctx, deal)
	return &AgreementResult{Deal: deal, Transaction: tx}, nil
}

// RequestExtension asks the counterpart for the one-off expiry extension.
func (s *Service) RequestExtension(ctx context.Context, dealID, requesterUID string) (*models.Deal, error) {
	return s.mutate(ctx, dealID, func(deal *models.Deal, _ time.Time) error {
		return requestExtension(deal, requesterUID)
	})
}

// RespondToExtension grants or declines a pending extension request.
func (s *Service) RespondToExtension(ctx context.Context, dealID, responderUID string, accept bool) (*models.Deal, error) {
	return s.mutate(ctx, dealID, func(deal *models.Deal, _ time.Time) error {
		return respondToExtension(deal, responderUID, accept)
	})
}

// CancelDeal closes an open deal without agreement.
func (s *Service) CancelDeal(ctx context.Context, dealID, actorUID string) (*models.Deal, error) {
	deal, err := s.mutate(ctx, dealID, func(deal *models.Deal, _ time.Time) error {
		return cancelDeal(deal)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("deal cancelled", zap.String("deal_id", dealID), zap.String("actor", actorUID))
	return deal, nil
}

// PostMessage appends a chat message to a deal room.
func (s *Service) PostMessage(ctx context.Context, dealID string, in MessageInput) (*models.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	deal, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	role := in.SenderRole
	if role == "" {
		role = deal.RoleOf(in.SenderUID)
	}

	msg := &models.Message{
		ID:         s.newID(),
		DealID:     dealID,
		SenderUID:  in.SenderUID,
		SenderName: in.SenderName,
		SenderRole: role,
		Text:       text,
		Timestamp:  s.clock(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	s.publish(ctx, models.DealEvent{
		Type:    models.EventMessagePosted,
		DealID:  dealID,
		Version: deal.Version,
		Message: msg,
		At:      msg.Timestamp,
	})
	return msg, nil
}

// ListMessages returns the chat history ordered by timestamp.
func (s *Service) ListMessages(ctx context.Context, dealID string) ([]models.Message, error) {
	if _, err := s.loadDeal(ctx, dealID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Snapshot returns the deal together with its chat history.
func (s *Service) Snapshot(ctx context.Context, dealID string) (*models.DealSnapshot, error) {
	deal, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &models.DealSnapshot{Deal: deal, Messages: msgs}, nil
}

// ExpireLapsed moves open deals past their expiry date to Expired and
// returns how many were expired.
func (s *Service) ExpireLapsed(ctx context.Context) (int, error) {
	deals, err := s.store.ListLapsedDeals(ctx, s.clock(), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list lapsed deals: %w", err)
	}

	var expired int
	var firstErr error
	for _, d := range deals {
		_, err := s.mutate(ctx, d.ID, func(*models.Deal, time.Time) error { return errNotLapsed })
		switch {
		case errors.Is(err, ErrDealExpired):
			expired++
		case errors.Is(err, errNotLapsed), errors.Is(err, ErrDealNotFound):
		case err != nil:
			s.logger.Warn("failed to expire deal", zap.String("deal_id", d.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return expired, firstErr
}

var errNotLapsed = errors.New("deal not lapsed")

// FinalizeAgreed creates the missing transactions of agreed deals and
// returns how many were finalized.
func (s *Service) FinalizeAgreed(ctx context.Context) (int, error) {
	if s.finalizer == nil {
		return 0, nil
	}
	deals, err := s.store.ListUnfinalizedDeals(ctx, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unfinalized deals: %w", err)
	}

	var finalized int
	for i := range deals {
		if tx := s.finalize(ctx, &deals[i]); tx != nil {
			finalized++
		}
	}
	return finalized, nil
}

// mutate loads the deal, applies fn and writes the result guarded by the
// version that was read. Conflicting writes are retried from a fresh read.
// An open deal past its expiry date is expired instead of calling fn.
func (s *Service) mutate(ctx context.Context, dealID string, fn func(deal *models.Deal, now time.Time) error) (*models.Deal, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		deal, err := s.loadDeal(ctx, dealID)
		if err != nil {
			return nil, err
		}
		now := s.clock()

		if deal.IsLapsed(now) {
			deal.Status = models.DealExpired
			if err := s.write(ctx, deal, now); err != nil {
				if errors.Is(err, models.ErrConflict) {
					continue
				}
				return nil, err
			}
			s.logger.Info("deal expired", zap.String("deal_id", dealID), zap.Time("expiry_date", deal.ExpiryDate))
			return nil, ErrDealExpired
		}

		if err := fn(deal, now); err != nil {
			return nil, err
		}

		if err := s.write(ctx, deal, now); err != nil {
			if errors.Is(err, models.ErrConflict) {
				s.logger.Debug("deal write conflict, retrying", zap.String("deal_id", dealID), zap.Int("attempt", attempt))
				continue
			}
			return nil, err
		}
		return deal, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrConcurrentUpdate, dealID)
}

func (s *Service) write(ctx context.Context, deal *models.Deal, now time.Time) error {
	expected := deal.Version
	deal.Version = expected + 1
	deal.UpdatedAt = now

	if err := s.store.ReplaceDeal(ctx, deal, expected); err != nil {
		deal.Version = expected
		if errors.Is(err, models.ErrConflict) {
			return err
		}
		return fmt.Errorf("update deal %s: %w", deal.ID, err)
	}

	s.publish(ctx, models.DealEvent{
		Type:    models.EventDealUpdated,
		DealID:  deal.ID,
		Version: deal.Version,
		Deal:    deal,
		At:      now,
	})
	return nil
}

// finalize records the transaction of an agreed deal. Failures are logged and
// left for FinalizeAgreed; the deal stays Agreed either way.
func (s *Service) finalize(ctx context.Context, deal *models.Deal) *models.Transaction {
	if s.finalizer == nil {
		return nil
	}

	tx, err := s.finalizer.Finalize(ctx, deal)
	if err != nil {
		s.metrics.IncFinalizeFailure("store")
		s.logger.Error("failed to finalize agreed deal", zap.String("deal_id", deal.ID), zap.Error(err))
		return nil
	}

	if deal.TransactionID != tx.ID {
		if err := s.store.MarkFinalized(ctx, deal.ID, tx.ID); err != nil {
			s.logger.Warn("failed to link transaction to deal", zap.String("deal_id", deal.ID), zap.String("transaction_id", tx.ID), zap.Error(err))
		} else {
			deal.TransactionID = tx.ID
			deal.Version++
		}
	}
	return tx
}

func (s *Service) publish(ctx context.Context, event models.DealEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish deal event", zap.String("deal_id", event.DealID), zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (s *Service) loadDeal(ctx context.Context, dealID string) (*models.Deal, error) {
	deal, err := s.store.FindDeal(ctx, dealID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDealNotFound, dealID)
		}
		return nil, fmt.Errorf("load deal %s: %w", dealID, err)
	}
	return deal, nil
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

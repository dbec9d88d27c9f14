package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotParty            = errors.New("user is not a party to the transaction")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)

// Store applies confirmation updates atomically and returns the updated record.
type Store interface {
	FindTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ConfirmParty(ctx context.Context, id string, role models.BidderRole, counterpartRating *float64) (*models.Transaction, error)
	// MarkCompleted moves an Agreed transaction to Completed. It returns the
	// stored record unchanged when the transaction is already Completed.
	MarkCompleted(ctx context.Context, id string, at time.Time) (*models.Transaction, error)
}

// VerificationRefresher recomputes a user's verification.
type VerificationRefresher interface {
	Refresh(ctx context.Context, uid string) (models.VerificationStats, error)
}

// Service records delivery confirmations and ratings.
type Service struct {
	store    Store
	verifier VerificationRefresher
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store Store, verifier VerificationRefresher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ConfirmDelivery records that partyUID confirms delivery, with an optional
// rating for the other party. Once both sides have confirmed, the transaction
// is Completed and both parties are re-verified.
func (s *Service) ConfirmDelivery(ctx context.Context, transactionID, partyUID string, rating *float64) (*models.Transaction, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, ErrInvalidRating
	}

	tx, err := s.store.FindTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	role, ok := tx.PartyRole(partyUID)
	if !ok {
		return nil, ErrNotParty
	}

	tx, err = s.store.ConfirmParty(ctx, transactionID, role, rating)
	if err != nil {
		return nil, fmt.Errorf("failed to record confirmation: %w", err)
	}
	s.logger.Info("delivery confirmed",
		zap.String("transaction_id", transactionID),
		zap.String("role", string(role)))

	if !tx.ConfirmedByBuyer || !tx.ConfirmedByProducer || tx.Status == models.TransactionCompleted {
		return tx, nil
	}

	tx, err = s.store.MarkCompleted(ctx, transactionID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to complete transaction: %w", err)
	}
	s.logger.Info("transaction completed", zap.String("transaction_id", transactionID))

	s.refresh(ctx, tx.BuyerUID)
	s.refresh(ctx, tx.ProducerUID)
	return tx, nil
}

func (s *Service) refresh(ctx context.Context, uid string) {
	if s.verifier == nil || uid == "" {
		return
	}
	if _, err := s.verifier.Refresh(ctx, uid); err != nil {
		s.logger.Warn("failed to refresh verification", zap.String("uid", uid), zap.Error(err))
	}
}

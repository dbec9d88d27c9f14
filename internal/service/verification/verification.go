package verification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

const (
	minCompletedTransactions = 3
	minConfirmationRate      = 0.9
	minAverageRating         = 4.0
)

const (
	ReasonTooFewTransactions = "Minimum 3 completed transactions required"
	ReasonVerified           = "All conditions met"
	ReasonLowConfirmation    = "Delivery confirmation rate below 90%"
	ReasonLowRating          = "Average rating below 4.0"
)

// TransactionReader lists the completed transactions a user took part in.
type TransactionReader interface {
	ListCompletedByParty(ctx context.Context, uid string) ([]models.Transaction, error)
}

// UserStore stores the verification summary on a user record.
type UserStore interface {
	UpdateVerification(ctx context.Context, uid string, stats models.VerificationStats) error
}

// Service recomputes a user's verification from their transaction history.
type Service struct {
	transactions TransactionReader
	users        UserStore
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(transactions TransactionReader, users UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		transactions: transactions,
		users:        users,
		logger:       logger,
		now:          time.Now,
	}
}

// Refresh recomputes and stores the verification of uid. It is safe to call
// any number of times.
func (s *Service) Refresh(ctx context.Context, uid string) (models.VerificationStats, error) {
	txs, err := s.transactions.ListCompletedByParty(ctx, uid)
	if err != nil {
		return models.VerificationStats{}, fmt.Errorf("failed to list completed transactions: %w", err)
	}

	stats := Evaluate(uid, txs)
	stats.LastChecked = s.now().UTC()

	if err := s.users.UpdateVerification(ctx, uid, stats); err != nil {
		return models.VerificationStats{}, fmt.Errorf("failed to store verification: %w", err)
	}

	s.logger.Info("verification refreshed",
		zap.String("uid", uid),
		zap.Bool("verified", stats.Verified),
		zap.Int("transactions", stats.TotalTransactions))
	return stats, nil
}

// Evaluate computes the verification of uid from txs. Transactions that are
// not Completed or that uid is not a party to are ignored.
func Evaluate(uid string, txs []models.Transaction) models.VerificationStats {
	var total, confirmed, rated int
	var ratingSum float64

	for _, tx := range txs {
		if tx.Status != models.TransactionCompleted {
			continue
		}
		role, ok := tx.PartyRole(uid)
		if !ok {
			continue
		}
		total++

		var received *float64
		switch role {
		case models.RoleBuyer:
			if tx.ConfirmedByBuyer {
				confirmed++
			}
			received = tx.BuyerRating
		case models.RoleProducer:
			if tx.ConfirmedByProducer {
				confirmed++
			}
			received = tx.ProducerRating
		}
		if received != nil {
			rated++
			ratingSum += *received
		}
	}

	stats := models.VerificationStats{TotalTransactions: total}
	if total < minCompletedTransactions {
		stats.Reason = ReasonTooFewTransactions
		return stats
	}

	stats.ConfirmationRate = float64(confirmed) / float64(total)
	if rated > 0 {
		stats.AverageRating = ratingSum / float64(rated)
	}

	switch {
	case stats.ConfirmationRate < minConfirmationRate:
		stats.Reason = ReasonLowConfirmation
	case stats.AverageRating < minAverageRating:
		stats.Reason = ReasonLowRating
	default:
		stats.Verified = true
		stats.Reason = ReasonVerified
	}
	return stats
}

package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

func rating(v float64) *float64 { return &v }

func completedAsBuyer(confirmed bool, received *float64) models.Transaction {
	return models.Transaction{
		BuyerUID:         "u1",
		ProducerUID:      "p1",
		Status:           models.TransactionCompleted,
		ConfirmedByBuyer: confirmed,
		BuyerRating:      received,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		txs          []models.Transaction
		wantVerified bool
		wantReason   string
		wantRate     float64
		wantRating   float64
	}{
		{
			name:       "two completed transactions",
			txs:        []models.Transaction{completedAsBuyer(true, rating(5)), completedAsBuyer(true, rating(5))},
			wantReason: ReasonTooFewTransactions,
		},
		{
			name: "full confirmation and rating exactly four",
			txs: []models.Transaction{
				completedAsBuyer(true, rating(4)),
				completedAsBuyer(true, rating(4)),
				completedAsBuyer(true, rating(4)),
			},
			wantVerified: true,
			wantReason:   ReasonVerified,
			wantRate:     1,
			wantRating:   4,
		},
		{
			name: "low confirmation rate",
			txs: []models.Transaction{
				completedAsBuyer(true, rating(5)),
				completedAsBuyer(false, rating(5)),
				completedAsBuyer(true, rating(5)),
			},
			wantReason: ReasonLowConfirmation,
			wantRate:   2.0 / 3.0,
			wantRating: 5,
		},
		{
			name: "low average rating",
			txs: []models.Transaction{
				completedAsBuyer(true, rating(3)),
				completedAsBuyer(true, rating(4)),
				completedAsBuyer(true, rating(4)),
			},
			wantReason: ReasonLowRating,
			wantRate:   1,
			wantRating: 11.0 / 3.0,
		},
		{
			name: "no ratings counts as zero",
			txs: []models.Transaction{
				completedAsBuyer(true, nil),
				completedAsBuyer(true, nil),
				completedAsBuyer(true, nil),
			},
			wantReason: ReasonLowRating,
			wantRate:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Evaluate("u1", tt.txs)
			assert.Equal(t, tt.wantVerified, stats.Verified)
			assert.Equal(t, tt.wantReason, stats.Reason)
			assert.InDelta(t, tt.wantRate, stats.ConfirmationRate, 1e-9)
			assert.InDelta(t, tt.wantRating, stats.AverageRating, 1e-9)
		})
	}
}

func TestEvaluateUsesThePartysOwnSide(t *testing.T) {
	txs := []models.Transaction{
		{ProducerUID: "u1", BuyerUID: "b", Status: models.TransactionCompleted, ConfirmedByProducer: true, ProducerRating: rating(5), BuyerRating: rating(1)},
		{ProducerUID: "u1", BuyerUID: "b", Status: models.TransactionCompleted, ConfirmedByProducer: true, ConfirmedByBuyer: false, ProducerRating: rating(4)},
		{ProducerUID: "u1", BuyerUID: "b", Status: models.TransactionCompleted, ConfirmedByProducer: true, ProducerRating: rating(4.5)},
		{ProducerUID: "u1", BuyerUID: "b", Status: models.TransactionAgreed},
		{ProducerUID: "x", BuyerUID: "y", Status: models.TransactionCompleted},
	}

	stats := Evaluate("u1", txs)
	assert.True(t, stats.Verified)
	assert.Equal(t, 3, stats.TotalTransactions)
	assert.InDelta(t, 4.5, stats.AverageRating, 1e-9)
}

type stubReader struct {
	txs []models.Transaction
	err error
}

func (s stubReader) ListCompletedByParty(context.Context, string) ([]models.Transaction, error) {
	return s.txs, s.err
}

type recordingUsers struct {
	stored map[string]models.VerificationStats
}

func (r *recordingUsers) UpdateVerification(_ context.Context, uid string, stats models.VerificationStats) error {
	r.stored[uid] = stats
	return nil
}

func TestRefreshStoresStats(t *testing.T) {
	users := &recordingUsers{stored: map[string]models.VerificationStats{}}
	txs := []models.Transaction{
		completedAsBuyer(true, rating(5)),
		completedAsBuyer(true, rating(5)),
		completedAsBuyer(true, rating(5)),
	}
	svc := NewService(stubReader{txs: txs}, users, nil)
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stats, err := svc.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, stats.Verified)
	assert.Equal(t, now, stats.LastChecked)
	assert.Equal(t, stats, users.stored["u1"])

	again, err := svc.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, stats, again)
}

func TestRefreshPropagatesReadErrors(t *testing.T) {
	boom := errors.New("timeout")
	users := &recordingUsers{stored: map[string]models.VerificationStats{}}
	svc := NewService(stubReader{err: boom}, users, nil)

	_, err := svc.Refresh(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, users.stored)
}

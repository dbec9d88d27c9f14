package transactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

type memoryStore struct {
	txs map[string]*models.Transaction
}

func (m *memoryStore) FindTransaction(_ context.Context, id string) (*models.Transaction, error) {
	tx, ok := m.txs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *memoryStore) ConfirmParty(_ context.Context, id string, role models.BidderRole, rating *float64) (*models.Transaction, error) {
	tx := m.txs[id]
	switch role {
	case models.RoleBuyer:
		tx.ConfirmedByBuyer = true
		if rating != nil {
			tx.ProducerRating = rating
		}
	case models.RoleProducer:
		tx.ConfirmedByProducer = true
		if rating != nil {
			tx.BuyerRating = rating
		}
	}
	cp := *tx
	return &cp, nil
}

func (m *memoryStore) MarkCompleted(_ context.Context, id string, at time.Time) (*models.Transaction, error) {
	tx := m.txs[id]
	if tx.Status != models.TransactionCompleted {
		tx.Status = models.TransactionCompleted
		tx.CompletedAt = &at
	}
	cp := *tx
	return &cp, nil
}

type recordingVerifier struct {
	uids []string
	err  error
}

func (r *recordingVerifier) Refresh(_ context.Context, uid string) (models.VerificationStats, error) {
	r.uids = append(r.uids, uid)
	return models.VerificationStats{}, r.err
}

func newStore() *memoryStore {
	return &memoryStore{txs: map[string]*models.Transaction{
		"tx-1": {ID: "tx-1", BuyerUID: "buyer-1", ProducerUID: "producer-1", Status: models.TransactionAgreed},
	}}
}

func TestConfirmDeliveryBothPartiesCompletes(t *testing.T) {
	store := newStore()
	verifier := &recordingVerifier{}
	svc := NewService(store, verifier, nil)
	ctx := context.Background()
	five, four := 5.0, 4.0

	tx, err := svc.ConfirmDelivery(ctx, "tx-1", "buyer-1", &five)
	require.NoError(t, err)
	assert.True(t, tx.ConfirmedByBuyer)
	assert.Equal(t, models.TransactionAgreed, tx.Status)
	require.NotNil(t, tx.ProducerRating)
	assert.Equal(t, 5.0, *tx.ProducerRating)
	assert.Empty(t, verifier.uids)

	tx, err = svc.ConfirmDelivery(ctx, "tx-1", "producer-1", &four)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, tx.Status)
	assert.NotNil(t, tx.CompletedAt)
	require.NotNil(t, tx.BuyerRating)
	assert.Equal(t, 4.0, *tx.BuyerRating)
	assert.ElementsMatch(t, []string{"buyer-1", "producer-1"}, verifier.uids)
}

func TestConfirmDeliveryVerificationFailureIsSwallowed(t *testing.T) {
	store := newStore()
	verifier := &recordingVerifier{err: errors.New("users unavailable")}
	svc := NewService(store, verifier, nil)
	ctx := context.Background()

	_, err := svc.ConfirmDelivery(ctx, "tx-1", "buyer-1", nil)
	require.NoError(t, err)
	tx, err := svc.ConfirmDelivery(ctx, "tx-1", "producer-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, tx.Status)
}

func TestConfirmDeliveryValidation(t *testing.T) {
	svc := NewService(newStore(), nil, nil)
	ctx := context.Background()
	bad := 6.0

	_, err := svc.ConfirmDelivery(ctx, "tx-1", "buyer-1", &bad)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.ConfirmDelivery(ctx, "tx-1", "stranger", nil)
	assert.ErrorIs(t, err, ErrNotParty)

	_, err = svc.ConfirmDelivery(ctx, "missing", "buyer-1", nil)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

package mongodb

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

func duplicateKeyError(key string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: dealroom.transactions index: deal_id_1 dup key: { deal_id: \"%s\" }", key),
	}}}
}

func TestInsertError(t *testing.T) {
	assert.ErrorIs(t, insertError("transaction", duplicateKeyError("deal-1")), models.ErrDuplicate)
	assert.ErrorIs(t, insertError("deal", mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}}}), models.ErrDuplicate)

	err := insertError("deal", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121}}})
	assert.NotErrorIs(t, err, models.ErrDuplicate)
	assert.ErrorContains(t, err, "failed to insert deal")

	cause := errors.New("connection reset")
	err = insertError("transaction", cause)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, models.ErrDuplicate)
}

func TestDealFilters(t *testing.T) {
	before := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.M{"_id": "deal-1", "version": int64(4)}, versionFilter("deal-1", 4))
	assert.Equal(t, bson.M{
		"status":      models.DealOpen,
		"expiry_date": bson.M{"$lt": before},
	}, lapsedDealsFilter(before))

	filter := unfinalizedDealsFilter()
	assert.Equal(t, models.DealAgreed, filter["status"])
	assert.Len(t, filter["$or"], 2)
}

func TestConfirmationUpdate(t *testing.T) {
	rating := 4.5

	set, err := confirmationUpdate(models.RoleBuyer, &rating)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"confirmed_by_buyer": true, "producer_rating": 4.5}, set)

	set, err = confirmationUpdate(models.RoleProducer, nil)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"confirmed_by_producer": true}, set)

	_, err = confirmationUpdate("", nil)
	assert.Error(t, err)
}

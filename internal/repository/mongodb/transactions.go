package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

// InsertTransaction stores a transaction. A second transaction for the same
// deal is refused with models.ErrDuplicate.
func (r *MongoDBRepository) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	if _, err := r.collection(transactionsCollection).InsertOne(ctx, tx); err != nil {
		return insertError("transaction", err)
	}
	return nil
}

// FindByDealID loads the transaction of a deal.
func (r *MongoDBRepository) FindByDealID(ctx context.Context, dealID string) (*models.Transaction, error) {
	return r.findTransaction(ctx, bson.M{"deal_id": dealID})
}

// FindTransaction loads a transaction by id.
func (r *MongoDBRepository) FindTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return r.findTransaction(ctx, bson.M{"_id": id})
}

// ConfirmParty sets the confirmation flag of role and, when given, the
// rating of the other party in one update.
func (r *MongoDBRepository) ConfirmParty(ctx context.Context, id string, role models.BidderRole, counterpartRating *float64) (*models.Transaction, error) {
	set, err := confirmationUpdate(role, counterpartRating)
	if err != nil {
		return nil, err
	}
	return r.updateTransaction(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// MarkCompleted moves an Agreed transaction to Completed.
func (r *MongoDBRepository) MarkCompleted(ctx context.Context, id string, at time.Time) (*models.Transaction, error) {
	tx, err := r.updateTransaction(ctx,
		bson.M{"_id": id, "status": models.TransactionAgreed},
		bson.M{"$set": bson.M{"status": models.TransactionCompleted, "completed_at": at}})
	if errors.Is(err, models.ErrNotFound) {
		return r.FindTransaction(ctx, id)
	}
	return tx, err
}

// ListCompletedByParty returns the completed transactions where uid is buyer or producer.
func (r *MongoDBRepository) ListCompletedByParty(ctx context.Context, uid string) ([]models.Transaction, error) {
	filter := bson.M{
		"status": models.TransactionCompleted,
		"$or":    bson.A{bson.M{"buyer_uid": uid}, bson.M{"producer_uid": uid}},
	}
	cursor, err := r.collection(transactionsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	var txs []models.Transaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txs, nil
}

func (r *MongoDBRepository) findTransaction(ctx context.Context, filter bson.M) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection(transactionsCollection).FindOne(ctx, filter).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tx, nil
}

func (r *MongoDBRepository) updateTransaction(ctx context.Context, filter, update bson.M) (*models.Transaction, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var tx models.Transaction
	err := r.collection(transactionsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return &tx, nil
}

func confirmationUpdate(role models.BidderRole, counterpartRating *float64) (bson.M, error) {
	set := bson.M{}
	switch role {
	case models.RoleBuyer:
		set["confirmed_by_buyer"] = true
		if counterpartRating != nil {
			set["producer_rating"] = *counterpartRating
		}
	case models.RoleProducer:
		set["confirmed_by_producer"] = true
		if counterpartRating != nil {
			set["buyer_rating"] = *counterpartRating
		}
	default:
		return nil, fmt.Errorf("unknown party role %q", role)
	}
	return set, nil
}

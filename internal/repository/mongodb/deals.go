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

// InsertDeal stores a new deal.
func (r *MongoDBRepository) InsertDeal(ctx context.Context, deal *models.Deal) error {
	if _, err := r.collection(dealsCollection).InsertOne(ctx, deal); err != nil {
		return insertError("deal", err)
	}
	return nil
}

// FindDeal loads a deal by id.
func (r *MongoDBRepository) FindDeal(ctx context.Context, id string) (*models.Deal, error) {
	var deal models.Deal
	err := r.collection(dealsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&deal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find deal: %w", err)
	}
	return &deal, nil
}

// ReplaceDeal writes deal only if the stored version still equals expectedVersion.
func (r *MongoDBRepository) ReplaceDeal(ctx context.Context, deal *models.Deal, expectedVersion int64) error {
	coll := r.collection(dealsCollection)
	res, err := coll.ReplaceOne(ctx, versionFilter(deal.ID, expectedVersion), deal)
	if err != nil {
		return fmt.Errorf("failed to replace deal: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": deal.ID})
	if err != nil {
		return fmt.Errorf("failed to check deal: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return models.ErrConflict
}

// MarkFinalized links a transaction to its deal and bumps the version.
func (r *MongoDBRepository) MarkFinalized(ctx context.Context, dealID, transactionID string) error {
	res, err := r.collection(dealsCollection).UpdateOne(ctx,
		bson.M{"_id": dealID},
		bson.M{
			"$set": bson.M{"transaction_id": transactionID},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("failed to link transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListLapsedDeals returns open deals whose expiry date is before the given time.
func (r *MongoDBRepository) ListLapsedDeals(ctx context.Context, before time.Time, limit int) ([]models.Deal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expiry_date", Value: 1}}).SetLimit(int64(limit))
	return r.findDeals(ctx, lapsedDealsFilter(before), opts)
}

// ListUnfinalizedDeals returns agreed deals that have no transaction yet.
func (r *MongoDBRepository) ListUnfinalizedDeals(ctx context.Context, limit int) ([]models.Deal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}}).SetLimit(int64(limit))
	return r.findDeals(ctx, unfinalizedDealsFilter(), opts)
}

func (r *MongoDBRepository) findDeals(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Deal, error) {
	cursor, err := r.collection(dealsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	var deals []models.Deal
	if err := cursor.All(ctx, &deals); err != nil {
		return nil, fmt.Errorf("failed to decode deals: %w", err)
	}
	return deals, nil
}

func versionFilter(id string, version int64) bson.M {
	return bson.M{"_id": id, "version": version}
}

func lapsedDealsFilter(before time.Time) bson.M {
	return bson.M{
		"status":      models.DealOpen,
		"expiry_date": bson.M{"$lt": before},
	}
}

func unfinalizedDealsFilter() bson.M {
	return bson.M{
		"status": models.DealAgreed,
		"$or": bson.A{
			bson.M{"transaction_id": bson.M{"$exists": false}},
			bson.M{"transaction_id": ""},
		},
	}
}

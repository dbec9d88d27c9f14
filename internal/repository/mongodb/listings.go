package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

// FindListing loads a catalog entry.
func (r *MongoDBRepository) FindListing(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := r.collection(listingsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &listing, nil
}

// ListByFeedstock returns every listing of a feedstock.
func (r *MongoDBRepository) ListByFeedstock(ctx context.Context, feedstock string) ([]models.Listing, error) {
	cursor, err := r.collection(listingsCollection).Find(ctx, bson.M{"feedstock": feedstock})
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

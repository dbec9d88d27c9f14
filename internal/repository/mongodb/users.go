package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

// UpdateVerification writes the verification summary onto the user record,
// creating the record if needed.
func (r *MongoDBRepository) UpdateVerification(ctx context.Context, uid string, stats models.VerificationStats) error {
	update := bson.M{"$set": bson.M{
		"verified":           stats.Verified,
		"verification_stats": stats,
	}}
	_, err := r.collection(usersCollection).UpdateOne(ctx, bson.M{"_id": uid}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	return nil
}

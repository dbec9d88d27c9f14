package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dealroom/internal/domain/models"
)

// InsertMessage stores a chat message.
func (r *MongoDBRepository) InsertMessage(ctx context.Context, msg *models.Message) error {
	if _, err := r.collection(messagesCollection).InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns the messages of a deal in timestamp order.
func (r *MongoDBRepository) ListMessages(ctx context.Context, dealID string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection(messagesCollection).Find(ctx, bson.M{"deal_id": dealID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}

package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	dealsCollection        = "deals"
	messagesCollection     = "messages"
	listingsCollection     = "listings"
	transactionsCollection = "transactions"
	usersCollection        = "users"
)

// MongoDBRepository stores deal rooms, their messages, the listing catalog,
// transactions and user verification in MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// EnsureIndexes creates the indexes the repository relies on. The unique
// index on transactions.deal_id is what makes finalization effectively once.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		dealsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiry_date", Value: 1}}},
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "deal_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		listingsCollection: {
			{Keys: bson.D{{Key: "feedstock", Value: 1}}},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "deal_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "buyer_uid", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "producer_uid", Value: 1}, {Key: "status", Value: 1}}},
		},
	}

	for name, specs := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Ping checks the connection.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.db.Collection(name)
}

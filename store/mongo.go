package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contractvault/backend/config"
)

// Mongo wraps the database connection and hands out collection stores.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes the MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the query paths rely on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	contractIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "contractNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "contractorName", Value: 1}, {Key: "year", Value: 1}}},
		{Keys: bson.D{{Key: "operator", Value: 1}}},
		{Keys: bson.D{{Key: "isArchived", Value: 1}}},
	}
	if _, err := m.db.Collection("contracts").Indexes().CreateMany(ctx, contractIndexes); err != nil {
		return fmt.Errorf("failed to create contract indexes: %w", err)
	}

	mediaIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "contractId", Value: 1}}},
		{Keys: bson.D{{Key: "isDeleted", Value: 1}}},
		{Keys: bson.D{{Key: "uploadedBy", Value: 1}}},
	}
	if _, err := m.db.Collection("media").Indexes().CreateMany(ctx, mediaIndexes); err != nil {
		return fmt.Errorf("failed to create media indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.db.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	historyIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := m.db.Collection("searchhistory").Indexes().CreateMany(ctx, historyIndexes); err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}

	return nil
}

// Contracts returns the contract store.
func (m *Mongo) Contracts() ContractStore {
	return &contractStore{col: m.db.Collection("contracts")}
}

// Media returns the media store.
func (m *Mongo) Media() MediaStore {
	return &mediaStore{col: m.db.Collection("media")}
}

// Users returns the user store.
func (m *Mongo) Users() UserStore {
	return &userStore{col: m.db.Collection("users")}
}

// History returns the search-history store.
func (m *Mongo) History() HistoryStore {
	return &historyStore{col: m.db.Collection("searchhistory")}
}

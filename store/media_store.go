package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contractvault/backend/model"
)

type mediaStore struct {
	col *mongo.Collection
}

func (s *mediaStore) Insert(ctx context.Context, m *model.Media) error {
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	res, err := s.col.InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = id
	}
	return nil
}

func (s *mediaStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Media, error) {
	var m model.Media
	err := s.col.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	return &m, nil
}

func (s *mediaStore) FindByContract(ctx context.Context, contractID primitive.ObjectID) ([]model.Media, error) {
	return s.findMany(ctx, bson.M{"contractId": contractID, "isDeleted": false})
}

func (s *mediaStore) FindByContractIDs(ctx context.Context, contractIDs []primitive.ObjectID) ([]model.Media, error) {
	if len(contractIDs) == 0 {
		return nil, nil
	}
	return s.findMany(ctx, bson.M{"contractId": bson.M{"$in": contractIDs}, "isDeleted": false})
}

func (s *mediaStore) List(ctx context.Context, skip, limit int64) ([]model.Media, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.col.Find(ctx, bson.M{"isDeleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	var media []model.Media
	if err := cursor.All(ctx, &media); err != nil {
		return nil, fmt.Errorf("failed to decode media: %w", err)
	}
	return media, nil
}

func (s *mediaStore) Count(ctx context.Context) (int64, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"isDeleted": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return count, nil
}

func (s *mediaStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": now, "updatedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete media: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mediaStore) findMany(ctx context.Context, query bson.M) ([]model.Media, error) {
	cursor, err := s.col.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}

	var media []model.Media
	if err := cursor.All(ctx, &media); err != nil {
		return nil, fmt.Errorf("failed to decode media: %w", err)
	}
	return media, nil
}

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

type historyStore struct {
	col *mongo.Collection
}

func (s *historyStore) Insert(ctx context.Context, h *model.SearchHistory) error {
	h.CreatedAt = time.Now()
	if h.Tab == "" {
		h.Tab = "all"
	}

	res, err := s.col.InsertOne(ctx, h)
	if err != nil {
		return fmt.Errorf("failed to insert search history: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		h.ID = id
	}
	return nil
}

func (s *historyStore) FindByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]model.SearchHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}

	var history []model.SearchHistory
	if err := cursor.All(ctx, &history); err != nil {
		return nil, fmt.Errorf("failed to decode search history: %w", err)
	}
	return history, nil
}

func (s *historyStore) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count search history: %w", err)
	}
	return count, nil
}

func (s *historyStore) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete search history: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *historyStore) ClearByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to clear search history: %w", err)
	}
	return res.DeletedCount, nil
}

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

type userStore struct {
	col *mongo.Collection
}

func (s *userStore) Insert(ctx context.Context, u *model.User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := s.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

func (s *userStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.col.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return &u, nil
}

func (s *userStore) List(ctx context.Context, skip, limit int64) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var users []model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *userStore) Count(ctx context.Context) (int64, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (s *userStore) CountByRole(ctx context.Context, role string) (int64, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"role": role})
	if err != nil {
		return 0, fmt.Errorf("failed to count users by role: %w", err)
	}
	return count, nil
}

func (s *userStore) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("failed to count recent users: %w", err)
	}
	return count, nil
}

func (s *userStore) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) AddBookmark(ctx context.Context, userID, contractID primitive.ObjectID) error {
	return s.push(ctx, userID, "bookmarks", bson.M{
		"contractId":   contractID,
		"bookmarkedAt": time.Now(),
	})
}

func (s *userStore) RemoveBookmark(ctx context.Context, userID, contractID primitive.ObjectID) error {
	return s.pull(ctx, userID, "bookmarks", contractID)
}

func (s *userStore) ClearBookmarks(ctx context.Context, userID primitive.ObjectID) error {
	return s.clear(ctx, userID, "bookmarks")
}

func (s *userStore) AddArchivedContract(ctx context.Context, userID, contractID primitive.ObjectID) error {
	return s.push(ctx, userID, "archivedContracts", bson.M{
		"contractId": contractID,
		"archivedAt": time.Now(),
	})
}

func (s *userStore) RemoveArchivedContract(ctx context.Context, userID, contractID primitive.ObjectID) error {
	return s.pull(ctx, userID, "archivedContracts", contractID)
}

func (s *userStore) ClearArchivedContracts(ctx context.Context, userID primitive.ObjectID) error {
	return s.clear(ctx, userID, "archivedContracts")
}

func (s *userStore) ArchivedContractIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var u model.User
	err := s.col.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"archivedContracts": 1})).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archived contract ids: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(u.ArchivedContracts))
	for _, a := range u.ArchivedContracts {
		ids = append(ids, a.ContractID)
	}
	return ids, nil
}

func (s *userStore) PullContractRefs(ctx context.Context, contractIDs []primitive.ObjectID) error {
	if len(contractIDs) == 0 {
		return nil
	}

	_, err := s.col.UpdateMany(ctx, bson.M{}, bson.M{
		"$pull": bson.M{
			"bookmarks":         bson.M{"contractId": bson.M{"$in": contractIDs}},
			"archivedContracts": bson.M{"contractId": bson.M{"$in": contractIDs}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to remove contract references: %w", err)
	}
	return nil
}

// push appends an entry unless the contract is already in the array.
// A second add is a no-op, not an error.
func (s *userStore) push(ctx context.Context, userID primitive.ObjectID, field string, entry bson.M) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID, field + ".contractId": bson.M{"$ne": entry["contractId"]}},
		bson.M{"$push": bson.M{field: entry}},
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	return nil
}

func (s *userStore) pull(ctx context.Context, userID primitive.ObjectID, field string, contractID primitive.ObjectID) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{field: bson.M{"contractId": contractID}}},
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) clear(ctx context.Context, userID primitive.ObjectID, field string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{field: bson.A{}}},
	)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

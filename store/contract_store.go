package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contractvault/backend/model"
)

type contractStore struct {
	col *mongo.Collection
}

// buildContractQuery translates a ContractFilter into a bson document.
// Kept in one place so the REST search path and the streaming search
// path always produce identical queries.
func buildContractQuery(f ContractFilter) bson.M {
	query := bson.M{}

	if f.Archived != nil {
		query["isArchived"] = *f.Archived
	}
	if len(f.ExcludeIDs) > 0 {
		query["_id"] = bson.M{"$nin": f.ExcludeIDs}
	}
	if f.Operator != "" {
		query["operator"] = f.Operator
	}
	if f.ContractorName != "" {
		query["contractorName"] = bson.M{"$regex": regexp.QuoteMeta(f.ContractorName), "$options": "i"}
	}
	if f.Year != nil {
		query["year"] = *f.Year
	}
	if f.HasDocument != nil {
		query["hasDocument"] = *f.HasDocument
	}

	if f.RangeStart != nil && f.RangeEnd != nil {
		// Contract period overlaps the searched range.
		query["$and"] = bson.A{
			bson.M{"startDate": bson.M{"$lte": *f.RangeEnd}},
			bson.M{"endDate": bson.M{"$gte": *f.RangeStart}},
		}
	}

	if f.Text != "" {
		pattern := regexp.QuoteMeta(f.Text)
		query["$or"] = bson.A{
			bson.M{"contractTitle": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"contractorName": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"operator": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"contractNumber": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	return query
}

func (s *contractStore) Insert(ctx context.Context, c *model.Contract) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	res, err := s.col.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}

func (s *contractStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Contract, error) {
	var c model.Contract
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contract: %w", err)
	}
	return &c, nil
}

func (s *contractStore) FindByNumber(ctx context.Context, number string) (*model.Contract, error) {
	var c model.Contract
	err := s.col.FindOne(ctx, bson.M{"contractNumber": number}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contract by number: %w", err)
	}
	return &c, nil
}

func (s *contractStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Contract, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find contracts: %w", err)
	}

	var contracts []model.Contract
	if err := cursor.All(ctx, &contracts); err != nil {
		return nil, fmt.Errorf("failed to decode contracts: %w", err)
	}
	return contracts, nil
}

func (s *contractStore) Find(ctx context.Context, f ContractFilter) ([]model.Contract, error) {
	sortField := f.SortBy
	if sortField == "" {
		sortField = SortCreatedAt
	}

	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}})
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cursor, err := s.col.Find(ctx, buildContractQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}

	var contracts []model.Contract
	if err := cursor.All(ctx, &contracts); err != nil {
		return nil, fmt.Errorf("failed to decode contracts: %w", err)
	}
	return contracts, nil
}

func (s *contractStore) Count(ctx context.Context, f ContractFilter) (int64, error) {
	count, err := s.col.CountDocuments(ctx, buildContractQuery(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count contracts: %w", err)
	}
	return count, nil
}

func (s *contractStore) Update(ctx context.Context, id primitive.ObjectID, upd model.ContractUpdate) (*model.Contract, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Operator != nil {
		set["operator"] = *upd.Operator
	}
	if upd.ContractorName != nil {
		set["contractorName"] = *upd.ContractorName
	}
	if upd.ContractTitle != nil {
		set["contractTitle"] = *upd.ContractTitle
	}
	if upd.Year != nil {
		set["year"] = *upd.Year
	}
	if upd.ContractNumber != nil {
		set["contractNumber"] = *upd.ContractNumber
	}
	if upd.StartDate != nil {
		set["startDate"] = *upd.StartDate
	}
	if upd.EndDate != nil {
		set["endDate"] = *upd.EndDate
	}
	if upd.ContractValue != nil {
		set["contractValue"] = *upd.ContractValue
	}
	if upd.HasDocument != nil {
		set["hasDocument"] = *upd.HasDocument
	}

	var c model.Contract
	err := s.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}
	return &c, nil
}

func (s *contractStore) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool, by *primitive.ObjectID) error {
	var update bson.M
	if archived {
		update = bson.M{"$set": bson.M{
			"isArchived": true,
			"archivedAt": time.Now(),
			"archivedBy": by,
			"updatedAt":  time.Now(),
		}}
	} else {
		update = bson.M{
			"$set":   bson.M{"isArchived": false, "updatedAt": time.Now()},
			"$unset": bson.M{"archivedAt": "", "archivedBy": ""},
		}
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update archive state: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *contractStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *contractStore) DeleteArchived(ctx context.Context) ([]primitive.ObjectID, error) {
	cursor, err := s.col.Find(ctx, bson.M{"isArchived": true},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list archived contracts: %w", err)
	}

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode archived contracts: %w", err)
	}

	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, fmt.Errorf("failed to delete archived contracts: %w", err)
	}
	return ids, nil
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchHistory is an append-only record of a past search.
type SearchHistory struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	Query        string             `bson:"query" json:"query"`
	ResultsCount int                `bson:"resultsCount" json:"resultsCount"`
	Tab          string             `bson:"tab" json:"tab"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

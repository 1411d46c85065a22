package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contract represents one procurement/service contract record.
type Contract struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Operator       string              `bson:"operator" json:"operator"`
	ContractorName string              `bson:"contractorName" json:"contractorName"`
	ContractTitle  string              `bson:"contractTitle" json:"contractTitle"`
	Year           int                 `bson:"year" json:"year"`
	ContractNumber string              `bson:"contractNumber" json:"contractNumber"`
	StartDate      *time.Time          `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate        *time.Time          `bson:"endDate,omitempty" json:"endDate,omitempty"`
	ContractValue  string              `bson:"contractValue,omitempty" json:"contractValue,omitempty"`
	HasDocument    bool                `bson:"hasDocument" json:"hasDocument"`
	IsArchived     bool                `bson:"isArchived" json:"isArchived"`
	ArchivedAt     *time.Time          `bson:"archivedAt,omitempty" json:"archivedAt,omitempty"`
	ArchivedBy     *primitive.ObjectID `bson:"archivedBy,omitempty" json:"archivedBy,omitempty"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ContractUpdate carries a partial update; nil fields are left untouched.
type ContractUpdate struct {
	Operator       *string    `json:"operator"`
	ContractorName *string    `json:"contractorName"`
	ContractTitle  *string    `json:"contractTitle"`
	Year           *int       `json:"year"`
	ContractNumber *string    `json:"contractNumber"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	ContractValue  *string    `json:"contractValue"`
	HasDocument    *bool      `json:"hasDocument"`
}

// ContractWithMedia is a contract with its non-deleted media attached.
// ZipURL is set only when the contract has more than one media item.
type ContractWithMedia struct {
	Contract `bson:",inline"`
	Media    []Media `json:"media"`
	ZipURL   *string `json:"zipUrl"`
}

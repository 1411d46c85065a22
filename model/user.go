package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account with its bookmarks and personal archive.
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username          string             `bson:"username" json:"username"`
	Email             string             `bson:"email,omitempty" json:"email,omitempty"`
	Password          string             `bson:"password" json:"-"`
	FirstName         string             `bson:"firstname,omitempty" json:"firstname,omitempty"`
	LastName          string             `bson:"lastname,omitempty" json:"lastname,omitempty"`
	Role              string             `bson:"role" json:"role"`
	Bookmarks         []Bookmark         `bson:"bookmarks,omitempty" json:"bookmarks,omitempty"`
	ArchivedContracts []ArchivedContract `bson:"archivedContracts,omitempty" json:"archivedContracts,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Bookmark is one entry in a user's bookmark list, keyed by contract id.
type Bookmark struct {
	ContractID   primitive.ObjectID `bson:"contractId" json:"contractId"`
	BookmarkedAt time.Time          `bson:"bookmarkedAt" json:"bookmarkedAt"`
}

// ArchivedContract is one entry in a user's personal archive.
type ArchivedContract struct {
	ContractID primitive.ObjectID `bson:"contractId" json:"contractId"`
	ArchivedAt time.Time          `bson:"archivedAt" json:"archivedAt"`
}

// HasBookmark reports whether the contract is already bookmarked.
func (u *User) HasBookmark(contractID primitive.ObjectID) bool {
	for _, b := range u.Bookmarks {
		if b.ContractID == contractID {
			return true
		}
	}
	return false
}

// HasArchived reports whether the contract is in the user's personal archive.
func (u *User) HasArchived(contractID primitive.ObjectID) bool {
	for _, a := range u.ArchivedContracts {
		if a.ContractID == contractID {
			return true
		}
	}
	return false
}

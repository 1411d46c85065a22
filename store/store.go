// Package store provides MongoDB-backed persistence for contracts,
// media, users and search history.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint would be violated.
var ErrDuplicate = errors.New("duplicate record")

// Sort fields accepted by ContractFilter.
const (
	SortCreatedAt  = "createdAt"
	SortArchivedAt = "archivedAt"
)

// ContractFilter selects contracts. Zero values mean "no constraint".
// Text matches any of contractTitle, contractorName, operator and
// contractNumber as a case-insensitive substring. RangeStart/RangeEnd
// select contracts whose [startDate, endDate] interval overlaps the
// range (startDate <= RangeEnd AND endDate >= RangeStart).
type ContractFilter struct {
	Text           string
	RangeStart     *time.Time
	RangeEnd       *time.Time
	ExcludeIDs     []primitive.ObjectID
	Archived       *bool
	Operator       string
	ContractorName string
	Year           *int
	HasDocument    *bool
	Skip           int64
	Limit          int64
	SortBy         string // SortCreatedAt (default) or SortArchivedAt, newest first
}

// ContractStore persists contract records.
type ContractStore interface {
	Insert(ctx context.Context, c *model.Contract) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Contract, error)
	FindByNumber(ctx context.Context, number string) (*model.Contract, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Contract, error)
	Find(ctx context.Context, f ContractFilter) ([]model.Contract, error)
	Count(ctx context.Context, f ContractFilter) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd model.ContractUpdate) (*model.Contract, error)
	SetArchived(ctx context.Context, id primitive.ObjectID, archived bool, by *primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteArchived permanently removes every globally archived contract
	// and returns the removed ids so callers can cascade cleanup.
	DeleteArchived(ctx context.Context) ([]primitive.ObjectID, error)
}

// MediaStore persists uploaded-file metadata. Read methods never return
// soft-deleted items.
type MediaStore interface {
	Insert(ctx context.Context, m *model.Media) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Media, error)
	FindByContract(ctx context.Context, contractID primitive.ObjectID) ([]model.Media, error)
	FindByContractIDs(ctx context.Context, contractIDs []primitive.ObjectID) ([]model.Media, error)
	List(ctx context.Context, skip, limit int64) ([]model.Media, error)
	Count(ctx context.Context) (int64, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

// UserStore persists accounts plus their bookmark and personal-archive lists.
type UserStore interface {
	Insert(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, skip, limit int64) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	AddBookmark(ctx context.Context, userID, contractID primitive.ObjectID) error
	RemoveBookmark(ctx context.Context, userID, contractID primitive.ObjectID) error
	ClearBookmarks(ctx context.Context, userID primitive.ObjectID) error

	AddArchivedContract(ctx context.Context, userID, contractID primitive.ObjectID) error
	RemoveArchivedContract(ctx context.Context, userID, contractID primitive.ObjectID) error
	ClearArchivedContracts(ctx context.Context, userID primitive.ObjectID) error
	ArchivedContractIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)

	// PullContractRefs removes the given contract ids from every user's
	// bookmarks and personal archive (cascade for permanent deletion).
	PullContractRefs(ctx context.Context, contractIDs []primitive.ObjectID) error
}

// HistoryStore persists search-history records.
type HistoryStore interface {
	Insert(ctx context.Context, h *model.SearchHistory) error
	FindByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]model.SearchHistory, error)
	CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	ClearByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

package handler

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/store"
)

// In-memory stores backing handler tests.

type memContractStore struct {
	items []model.Contract
}

func (s *memContractStore) Insert(ctx context.Context, c *model.Contract) error {
	for _, existing := range s.items {
		if existing.ContractNumber == c.ContractNumber {
			return store.ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.items = append(s.items, *c)
	return nil
}

func (s *memContractStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Contract, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			c := s.items[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memContractStore) FindByNumber(ctx context.Context, number string) (*model.Contract, error) {
	for i := range s.items {
		if s.items[i].ContractNumber == number {
			c := s.items[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memContractStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Contract, error) {
	var out []model.Contract
	for _, id := range ids {
		for i := range s.items {
			if s.items[i].ID == id {
				out = append(out, s.items[i])
			}
		}
	}
	return out, nil
}

func (s *memContractStore) matches(c model.Contract, f store.ContractFilter) bool {
	if f.Archived != nil && c.IsArchived != *f.Archived {
		return false
	}
	if f.Operator != "" && c.Operator != f.Operator {
		return false
	}
	if f.ContractorName != "" && c.ContractorName != f.ContractorName {
		return false
	}
	if f.Year != nil && c.Year != *f.Year {
		return false
	}
	if f.HasDocument != nil && c.HasDocument != *f.HasDocument {
		return false
	}
	for _, ex := range f.ExcludeIDs {
		if c.ID == ex {
			return false
		}
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		hit := strings.Contains(strings.ToLower(c.ContractTitle), needle) ||
			strings.Contains(strings.ToLower(c.ContractorName), needle) ||
			strings.Contains(strings.ToLower(c.Operator), needle) ||
			strings.Contains(strings.ToLower(c.ContractNumber), needle)
		if !hit {
			return false
		}
	}
	return true
}

func (s *memContractStore) Find(ctx context.Context, f store.ContractFilter) ([]model.Contract, error) {
	var out []model.Contract
	for _, c := range s.items {
		if s.matches(c, f) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Skip > 0 {
		if int(f.Skip) >= len(out) {
			return nil, nil
		}
		out = out[f.Skip:]
	}
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memContractStore) Count(ctx context.Context, f store.ContractFilter) (int64, error) {
	var n int64
	for _, c := range s.items {
		if s.matches(c, f) {
			n++
		}
	}
	return n, nil
}

func (s *memContractStore) Update(ctx context.Context, id primitive.ObjectID, upd model.ContractUpdate) (*model.Contract, error) {
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		c := &s.items[i]
		if upd.ContractNumber != nil {
			for j := range s.items {
				if j != i && s.items[j].ContractNumber == *upd.ContractNumber {
					return nil, store.ErrDuplicate
				}
			}
			c.ContractNumber = *upd.ContractNumber
		}
		if upd.Operator != nil {
			c.Operator = *upd.Operator
		}
		if upd.ContractorName != nil {
			c.ContractorName = *upd.ContractorName
		}
		if upd.ContractTitle != nil {
			c.ContractTitle = *upd.ContractTitle
		}
		if upd.Year != nil {
			c.Year = *upd.Year
		}
		if upd.StartDate != nil {
			c.StartDate = upd.StartDate
		}
		if upd.EndDate != nil {
			c.EndDate = upd.EndDate
		}
		if upd.ContractValue != nil {
			c.ContractValue = *upd.ContractValue
		}
		if upd.HasDocument != nil {
			c.HasDocument = *upd.HasDocument
		}
		c.UpdatedAt = time.Now()
		out := *c
		return &out, nil
	}
	return nil, store.ErrNotFound
}

func (s *memContractStore) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool, by *primitive.ObjectID) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsArchived = archived
			if archived {
				now := time.Now()
				s.items[i].ArchivedAt = &now
				s.items[i].ArchivedBy = by
			} else {
				s.items[i].ArchivedAt = nil
				s.items[i].ArchivedBy = nil
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memContractStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memContractStore) DeleteArchived(ctx context.Context) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	var keep []model.Contract
	for _, c := range s.items {
		if c.IsArchived {
			ids = append(ids, c.ID)
		} else {
			keep = append(keep, c)
		}
	}
	s.items = keep
	return ids, nil
}

type memMediaStore struct {
	items []model.Media
}

func (s *memMediaStore) Insert(ctx context.Context, m *model.Media) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now()
	s.items = append(s.items, *m)
	return nil
}

func (s *memMediaStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Media, error) {
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].IsDeleted {
			m := s.items[i]
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memMediaStore) FindByContract(ctx context.Context, contractID primitive.ObjectID) ([]model.Media, error) {
	return s.FindByContractIDs(ctx, []primitive.ObjectID{contractID})
}

func (s *memMediaStore) FindByContractIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Media, error) {
	var out []model.Media
	for _, m := range s.items {
		if m.IsDeleted || m.ContractID == nil {
			continue
		}
		for _, id := range ids {
			if *m.ContractID == id {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (s *memMediaStore) List(ctx context.Context, skip, limit int64) ([]model.Media, error) {
	var out []model.Media
	for _, m := range s.items {
		if !m.IsDeleted {
			out = append(out, m)
		}
	}
	if skip > 0 {
		if int(skip) >= len(out) {
			return nil, nil
		}
		out = out[skip:]
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memMediaStore) Count(ctx context.Context) (int64, error) {
	var n int64
	for _, m := range s.items {
		if !m.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (s *memMediaStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	for i := range s.items {
		if s.items[i].ID == id && !s.items[i].IsDeleted {
			now := time.Now()
			s.items[i].IsDeleted = true
			s.items[i].DeletedAt = &now
			return nil
		}
	}
	return store.ErrNotFound
}

type memUserStore struct {
	items []model.User
}

func (s *memUserStore) Insert(ctx context.Context, u *model.User) error {
	for _, existing := range s.items {
		if existing.Username == u.Username {
			return store.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.items = append(s.items, *u)
	return nil
}

func (s *memUserStore) find(id primitive.ObjectID) *model.User {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i]
		}
	}
	return nil
}

func (s *memUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	if u := s.find(id); u != nil {
		out := *u
		return &out, nil
	}
	return nil, store.ErrNotFound
}

func (s *memUserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for i := range s.items {
		if s.items[i].Username == username {
			out := s.items[i]
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memUserStore) List(ctx context.Context, skip, limit int64) ([]model.User, error) {
	out := append([]model.User(nil), s.items...)
	if skip > 0 {
		if int(skip) >= len(out) {
			return nil, nil
		}
		out = out[skip:]
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memUserStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.items)), nil
}

func (s *memUserStore) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	for _, u := range s.items {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *memUserStore) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	for _, u := range s.items {
		if u.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (s *memUserStore) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if u := s.find(id); u != nil {
		u.Role = role
		return nil
	}
	return store.ErrNotFound
}

func (s *memUserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memUserStore) AddBookmark(ctx context.Context, userID, contractID primitive.ObjectID) error {
	u := s.find(userID)
	if u == nil {
		return store.ErrNotFound
	}
	if u.HasBookmark(contractID) {
		return nil
	}
	u.Bookmarks = append(u.Bookmarks, model.Bookmark{ContractID: contractID, BookmarkedAt: time.Now()})
	return nil
}

func (s *memUserStore) RemoveBookmark(ctx context.Context, userID, contractID primitive.ObjectID) error {
	u := s.find(userID)
	if u == nil {
		return store.ErrNotFound
	}
	for i, b := range u.Bookmarks {
		if b.ContractID == contractID {
			u.Bookmarks = append(u.Bookmarks[:i], u.Bookmarks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memUserStore) ClearBookmarks(ctx context.Context, userID primitive.ObjectID) error {
	u := s.find(userID)
	if u == nil {
		return store.ErrNotFound
	}
	u.Bookmarks = nil
	return nil
}

func (s *memUserStore) AddArchivedContract(ctx context.Context, userID, contractID primitive.ObjectID) error {
	u := s.find(userID)
	if u == nil {
		return store.ErrNotFound
	}
	if u.HasArchived(contractID) {
		return nil
	}
	u.ArchivedContracts = append(u.ArchivedContracts, model.ArchivedContract{ContractID: contractID, ArchivedAt: time.Now()})
	return nil
}

func (s *memUserStore) RemoveArchivedContract(ctx context.Context, userID, contractID primitive.ObjectID) error {
	u := s.find(userID)
	if u == nil {
		return store.ErrNotFound
	}
	for i, a := range u.ArchivedContracts {
		if a.ContractID == contractID {
			u.ArchivedContracts = append(u.ArchivedContracts[:i], u.ArchivedContracts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memUserStore) ClearArchivedContracts(ctx context.Context, userID primitive.ObjectID) error {
	u := s.find(userID)
	if u == nil {
		return store.ErrNotFound
	}
	u.ArchivedContracts = nil
	return nil
}

func (s *memUserStore) ArchivedContractIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	u := s.find(userID)
	if u == nil {
		return nil, store.ErrNotFound
	}
	ids := make([]primitive.ObjectID, 0, len(u.ArchivedContracts))
	for _, a := range u.ArchivedContracts {
		ids = append(ids, a.ContractID)
	}
	return ids, nil
}

func (s *memUserStore) PullContractRefs(ctx context.Context, contractIDs []primitive.ObjectID) error {
	gone := make(map[primitive.ObjectID]bool, len(contractIDs))
	for _, id := range contractIDs {
		gone[id] = true
	}
	for i := range s.items {
		u := &s.items[i]
		var bookmarks []model.Bookmark
		for _, b := range u.Bookmarks {
			if !gone[b.ContractID] {
				bookmarks = append(bookmarks, b)
			}
		}
		u.Bookmarks = bookmarks
		var archived []model.ArchivedContract
		for _, a := range u.ArchivedContracts {
			if !gone[a.ContractID] {
				archived = append(archived, a)
			}
		}
		u.ArchivedContracts = archived
	}
	return nil
}

type memHistoryStore struct {
	items []model.SearchHistory
}

func (s *memHistoryStore) Insert(ctx context.Context, h *model.SearchHistory) error {
	if h.ID.IsZero() {
		h.ID = primitive.NewObjectID()
	}
	h.CreatedAt = time.Now()
	s.items = append(s.items, *h)
	return nil
}

func (s *memHistoryStore) FindByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]model.SearchHistory, error) {
	var out []model.SearchHistory
	for _, h := range s.items {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if skip > 0 {
		if int(skip) >= len(out) {
			return nil, nil
		}
		out = out[skip:]
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memHistoryStore) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	var n int64
	for _, h := range s.items {
		if h.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memHistoryStore) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	for i, h := range s.items {
		if h.ID == id && h.UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memHistoryStore) ClearByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	var keep []model.SearchHistory
	var deleted int64
	for _, h := range s.items {
		if h.UserID == userID {
			deleted++
		} else {
			keep = append(keep, h)
		}
	}
	s.items = keep
	return deleted, nil
}

// recordBroadcaster captures broadcast events.
type recordBroadcaster struct {
	events []string
}

func (r *recordBroadcaster) Broadcast(event string, payload any) {
	r.events = append(r.events, event)
}

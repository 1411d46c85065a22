package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/store"
)

// fakeContractStore is an in-memory store.ContractStore with the same
// filter semantics as the Mongo implementation.
type fakeContractStore struct {
	contracts []model.Contract
	findErr   error
}

func (f *fakeContractStore) Insert(ctx context.Context, c *model.Contract) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = time.Now()
	f.contracts = append(f.contracts, *c)
	return nil
}

func (f *fakeContractStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Contract, error) {
	for i := range f.contracts {
		if f.contracts[i].ID == id {
			c := f.contracts[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeContractStore) FindByNumber(ctx context.Context, number string) (*model.Contract, error) {
	for i := range f.contracts {
		if f.contracts[i].ContractNumber == number {
			c := f.contracts[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeContractStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Contract, error) {
	var out []model.Contract
	for _, id := range ids {
		for i := range f.contracts {
			if f.contracts[i].ID == id {
				out = append(out, f.contracts[i])
			}
		}
	}
	return out, nil
}

func (f *fakeContractStore) Find(ctx context.Context, filter store.ContractFilter) ([]model.Contract, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}

	var out []model.Contract
	for _, c := range f.contracts {
		if !matchesFilter(c, filter) {
			continue
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Skip > 0 && int(filter.Skip) < len(out) {
		out = out[filter.Skip:]
	} else if filter.Skip > 0 {
		out = nil
	}
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(c model.Contract, f store.ContractFilter) bool {
	if f.Archived != nil && c.IsArchived != *f.Archived {
		return false
	}
	for _, ex := range f.ExcludeIDs {
		if c.ID == ex {
			return false
		}
	}
	if f.RangeStart != nil && f.RangeEnd != nil {
		if c.StartDate == nil || c.EndDate == nil {
			return false
		}
		if c.StartDate.After(*f.RangeEnd) || c.EndDate.Before(*f.RangeStart) {
			return false
		}
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		match := strings.Contains(strings.ToLower(c.ContractTitle), needle) ||
			strings.Contains(strings.ToLower(c.ContractorName), needle) ||
			strings.Contains(strings.ToLower(c.Operator), needle) ||
			strings.Contains(strings.ToLower(c.ContractNumber), needle)
		if !match {
			return false
		}
	}
	return true
}

func (f *fakeContractStore) Count(ctx context.Context, filter store.ContractFilter) (int64, error) {
	all, err := f.Find(ctx, store.ContractFilter{
		Text: filter.Text, Archived: filter.Archived, ExcludeIDs: filter.ExcludeIDs,
		RangeStart: filter.RangeStart, RangeEnd: filter.RangeEnd,
	})
	return int64(len(all)), err
}

func (f *fakeContractStore) Update(ctx context.Context, id primitive.ObjectID, upd model.ContractUpdate) (*model.Contract, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeContractStore) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool, by *primitive.ObjectID) error {
	for i := range f.contracts {
		if f.contracts[i].ID == id {
			f.contracts[i].IsArchived = archived
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeContractStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	for i := range f.contracts {
		if f.contracts[i].ID == id {
			f.contracts = append(f.contracts[:i], f.contracts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeContractStore) DeleteArchived(ctx context.Context) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	var keep []model.Contract
	for _, c := range f.contracts {
		if c.IsArchived {
			ids = append(ids, c.ID)
		} else {
			keep = append(keep, c)
		}
	}
	f.contracts = keep
	return ids, nil
}

// fakeMediaStore is an in-memory store.MediaStore.
type fakeMediaStore struct {
	media []model.Media
}

func (f *fakeMediaStore) Insert(ctx context.Context, m *model.Media) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	f.media = append(f.media, *m)
	return nil
}

func (f *fakeMediaStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Media, error) {
	for i := range f.media {
		if f.media[i].ID == id && !f.media[i].IsDeleted {
			m := f.media[i]
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeMediaStore) FindByContract(ctx context.Context, contractID primitive.ObjectID) ([]model.Media, error) {
	return f.FindByContractIDs(ctx, []primitive.ObjectID{contractID})
}

func (f *fakeMediaStore) FindByContractIDs(ctx context.Context, contractIDs []primitive.ObjectID) ([]model.Media, error) {
	var out []model.Media
	for _, m := range f.media {
		if m.IsDeleted || m.ContractID == nil {
			continue
		}
		for _, id := range contractIDs {
			if *m.ContractID == id {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeMediaStore) List(ctx context.Context, skip, limit int64) ([]model.Media, error) {
	var out []model.Media
	for _, m := range f.media {
		if !m.IsDeleted {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMediaStore) Count(ctx context.Context) (int64, error) {
	media, _ := f.List(ctx, 0, 0)
	return int64(len(media)), nil
}

func (f *fakeMediaStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	for i := range f.media {
		if f.media[i].ID == id && !f.media[i].IsDeleted {
			f.media[i].IsDeleted = true
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeUserStore serves only the archived-contract lookup the streaming
// search performs; everything else panics through the nil embed.
type fakeUserStore struct {
	store.UserStore
	archived    map[primitive.ObjectID][]primitive.ObjectID
	archivedErr error
}

func (f *fakeUserStore) ArchivedContractIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	if f.archivedErr != nil {
		return nil, f.archivedErr
	}
	return f.archived[userID], nil
}

// fakeHistoryStore records inserts and can be made to fail.
type fakeHistoryStore struct {
	mu        sync.Mutex
	records   []model.SearchHistory
	insertErr error
}

func (f *fakeHistoryStore) Insert(ctx context.Context, h *model.SearchHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, *h)
	return nil
}

func (f *fakeHistoryStore) FindByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]model.SearchHistory, error) {
	return nil, nil
}

func (f *fakeHistoryStore) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeHistoryStore) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	return store.ErrNotFound
}

func (f *fakeHistoryStore) ClearByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return 0, nil
}

// fakeExtractor returns canned text per URL, or an error.
type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeExtractor) ExtractText(ctx context.Context, url string, wordLimit int) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.texts[url], nil
}

// fakeGenerator returns canned text, optionally failing the first N
// calls or every call.
type fakeGenerator struct {
	text    string
	err     error
	failN   int
	calls   int
	prompts []string
}

func (f *fakeGenerator) Summarize(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil && (f.failN == 0 || f.calls <= f.failN) {
		return "", f.err
	}
	return f.text, nil
}

// recordedEvent is one event captured by recordEmitter.
type recordedEvent struct {
	Event   string
	Payload any
}

// recordEmitter captures emitted events; it can simulate a caller
// disconnect by failing after a fixed number of events.
type recordEmitter struct {
	events    []recordedEvent
	failAfter int // 0 = never fail
}

func (r *recordEmitter) Emit(event string, payload any) error {
	if r.failAfter > 0 && len(r.events) >= r.failAfter {
		return errors.New("connection closed")
	}
	r.events = append(r.events, recordedEvent{Event: event, Payload: payload})
	return nil
}

func (r *recordEmitter) byType(event string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

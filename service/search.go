package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/store"
)

// searchLimit caps the number of contracts one search returns.
const searchLimit = 20

// SearchEngine turns a raw query into a contract result set with media
// attached. Both the REST search endpoint and the streaming search use
// it, so filter construction lives in exactly one place.
type SearchEngine struct {
	contracts store.ContractStore
	media     store.MediaStore
}

func NewSearchEngine(contracts store.ContractStore, media store.MediaStore) *SearchEngine {
	return &SearchEngine{contracts: contracts, media: media}
}

// Search parses the date expression out of rawQuery, queries the
// contract store and attaches each contract's non-deleted media.
// Globally archived contracts and excludeIDs never appear in results.
func (e *SearchEngine) Search(ctx context.Context, rawQuery string, excludeIDs []primitive.ObjectID) ([]model.ContractWithMedia, ParsedQuery, error) {
	parsed := ParseDateQuery(rawQuery)

	archived := false
	filter := store.ContractFilter{
		Text:       parsed.CleanQuery,
		ExcludeIDs: excludeIDs,
		Archived:   &archived,
		Limit:      searchLimit,
	}

	if parsed.Year > 0 {
		start, end := dateRange(parsed.Year, parsed.Month)
		filter.RangeStart = &start
		filter.RangeEnd = &end
	}

	contracts, err := e.contracts.Find(ctx, filter)
	if err != nil {
		return nil, parsed, fmt.Errorf("contract search failed: %w", err)
	}
	if len(contracts) == 0 {
		return nil, parsed, nil
	}

	results, err := e.AttachMedia(ctx, contracts)
	if err != nil {
		return nil, parsed, err
	}
	return results, parsed, nil
}

// AttachMedia batch-loads the non-deleted media for a set of contracts
// and pairs each contract with its files. Contracts with more than one
// file get a zip-download reference.
func (e *SearchEngine) AttachMedia(ctx context.Context, contracts []model.Contract) ([]model.ContractWithMedia, error) {
	ids := make([]primitive.ObjectID, len(contracts))
	for i, c := range contracts {
		ids[i] = c.ID
	}

	media, err := e.media.FindByContractIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract media: %w", err)
	}

	byContract := make(map[primitive.ObjectID][]model.Media, len(contracts))
	for _, m := range media {
		if m.ContractID != nil {
			byContract[*m.ContractID] = append(byContract[*m.ContractID], m)
		}
	}

	results := make([]model.ContractWithMedia, len(contracts))
	for i, c := range contracts {
		attached := byContract[c.ID]
		if attached == nil {
			attached = []model.Media{}
		}

		var zipURL *string
		if len(attached) > 1 {
			u := fmt.Sprintf("/api/v1/media/zip/%s", c.ID.Hex())
			zipURL = &u
		}

		results[i] = model.ContractWithMedia{
			Contract: c,
			Media:    attached,
			ZipURL:   zipURL,
		}
	}
	return results, nil
}

// dateRange computes the inclusive search window for a parsed year and
// optional month: the whole calendar month when month is set, otherwise
// the whole year, end-of-day inclusive.
func dateRange(year, month int) (time.Time, time.Time) {
	if month > 0 {
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
		return start, end
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, 999000000, time.UTC)
	return start, end
}

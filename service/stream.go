package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/store"
)

// Streaming search event names, one invocation emits them in the order
// start, progress, result*, summary, complete (or a single error).
const (
	EventSearchStart    = "contract:search:start"
	EventSearchProgress = "contract:search:progress"
	EventSearchResult   = "contract:search:result"
	EventSearchSummary  = "contract:search:summary"
	EventSearchComplete = "contract:search:complete"
	EventSearchError    = "contract:search:error"
)

// Word cap for extracted document text and the minimum extracted length
// worth summarizing.
const (
	extractWordLimit   = 500
	minSummarizableLen = 50
)

const documentSummaryPrompt = "Summarize this contract document in 2-3 sentences. Focus on key terms, parties involved, and main obligations:\n\n"

// Emitter delivers events to the caller's live connection. Emit returns
// an error once the caller has disconnected; no further events can be
// delivered after that.
type Emitter interface {
	Emit(event string, payload any) error
}

// TextExtractor fetches a document and extracts plain text from it.
type TextExtractor interface {
	ExtractText(ctx context.Context, url string, wordLimit int) (string, error)
}

// TextGenerator produces generated text for a prompt.
type TextGenerator interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Session holds the state of one streaming search invocation. It is
// created per invocation and never shared, so a rate-limit hit in one
// search cannot suppress summaries in a concurrent one.
type Session struct {
	UserID       *primitive.ObjectID
	Query        string
	Tab          string
	AIAvailable  bool
	ResultsCount int
}

// NewSession creates the per-invocation state for a streaming search.
func NewSession(userID *primitive.ObjectID, query, tab string) *Session {
	if tab == "" {
		tab = "all"
	}
	return &Session{
		UserID:      userID,
		Query:       query,
		Tab:         tab,
		AIAvailable: true,
	}
}

// streamResult is the per-contract payload of a result event.
type streamResult struct {
	model.ContractWithMedia
	DocumentSummary *string `json:"documentSummary"`
}

// enrichStatus classifies the outcome of one per-match enrichment step.
type enrichStatus int

const (
	enrichOK enrichStatus = iota
	enrichSkip
	enrichRateLimited
)

// StreamSearcher drives a streaming contract search: it queries the
// search engine, enriches each match with an AI document summary where
// possible, and emits incremental events to the caller.
type StreamSearcher struct {
	engine     *SearchEngine
	extractor  TextExtractor
	summarizer TextGenerator
	history    store.HistoryStore
	users      store.UserStore
}

func NewStreamSearcher(engine *SearchEngine, extractor TextExtractor, summarizer TextGenerator, history store.HistoryStore, users store.UserStore) *StreamSearcher {
	return &StreamSearcher{
		engine:     engine,
		extractor:  extractor,
		summarizer: summarizer,
		history:    history,
		users:      users,
	}
}

// Run executes one streaming search invocation. Matches are processed
// strictly sequentially in the search engine's order; a failure to
// enrich one match never aborts the stream. Only an empty query or a
// storage failure surfaces as an error event, and then no complete
// event follows.
func (s *StreamSearcher) Run(ctx context.Context, sess *Session, emitter Emitter) error {
	if strings.TrimSpace(sess.Query) == "" {
		emitter.Emit(EventSearchError, map[string]any{"message": "Search query is required"})
		return nil
	}

	if err := emitter.Emit(EventSearchStart, map[string]any{"message": "Search started"}); err != nil {
		return err
	}

	excludeIDs, err := s.archivedIDs(ctx, sess)
	if err != nil {
		slog.Error("failed to load personal archive for search", "user_id", sess.UserID.Hex(), "error", err)
		emitter.Emit(EventSearchError, map[string]any{"message": "Search failed, please try again"})
		return err
	}

	results, parsed, err := s.engine.Search(ctx, sess.Query, excludeIDs)
	if err != nil {
		slog.Error("streaming search failed", "query", sess.Query, "error", err)
		emitter.Emit(EventSearchError, map[string]any{"message": "Search failed, please try again"})
		return err
	}

	if err := emitter.Emit(EventSearchProgress, map[string]any{
		"message": fmt.Sprintf("Found %d contracts", len(results)),
		"count":   len(results),
	}); err != nil {
		return err
	}

	if len(results) == 0 {
		return emitter.Emit(EventSearchComplete, map[string]any{
			"message": "No contracts found",
			"total":   0,
		})
	}

	// Sequential by design: delivery order must match the engine's
	// ranking, and it bounds pressure on the AI backend.
	for i := range results {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var documentSummary *string
		summary, status := s.enrichMatch(ctx, sess, emitter, &results[i])
		switch status {
		case enrichOK:
			documentSummary = &summary
		case enrichRateLimited:
			slog.Warn("AI rate limit reached, skipping AI summaries", "query", sess.Query)
			sess.AIAvailable = false
		case enrichSkip:
			// emitted without a summary
		}

		if err := emitter.Emit(EventSearchResult, map[string]any{
			"contract": streamResult{
				ContractWithMedia: results[i],
				DocumentSummary:   documentSummary,
			},
		}); err != nil {
			return err
		}
		sess.ResultsCount++
	}

	if err := s.emitOverallSummary(ctx, sess, emitter, results); err != nil {
		return err
	}

	if err := emitter.Emit(EventSearchComplete, map[string]any{
		"message": "Search completed",
		"total":   sess.ResultsCount,
	}); err != nil {
		return err
	}

	s.saveHistory(ctx, sess, parsed)
	return nil
}

// archivedIDs resolves the caller's personal archive into the search
// exclusion set. The caller never supplies exclusions itself; they are
// always read from the stored profile so an archived contract cannot
// resurface in that user's results.
func (s *StreamSearcher) archivedIDs(ctx context.Context, sess *Session) ([]primitive.ObjectID, error) {
	if sess.UserID == nil {
		return nil, nil
	}
	return s.users.ArchivedContractIDs(ctx, *sess.UserID)
}

// enrichMatch attempts to produce an AI summary for one match. It only
// runs when AI is still available and the match has a PDF document.
func (s *StreamSearcher) enrichMatch(ctx context.Context, sess *Session, emitter Emitter, c *model.ContractWithMedia) (string, enrichStatus) {
	if !sess.AIAvailable {
		return "", enrichSkip
	}

	pdfMedia := firstPDF(c.Media)
	if pdfMedia == nil {
		return "", enrichSkip
	}

	emitter.Emit(EventSearchProgress, map[string]any{
		"message": fmt.Sprintf("Reading document for %s...", c.ContractTitle),
	})

	text, err := s.extractor.ExtractText(ctx, pdfMedia.URL, extractWordLimit)
	if err != nil {
		return "", s.classifyEnrichError(sess, c, err)
	}

	if len(text) <= minSummarizableLen {
		return "", enrichSkip
	}

	emitter.Emit(EventSearchProgress, map[string]any{
		"message": fmt.Sprintf("Generating summary for %s...", c.ContractTitle),
	})

	summary, err := s.summarizer.Summarize(ctx, documentSummaryPrompt+text)
	if err != nil {
		return "", s.classifyEnrichError(sess, c, err)
	}
	if summary == "" {
		return "", enrichSkip
	}
	return summary, enrichOK
}

// classifyEnrichError maps a per-match failure onto the continue-on-
// failure policy: rate limits disable AI for the rest of the
// invocation, inaccessible documents are skipped silently, everything
// else is logged and skipped.
func (s *StreamSearcher) classifyEnrichError(sess *Session, c *model.ContractWithMedia, err error) enrichStatus {
	switch {
	case IsRateLimit(err):
		return enrichRateLimited
	case IsAccessError(err):
		slog.Warn("document not accessible, skipping summary", "contract_id", c.ID.Hex())
		return enrichSkip
	default:
		slog.Error("failed to summarize document", "contract_id", c.ID.Hex(), "error", err)
		return enrichSkip
	}
}

// emitOverallSummary produces the aggregate summary event. Any failure
// degrades to a deterministic fallback string.
func (s *StreamSearcher) emitOverallSummary(ctx context.Context, sess *Session, emitter Emitter, results []model.ContractWithMedia) error {
	fallback := fmt.Sprintf("Found %d contracts matching %q", len(results), sess.Query)

	if !sess.AIAvailable {
		return emitter.Emit(EventSearchSummary, map[string]any{
			"summary": fallback + " (AI summaries unavailable due to rate limits)",
		})
	}

	emitter.Emit(EventSearchProgress, map[string]any{
		"message": "Generating search summary...",
	})

	var lines []string
	for _, c := range results {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s, %d)", c.ContractTitle, c.Operator, c.ContractorName, c.Year))
	}
	prompt := fmt.Sprintf("Based on the search query %q, provide a brief 2-3 sentence summary of these contract search results:\n\n%s",
		sess.Query, strings.Join(lines, "\n"))

	summary, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		if IsRateLimit(err) {
			slog.Warn("AI rate limit reached, skipping overall summary", "query", sess.Query)
		} else {
			slog.Error("failed to generate overall summary", "error", err)
		}
		summary = fallback
	}
	if summary == "" {
		summary = "No summary available"
	}

	return emitter.Emit(EventSearchSummary, map[string]any{"summary": summary})
}

// saveHistory persists the search as a best-effort side effect; a
// failure is logged and never surfaces to the caller.
func (s *StreamSearcher) saveHistory(ctx context.Context, sess *Session, parsed ParsedQuery) {
	if sess.UserID == nil {
		return
	}

	query := parsed.CleanQuery
	if query == "" {
		query = sess.Query
	}

	err := s.history.Insert(ctx, &model.SearchHistory{
		UserID:       *sess.UserID,
		Query:        query,
		ResultsCount: sess.ResultsCount,
		Tab:          sess.Tab,
	})
	if err != nil {
		slog.Error("failed to save search history", "user_id", sess.UserID.Hex(), "error", err)
	}
}

// firstPDF returns the first media item that looks like a PDF document.
func firstPDF(media []model.Media) *model.Media {
	for i := range media {
		if media[i].IsPDF() {
			return &media[i]
		}
	}
	return nil
}

package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/service"
	"github.com/contractvault/backend/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Stores with only the methods a streaming search touches; anything
// else panics through the embedded nil interface.
type fakeContracts struct {
	store.ContractStore
	items []model.Contract
}

func (f *fakeContracts) Find(ctx context.Context, filter store.ContractFilter) ([]model.Contract, error) {
	var out []model.Contract
next:
	for _, c := range f.items {
		for _, ex := range filter.ExcludeIDs {
			if c.ID == ex {
				continue next
			}
		}
		if filter.Text == "" || strings.Contains(strings.ToLower(c.ContractTitle), strings.ToLower(filter.Text)) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeMedia struct {
	store.MediaStore
}

func (f *fakeMedia) FindByContractIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Media, error) {
	return nil, nil
}

type fakeHistory struct {
	store.HistoryStore
}

func (f *fakeHistory) Insert(ctx context.Context, h *model.SearchHistory) error {
	return nil
}

type fakeUsers struct {
	store.UserStore
	archived []primitive.ObjectID
}

func (f *fakeUsers) ArchivedContractIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f.archived, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Summarize(ctx context.Context, prompt string) (string, error) {
	return "Two drilling contracts from 2024.", nil
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractText(ctx context.Context, url string, wordLimit int) (string, error) {
	return "", nil
}

func newTestSearcher(items []model.Contract, users *fakeUsers) *service.StreamSearcher {
	if users == nil {
		users = &fakeUsers{}
	}
	engine := service.NewSearchEngine(&fakeContracts{items: items}, &fakeMedia{})
	return service.NewStreamSearcher(engine, fakeExtractor{}, fakeGenerator{}, &fakeHistory{}, users)
}

func TestWebSocketSearchStream(t *testing.T) {
	items := []model.Contract{
		{
			ID:             primitive.NewObjectID(),
			ContractTitle:  "Drilling Services",
			ContractorName: "Acme",
			Operator:       "SEPLAT",
			Year:           2024,
			ContractNumber: "SEP-001",
		},
	}

	hub := NewHub()
	router := gin.New()
	router.GET("/ws", Handler(hub, newTestSearcher(items, nil)))

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	req, _ := json.Marshal(map[string]any{"query": "drilling"})
	if err := conn.WriteJSON(envelope{Event: EventSearchRequest, Data: req}); err != nil {
		t.Fatalf("Failed to send search request: %v", err)
	}

	var events []string
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("Failed to read event (got %v so far): %v", events, err)
		}
		events = append(events, env.Event)
		if env.Event == service.EventSearchComplete || env.Event == service.EventSearchError {
			break
		}
	}

	want := []string{
		service.EventSearchStart,
		service.EventSearchProgress,
		service.EventSearchResult,
		service.EventSearchProgress, // generating search summary
		service.EventSearchSummary,
		service.EventSearchComplete,
	}
	if len(events) != len(want) {
		t.Fatalf("Got events %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Event %d = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestWebSocketSearchExcludesPersonalArchive(t *testing.T) {
	visible := model.Contract{
		ID:             primitive.NewObjectID(),
		ContractTitle:  "Visible Drilling",
		ContractNumber: "SEP-001",
	}
	hidden := model.Contract{
		ID:             primitive.NewObjectID(),
		ContractTitle:  "Hidden Drilling",
		ContractNumber: "SEP-002",
	}

	userID := primitive.NewObjectID()
	searcher := newTestSearcher(
		[]model.Contract{visible, hidden},
		&fakeUsers{archived: []primitive.ObjectID{hidden.ID}},
	)

	hub := NewHub()
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", "user")
	}, Handler(hub, searcher))

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	// no exclusion hints in the request; the archive lookup must
	// filter the hidden contract on its own
	req, _ := json.Marshal(map[string]any{"query": "drilling"})
	if err := conn.WriteJSON(envelope{Event: EventSearchRequest, Data: req}); err != nil {
		t.Fatalf("Failed to send search request: %v", err)
	}

	var titles []string
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("Failed to read event: %v", err)
		}
		if env.Event == service.EventSearchResult {
			var payload struct {
				Contract struct {
					ContractTitle string `json:"contractTitle"`
				} `json:"contract"`
			}
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				t.Fatalf("Failed to parse result payload: %v", err)
			}
			titles = append(titles, payload.Contract.ContractTitle)
		}
		if env.Event == service.EventSearchComplete || env.Event == service.EventSearchError {
			break
		}
	}

	if len(titles) != 1 || titles[0] != "Visible Drilling" {
		t.Fatalf("Result titles = %v, want only Visible Drilling", titles)
	}
}

func TestWebSocketEmptyQuery(t *testing.T) {
	hub := NewHub()
	router := gin.New()
	router.GET("/ws", Handler(hub, newTestSearcher(nil, nil)))

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	req, _ := json.Marshal(map[string]any{"query": "  "})
	if err := conn.WriteJSON(envelope{Event: EventSearchRequest, Data: req}); err != nil {
		t.Fatalf("Failed to send search request: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if env.Event != service.EventSearchError {
		t.Errorf("Event = %s, want %s", env.Event, service.EventSearchError)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()

	c1 := &Client{id: "c1", send: make(chan []byte, 4), done: make(chan struct{})}
	c2 := &Client{id: "c2", send: make(chan []byte, 4), done: make(chan struct{})}
	hub.register(c1)
	hub.register(c2)

	if hub.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", hub.Count())
	}

	hub.Broadcast("contract:created", map[string]any{"contractNumber": "SEP-001"})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			var env envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				t.Fatalf("Failed to unmarshal envelope: %v", err)
			}
			if env.Event != "contract:created" {
				t.Errorf("Event = %s, want contract:created", env.Event)
			}
		case <-time.After(time.Second):
			t.Fatalf("Client %s never received the broadcast", c.id)
		}
	}
}

func TestHubBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub()

	slow := &Client{id: "slow", send: make(chan []byte), done: make(chan struct{})}
	hub.register(slow)

	hub.Broadcast("contract:created", map[string]any{"contractNumber": "SEP-001"})

	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after dropping the slow client", hub.Count())
	}
	select {
	case <-slow.done:
	default:
		t.Error("Dropped client's done channel must be closed")
	}
}

func TestHubUnregisterIdempotent(t *testing.T) {
	hub := NewHub()
	c := &Client{id: "c1", send: make(chan []byte, 1), done: make(chan struct{})}
	hub.register(c)
	hub.unregister(c)
	hub.unregister(c)

	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
}

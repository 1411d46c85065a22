package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	// EventSearchRequest is the inbound event that starts a streaming
	// contract search on this connection.
	EventSearchRequest = "contract:search"
)

// ErrClientClosed is returned by Emit after the connection has gone
// away; the orchestrator uses it to stop streaming.
var ErrClientClosed = errors.New("websocket client closed")

// searchRequest is the inbound payload of a search request event. The
// exclusion set is never part of the payload; the orchestrator reads
// the caller's personal archive from storage.
type searchRequest struct {
	Query string `json:"query"`
	Tab   string `json:"tab"`
}

// Client is one live connection. It implements service.Emitter so a
// streaming search can write directly to it.
type Client struct {
	id       string
	userID   *primitive.ObjectID
	conn     *websocket.Conn
	hub      *Hub
	searcher *service.StreamSearcher

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
	searchMu  sync.Mutex

	// cancels the in-flight search when the connection drops
	cancel context.CancelFunc
}

// Emit marshals one event into the wire envelope and queues it for
// delivery. It fails once the connection is closed or the send buffer
// is saturated, and never blocks the caller indefinitely.
func (c *Client) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientClosed
	case c.send <- msg:
		return nil
	case <-time.After(writeWait):
		return ErrClientClosed
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump consumes inbound messages until the connection drops. A
// search request event starts a streaming search whose events go only
// to this client; a second request on the same connection runs after
// the first finishes.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.cancel()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			slog.Debug("ignoring malformed websocket message", "client_id", c.id, "error", err)
			continue
		}

		if env.Event == EventSearchRequest {
			// off the read loop so pings keep flowing during a long
			// search; the mutex serializes searches per connection
			go c.handleSearch(ctx, env.Data)
		}
	}
}

func (c *Client) handleSearch(ctx context.Context, data json.RawMessage) {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()

	var req searchRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			c.Emit(service.EventSearchError, map[string]any{"message": "Invalid search request"})
			return
		}
	}

	sess := service.NewSession(c.userID, req.Query, req.Tab)
	if err := c.searcher.Run(ctx, sess, c); err != nil {
		slog.Debug("streaming search ended early", "client_id", c.id, "error", err)
	}
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package ws carries the live connection layer: a hub of connected
// clients and the per-connection plumbing that runs streaming contract
// searches and delivers broadcast notifications.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// envelope is the wire format of every message, in both directions.
type envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Hub tracks the connected clients and fans broadcast messages out to
// all of them. Streaming search events are not broadcast; each client
// receives only its own search's events.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()
	slog.Debug("websocket client connected", "client_id", c.id, "total", total)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.closeSend()
	}
	total := len(h.clients)
	h.mu.Unlock()
	slog.Debug("websocket client disconnected", "client_id", c.id, "total", total)
}

// Broadcast delivers an event to every connected client. Clients whose
// send buffer is full are dropped rather than blocking the rest.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal broadcast payload", "event", event, "error", err)
		return
	}
	msg, err := json.Marshal(envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		slog.Error("failed to marshal broadcast envelope", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, id)
			c.closeSend()
			slog.Warn("websocket client too slow, dropping", "client_id", id)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/contractvault/backend/middleware"
	"github.com/contractvault/backend/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// cross-origin browsers are allowed; auth decides what a
		// connection may see
		return true
	},
}

// Handler upgrades the request to a websocket connection and wires the
// client into the hub. Anonymous connections may search; only
// authenticated ones get search history.
func Handler(hub *Hub, searcher *service.StreamSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		// not the request context: that dies when this handler
		// returns, and the hijacked connection outlives it
		ctx, cancel := context.WithCancel(context.Background())

		client := &Client{
			id:       uuid.NewString(),
			conn:     conn,
			hub:      hub,
			searcher: searcher,
			send:     make(chan []byte, 256),
			done:     make(chan struct{}),
			cancel:   cancel,
		}
		if userID, ok := middleware.GetUserID(c); ok {
			client.userID = &userID
		}

		hub.register(client)
		go client.writePump()
		go client.readPump(ctx)
	}
}

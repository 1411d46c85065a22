package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookHandler lets trusted backends push notifications to every
// connected live client.
type WebhookHandler struct {
	hub Broadcaster
}

func NewWebhookHandler(hub Broadcaster) *WebhookHandler {
	return &WebhookHandler{hub: hub}
}

type BroadcastRequest struct {
	Event string         `json:"event" binding:"required"`
	Data  map[string]any `json:"data"`
}

// Broadcast fans one event out to all connected clients.
func (h *WebhookHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	h.hub.Broadcast(req.Event, req.Data)
	c.JSON(http.StatusOK, gin.H{"message": "Broadcast sent"})
}

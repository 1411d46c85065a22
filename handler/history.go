package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/middleware"
	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/store"
)

type HistoryHandler struct {
	history store.HistoryStore
}

func NewHistoryHandler(history store.HistoryStore) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List returns the caller's search history, newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	page, limit := pagination(c)

	total, err := h.history.CountByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	records, err := h.history.FindByUser(c.Request.Context(), userID, (page-1)*limit, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if records == nil {
		records = []model.SearchHistory{}
	}

	c.JSON(http.StatusOK, gin.H{
		"history": records,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// Delete removes one history entry. Entries belong to their user; a
// different caller gets a not-found.
func (h *HistoryHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid history id"})
		return
	}

	if err := h.history.Delete(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "History entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete history entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History entry deleted"})
}

// Clear removes the caller's whole search history.
func (h *HistoryHandler) Clear(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	deleted, err := h.history.ClearByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "History cleared",
		"deleted": deleted,
	})
}

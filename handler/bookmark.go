package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/middleware"
	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/service"
	"github.com/contractvault/backend/store"
)

type BookmarkHandler struct {
	users     store.UserStore
	contracts store.ContractStore
	engine    *service.SearchEngine
}

func NewBookmarkHandler(users store.UserStore, contracts store.ContractStore, engine *service.SearchEngine) *BookmarkHandler {
	return &BookmarkHandler{users: users, contracts: contracts, engine: engine}
}

// List returns the caller's bookmarked contracts with media attached.
func (h *BookmarkHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	ids := make([]primitive.ObjectID, 0, len(user.Bookmarks))
	for _, b := range user.Bookmarks {
		ids = append(ids, b.ContractID)
	}

	contracts, err := h.contracts.FindByIDs(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookmarks"})
		return
	}
	results, err := h.engine.AttachMedia(c.Request.Context(), contracts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load bookmarks"})
		return
	}
	if results == nil {
		results = []model.ContractWithMedia{}
	}

	c.JSON(http.StatusOK, gin.H{
		"bookmarks": results,
		"total":     len(results),
	})
}

// Add bookmarks a contract for the caller.
func (h *BookmarkHandler) Add(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	contractID, err := primitive.ObjectIDFromHex(c.Param("contractId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if user.HasBookmark(contractID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contract already bookmarked"})
		return
	}

	if _, err := h.contracts.FindByID(c.Request.Context(), contractID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add bookmark"})
		return
	}

	if err := h.users.AddBookmark(c.Request.Context(), userID, contractID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add bookmark"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark added"})
}

// Remove drops one bookmark.
func (h *BookmarkHandler) Remove(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	contractID, err := primitive.ObjectIDFromHex(c.Param("contractId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	if err := h.users.RemoveBookmark(c.Request.Context(), userID, contractID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove bookmark"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed"})
}

// Clear drops every bookmark of the caller.
func (h *BookmarkHandler) Clear(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.users.ClearBookmarks(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear bookmarks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bookmarks cleared"})
}

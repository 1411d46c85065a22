package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/middleware"
	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/service"
	"github.com/contractvault/backend/store"
)

// ArchiveHandler covers both archive tiers: the per-user personal
// archive (hides contracts from that user's searches) and the global
// archive (admin-managed, hides contracts from everyone).
type ArchiveHandler struct {
	users     store.UserStore
	contracts store.ContractStore
	media     store.MediaStore
	engine    *service.SearchEngine
	hub       Broadcaster
}

func NewArchiveHandler(users store.UserStore, contracts store.ContractStore, media store.MediaStore, engine *service.SearchEngine, hub Broadcaster) *ArchiveHandler {
	return &ArchiveHandler{
		users:     users,
		contracts: contracts,
		media:     media,
		engine:    engine,
		hub:       hub,
	}
}

// ListPersonal returns the caller's personally archived contracts.
func (h *ArchiveHandler) ListPersonal(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	ids, err := h.users.ArchivedContractIDs(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load archive"})
		return
	}

	contracts, err := h.contracts.FindByIDs(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load archive"})
		return
	}
	results, err := h.engine.AttachMedia(c.Request.Context(), contracts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load archive"})
		return
	}
	if results == nil {
		results = []model.ContractWithMedia{}
	}

	c.JSON(http.StatusOK, gin.H{
		"archived": results,
		"total":    len(results),
	})
}

// AddPersonal puts a contract into the caller's personal archive, so
// the caller's tailored searches can exclude it.
func (h *ArchiveHandler) AddPersonal(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	contractID, err := primitive.ObjectIDFromHex(c.Param("contractId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	if _, err := h.contracts.FindByID(c.Request.Context(), contractID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive contract"})
		return
	}

	if err := h.users.AddArchivedContract(c.Request.Context(), userID, contractID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive contract"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract archived"})
}

// RemovePersonal restores one contract from the caller's personal archive.
func (h *ArchiveHandler) RemovePersonal(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	contractID, err := primitive.ObjectIDFromHex(c.Param("contractId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	if err := h.users.RemoveArchivedContract(c.Request.Context(), userID, contractID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restore contract"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract restored"})
}

// ClearPersonal empties the caller's personal archive.
func (h *ArchiveHandler) ClearPersonal(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.users.ClearArchivedContracts(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear archive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Archive cleared"})
}

// ListGlobal returns every globally archived contract, newest archive
// first.
func (h *ArchiveHandler) ListGlobal(c *gin.Context) {
	page, limit := pagination(c)
	archived := true
	filter := store.ContractFilter{
		Archived: &archived,
		Skip:     (page - 1) * limit,
		Limit:    limit,
		SortBy:   store.SortArchivedAt,
	}

	total, err := h.contracts.Count(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load global archive"})
		return
	}
	contracts, err := h.contracts.Find(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load global archive"})
		return
	}
	results, err := h.engine.AttachMedia(c.Request.Context(), contracts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load global archive"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"archived": results,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// ArchiveGlobal moves a contract into the global archive, hiding it
// from every user's searches.
func (h *ArchiveHandler) ArchiveGlobal(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	contractID, err := primitive.ObjectIDFromHex(c.Param("contractId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	if err := h.contracts.SetArchived(c.Request.Context(), contractID, true, &userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive contract"})
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(EventContractUpdated, gin.H{"id": contractID.Hex(), "isArchived": true})
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract archived globally"})
}

// RestoreGlobal moves a contract back out of the global archive.
func (h *ArchiveHandler) RestoreGlobal(c *gin.Context) {
	contractID, err := primitive.ObjectIDFromHex(c.Param("contractId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	if err := h.contracts.SetArchived(c.Request.Context(), contractID, false, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to restore contract"})
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(EventContractUpdated, gin.H{"id": contractID.Hex(), "isArchived": false})
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract restored"})
}

// EmptyGlobal permanently deletes every globally archived contract,
// cascading to media and user references.
func (h *ArchiveHandler) EmptyGlobal(c *gin.Context) {
	ids, err := h.contracts.DeleteArchived(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to empty archive"})
		return
	}

	if len(ids) > 0 {
		if err := h.users.PullContractRefs(c.Request.Context(), ids); err != nil {
			slog.Warn("failed to drop user references to deleted contracts", "error", err)
		}
		media, err := h.media.FindByContractIDs(c.Request.Context(), ids)
		if err == nil {
			for _, m := range media {
				if err := h.media.SoftDelete(c.Request.Context(), m.ID); err != nil {
					slog.Warn("failed to soft-delete media for deleted contract", "media_id", m.ID.Hex(), "error", err)
				}
			}
		}
		if h.hub != nil {
			h.hub.Broadcast(EventContractDeleted, gin.H{"count": len(ids)})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Archive emptied",
		"deleted": len(ids),
	})
}

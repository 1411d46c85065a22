package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/contractvault/backend/middleware"
	"github.com/contractvault/backend/model"
	"github.com/contractvault/backend/service"
	"github.com/contractvault/backend/store"
)

// Broadcaster pushes a notification to every connected live client.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Contract change events pushed over the live connection.
const (
	EventContractCreated = "contract:created"
	EventContractUpdated = "contract:updated"
	EventContractDeleted = "contract:deleted"
)

type ContractHandler struct {
	contracts store.ContractStore
	media     store.MediaStore
	users     store.UserStore
	history   store.HistoryStore
	engine    *service.SearchEngine
	hub       Broadcaster
}

func NewContractHandler(contracts store.ContractStore, media store.MediaStore, users store.UserStore, history store.HistoryStore, engine *service.SearchEngine, hub Broadcaster) *ContractHandler {
	return &ContractHandler{
		contracts: contracts,
		media:     media,
		users:     users,
		history:   history,
		engine:    engine,
		hub:       hub,
	}
}

type CreateContractRequest struct {
	Operator       string     `json:"operator" binding:"required"`
	ContractorName string     `json:"contractorName" binding:"required"`
	ContractTitle  string     `json:"contractTitle" binding:"required"`
	Year           int        `json:"year" binding:"required"`
	ContractNumber string     `json:"contractNumber" binding:"required"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	ContractValue  string     `json:"contractValue"`
}

// Create inserts a new contract record.
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	contract := &model.Contract{
		Operator:       req.Operator,
		ContractorName: req.ContractorName,
		ContractTitle:  req.ContractTitle,
		Year:           req.Year,
		ContractNumber: req.ContractNumber,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		ContractValue:  req.ContractValue,
	}
	if err := h.contracts.Insert(c.Request.Context(), contract); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Contract number already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contract"})
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(EventContractCreated, contract)
	}
	c.JSON(http.StatusCreated, contract)
}

// List returns non-archived contracts with their media, filtered and
// paginated.
func (h *ContractHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	archived := false
	filter := store.ContractFilter{
		Archived:       &archived,
		Text:           strings.TrimSpace(c.Query("q")),
		Operator:       c.Query("operator"),
		ContractorName: c.Query("contractor"),
		Skip:           (page - 1) * limit,
		Limit:          limit,
	}
	if y := c.Query("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
			return
		}
		filter.Year = &year
	}
	if hd := c.Query("hasDocument"); hd != "" {
		v := hd == "true"
		filter.HasDocument = &v
	}

	total, err := h.contracts.Count(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contracts"})
		return
	}
	contracts, err := h.contracts.Find(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contracts"})
		return
	}
	results, err := h.engine.AttachMedia(c.Request.Context(), contracts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contracts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contracts": results,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// Get returns a single contract with its media.
func (h *ContractHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	contract, err := h.contracts.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contract"})
		return
	}

	results, err := h.engine.AttachMedia(c.Request.Context(), []model.Contract{*contract})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contract"})
		return
	}
	c.JSON(http.StatusOK, results[0])
}

// Update applies a partial update to a contract.
func (h *ContractHandler) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	var upd model.ContractUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contract, err := h.contracts.Update(c.Request.Context(), id, upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		case errors.Is(err, store.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "Contract number already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contract"})
		}
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(EventContractUpdated, contract)
	}
	c.JSON(http.StatusOK, contract)
}

// Delete permanently removes a contract, soft-deletes its media and
// drops every user reference to it.
func (h *ContractHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contract id"})
		return
	}

	if err := h.contracts.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contract"})
		return
	}

	// cleanup is best effort once the contract itself is gone
	media, err := h.media.FindByContract(c.Request.Context(), id)
	if err == nil {
		for _, m := range media {
			if err := h.media.SoftDelete(c.Request.Context(), m.ID); err != nil {
				slog.Warn("failed to soft-delete media for removed contract", "media_id", m.ID.Hex(), "error", err)
			}
		}
	}
	if err := h.users.PullContractRefs(c.Request.Context(), []primitive.ObjectID{id}); err != nil {
		slog.Warn("failed to drop user references to removed contract", "contract_id", id.Hex(), "error", err)
	}

	if h.hub != nil {
		h.hub.Broadcast(EventContractDeleted, gin.H{"id": id.Hex()})
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// Search runs the non-streaming search: same engine, same filters, one
// response. Authenticated searches are recorded in history.
func (h *ContractHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	// the exclusion set comes from the caller's stored personal
	// archive, never from the request
	var excludeIDs []primitive.ObjectID
	if userID, ok := middleware.GetUserID(c); ok {
		ids, err := h.users.ArchivedContractIDs(c.Request.Context(), userID)
		if err != nil {
			slog.Error("failed to load personal archive for search", "user_id", userID.Hex(), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}
		excludeIDs = ids
	}

	results, _, err := h.engine.Search(c.Request.Context(), query, excludeIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	if results == nil {
		results = []model.ContractWithMedia{}
	}

	if userID, ok := middleware.GetUserID(c); ok && len(results) > 0 {
		err := h.history.Insert(c.Request.Context(), &model.SearchHistory{
			UserID:       userID,
			Query:        query,
			ResultsCount: len(results),
			Tab:          "all",
		})
		if err != nil {
			slog.Error("failed to save search history", "user_id", userID.Hex(), "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"contracts": results,
		"total":     len(results),
		"query":     query,
	})
}

// pagination reads page/limit query params with sane bounds.
func pagination(c *gin.Context) (page, limit int64) {
	page, _ = strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ = strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

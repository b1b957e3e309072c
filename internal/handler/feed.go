// internal/handler/feed.go
package handler

import (
	"net/http"
	"strconv"

	"studio-settlement/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

type NoteRequest struct {
	Message   string `json:"message" validate:"required,notblank,max=1000"`
	ProjectID *int64 `json:"project_id" validate:"omitempty,gt=0"`
}

// ListFeed godoc
// @Summary Activity feed, newest first
// @Tags feed
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param before query int false "Only items with a smaller id"
// @Success 200 {array} domain.FeedItem
// @Router /api/v1/feed [get]
func (h *Handler) ListFeed(c *gin.Context) {
	limit := defaultFeedLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxFeedLimit)
	}
	var before int64
	if s := c.Query("before"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be a positive integer"})
			return
		}
		before = n
	}

	items, err := h.store.ListFeed(c.Request.Context(), limit, before)
	if err != nil {
		respondError(c, err, "list feed")
		return
	}
	c.JSON(http.StatusOK, items)
}

// PostNote godoc
// @Summary Post a note to the feed
// @Tags feed
// @Accept json
// @Produce json
// @Param request body NoteRequest true "Note"
// @Success 201 {object} domain.FeedItem
// @Router /api/v1/feed [post]
func (h *Handler) PostNote(c *gin.Context) {
	memberID, ok := mustMemberID(c)
	if !ok {
		return
	}
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := domain.FeedItem{Kind: domain.FeedNote, ActorID: &memberID, ProjectID: req.ProjectID, Message: req.Message}
	id, err := h.store.AddFeedItem(c.Request.Context(), item)
	if err != nil {
		respondError(c, err, "post note")
		return
	}
	item.ID = id
	c.JSON(http.StatusCreated, item)
}

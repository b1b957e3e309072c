// internal/handler/channels.go
package handler

import (
	"fmt"
	"net/http"

	"studio-settlement/internal/calculator"
	"studio-settlement/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ChannelRequest struct {
	Name    string  `json:"name" validate:"required,notblank,max=100"`
	FeeRate float64 `json:"fee_rate" validate:"ratio"`
}

// checkFeeRate refuses rates that would leave a negative distributable amount
// under any configured rate version.
func (h *Handler) checkFeeRate(rate float64) error {
	versions := h.settlements.Rates().Versions()
	if len(versions) == 0 {
		return nil
	}
	limit := versions[0].MaxChannelFeeRate()
	for _, r := range versions[1:] {
		limit = decimal.Min(limit, r.MaxChannelFeeRate())
	}
	if decimal.NewFromFloat(rate).GreaterThan(limit) {
		return fmt.Errorf("%w: fee_rate must not exceed %s, the share left after ad and program fees", calculator.ErrInvalidInput, limit)
	}
	return nil
}

// ListChannels godoc
// @Summary List sales channels
// @Tags channels
// @Produce json
// @Success 200 {array} domain.Channel
// @Router /api/v1/channels [get]
func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.store.ListChannels(c.Request.Context())
	if err != nil {
		respondError(c, err, "list channels")
		return
	}
	c.JSON(http.StatusOK, channels)
}

// CreateChannel godoc
// @Summary Add a sales channel (admin)
// @Tags channels
// @Accept json
// @Produce json
// @Param request body ChannelRequest true "Channel"
// @Success 201 {object} domain.Channel
// @Failure 409 {object} map[string]string "name taken"
// @Router /api/v1/channels [post]
func (h *Handler) CreateChannel(c *gin.Context) {
	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.checkFeeRate(req.FeeRate); err != nil {
		respondError(c, err, "create channel")
		return
	}

	ch := domain.Channel{Name: req.Name, FeeRate: req.FeeRate}
	id, err := h.store.CreateChannel(c.Request.Context(), ch)
	if err != nil {
		respondError(c, err, "create channel")
		return
	}
	ch.ID = id
	c.JSON(http.StatusCreated, ch)
}

// UpdateChannel godoc
// @Summary Rename a channel or change its fee (admin)
// @Tags channels
// @Accept json
// @Produce json
// @Param id path int true "Channel id"
// @Param request body ChannelRequest true "Channel"
// @Success 200 {object} domain.Channel
// @Router /api/v1/channels/{id} [put]
func (h *Handler) UpdateChannel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.checkFeeRate(req.FeeRate); err != nil {
		respondError(c, err, "update channel")
		return
	}

	ch := domain.Channel{ID: id, Name: req.Name, FeeRate: req.FeeRate}
	if err := h.store.UpdateChannel(c.Request.Context(), ch); err != nil {
		respondError(c, err, "update channel")
		return
	}
	c.JSON(http.StatusOK, ch)
}

// DeleteChannel godoc
// @Summary Remove an unused channel (admin)
// @Tags channels
// @Param id path int true "Channel id"
// @Success 204
// @Failure 409 {object} map[string]string "channel is used by projects"
// @Router /api/v1/channels/{id} [delete]
func (h *Handler) DeleteChannel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteChannel(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete channel")
		return
	}
	c.Status(http.StatusNoContent)
}

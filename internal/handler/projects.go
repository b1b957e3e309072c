// internal/handler/projects.go
package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"studio-settlement/internal/calculator"
	"studio-settlement/internal/domain"

	"github.com/gin-gonic/gin"
)

type DesignerShareRequest struct {
	MemberID int64   `json:"member_id" validate:"required,gt=0"`
	Percent  float64 `json:"percent" validate:"gte=0,lte=100"`
	BonusPct float64 `json:"bonus_pct" validate:"gte=0,lte=100"`
}

type ProjectRequest struct {
	Name        string                 `json:"name" validate:"required,notblank,max=200"`
	ContactID   *int64                 `json:"contact_id" validate:"omitempty,gt=0"`
	ChannelID   int64                  `json:"channel_id" validate:"required,gt=0"`
	GrossAmount int64                  `json:"gross_amount" validate:"required,gt=0"`
	DiscountNet int64                  `json:"discount_net" validate:"gte=0"`
	Status      string                 `json:"status" validate:"required,oneof=planned in_progress completed cancelled"`
	SettleMonth string                 `json:"settle_month" validate:"yearmonth"`
	Memo        string                 `json:"memo" validate:"max=2000"`
	Designers   []DesignerShareRequest `json:"designers" validate:"unique=MemberID,dive"`
}

func (r ProjectRequest) toDomain(id int64) domain.Project {
	designers := make([]domain.DesignerShare, len(r.Designers))
	for i, d := range r.Designers {
		designers[i] = domain.DesignerShare{MemberID: d.MemberID, Percent: d.Percent, BonusPct: d.BonusPct}
	}
	return domain.Project{
		ID:          id,
		Name:        r.Name,
		ContactID:   r.ContactID,
		ChannelID:   r.ChannelID,
		GrossAmount: r.GrossAmount,
		DiscountNet: r.DiscountNet,
		Status:      domain.ProjectStatus(r.Status),
		SettleMonth: r.SettleMonth,
		Memo:        r.Memo,
		Designers:   designers,
	}
}

// checkProject runs the calculator over p with the rates of its settle month,
// so shares that could never be settled are refused at entry.
func (h *Handler) checkProject(ctx context.Context, p *domain.Project) error {
	if p.Status == domain.ProjectCompleted && p.SettleMonth == "" {
		return fmt.Errorf("%w: completed projects need a settle_month", calculator.ErrInvalidInput)
	}
	ch, err := h.store.GetChannel(ctx, p.ChannelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("%w: channel %d does not exist", calculator.ErrInvalidInput, p.ChannelID)
	}
	p.ChannelFeeRate = ch.FeeRate

	_, err = h.settlements.ProjectBreakdown(*p)
	return err
}

// ListProjects godoc
// @Summary List projects, newest first
// @Tags projects
// @Produce json
// @Param status query string false "planned, in_progress, completed or cancelled"
// @Param month query string false "Settle month YYYY-MM"
// @Param member_id query int false "Only projects this member works on"
// @Success 200 {array} domain.Project
// @Router /api/v1/projects [get]
func (h *Handler) ListProjects(c *gin.Context) {
	filter := domain.ProjectFilter{
		Status:      domain.ProjectStatus(c.Query("status")),
		SettleMonth: c.Query("month"),
	}
	if err := validateStruct(struct {
		Status string `json:"status" validate:"omitempty,oneof=planned in_progress completed cancelled"`
		Month  string `json:"month" validate:"yearmonth"`
	}{string(filter.Status), filter.SettleMonth}); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s := c.Query("member_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "member_id must be a positive integer"})
			return
		}
		filter.MemberID = id
	}

	projects, err := h.store.ListProjects(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list projects")
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject godoc
// @Summary Get a project with its designers
// @Tags projects
// @Produce json
// @Param id path int true "Project id"
// @Success 200 {object} domain.Project
// @Failure 404 {object} map[string]string
// @Router /api/v1/projects/{id} [get]
func (h *Handler) GetProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get project")
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// PreviewProject godoc
// @Summary Fees and designer payouts for one project
// @Tags projects
// @Produce json
// @Param id path int true "Project id"
// @Success 200 {object} calculator.ProjectBreakdown
// @Failure 400 {object} map[string]string "shares break the caps"
// @Router /api/v1/projects/{id}/preview [get]
func (h *Handler) PreviewProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "preview project")
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	bd, err := h.settlements.ProjectBreakdown(*p)
	if err != nil {
		respondError(c, err, "preview project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": p.ID, "settle_month": p.SettleMonth, "breakdown": bd})
}

// CreateProject godoc
// @Summary Add a project
// @Tags projects
// @Accept json
// @Produce json
// @Param request body ProjectRequest true "Project"
// @Success 201 {object} domain.Project
// @Failure 400 {object} map[string]string
// @Router /api/v1/projects [post]
func (h *Handler) CreateProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	p := req.toDomain(0)
	if err := h.checkProject(ctx, &p); err != nil {
		respondError(c, err, "create project")
		return
	}
	id, err := h.store.CreateProject(ctx, p)
	if err != nil {
		respondError(c, err, "create project")
		return
	}
	h.addFeed(c, domain.FeedProjectCreated, &id, "Project %q created", p.Name)

	created, err := h.store.GetProject(ctx, id)
	if err != nil {
		respondError(c, err, "create project")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProject godoc
// @Summary Replace a project and its designers
// @Tags projects
// @Accept json
// @Produce json
// @Param id path int true "Project id"
// @Param request body ProjectRequest true "Project"
// @Success 200 {object} domain.Project
// @Router /api/v1/projects/{id} [put]
func (h *Handler) UpdateProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	p := req.toDomain(id)
	if err := h.checkProject(ctx, &p); err != nil {
		respondError(c, err, "update project")
		return
	}
	if err := h.store.UpdateProject(ctx, p); err != nil {
		respondError(c, err, "update project")
		return
	}
	h.addFeed(c, domain.FeedProjectUpdated, &id, "Project %q updated", p.Name)

	updated, err := h.store.GetProject(ctx, id)
	if err != nil {
		respondError(c, err, "update project")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProject godoc
// @Summary Remove a project
// @Tags projects
// @Param id path int true "Project id"
// @Success 204
// @Router /api/v1/projects/{id} [delete]
func (h *Handler) DeleteProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.store.GetProject(ctx, id)
	if err != nil {
		respondError(c, err, "delete project")
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err := h.store.DeleteProject(ctx, id); err != nil {
		respondError(c, err, "delete project")
		return
	}
	h.addFeed(c, domain.FeedProjectDeleted, nil, "Project %q deleted", p.Name)
	c.Status(http.StatusNoContent)
}

// internal/handler/members.go
package handler

import (
	"log/slog"
	"net/http"

	"studio-settlement/internal/auth"
	"studio-settlement/internal/domain"

	"github.com/gin-gonic/gin"
)

type MemberRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Role        string `json:"role" validate:"required,oneof=admin designer"`
	BankName    string `json:"bank_name" validate:"max=100"`
	BankAccount string `json:"bank_account" validate:"max=50"`
	TelegramID  *int64 `json:"telegram_id" validate:"omitempty,gt=0"`
	Active      *bool  `json:"active"`
	// Password is optional on update; empty keeps the current one.
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (r MemberRequest) toDomain(id int64) domain.Member {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return domain.Member{
		ID:          id,
		Name:        r.Name,
		Email:       r.Email,
		Role:        domain.Role(r.Role),
		BankName:    r.BankName,
		BankAccount: r.BankAccount,
		TelegramID:  r.TelegramID,
		Active:      active,
	}
}

// redact hides bank details from everyone but admins and the member.
func redact(c *gin.Context, m domain.Member) domain.Member {
	if id, _ := currentMemberID(c); isAdmin(c) || id == m.ID {
		return m
	}
	m.BankName, m.BankAccount = "", ""
	return m
}

// ListMembers godoc
// @Summary List studio members
// @Tags members
// @Produce json
// @Param active query bool false "Only active members"
// @Success 200 {array} domain.Member
// @Router /api/v1/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.store.ListMembers(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, err, "list members")
		return
	}
	for i := range members {
		members[i] = redact(c, members[i])
	}
	c.JSON(http.StatusOK, members)
}

// GetMember godoc
// @Summary Get a member
// @Tags members
// @Produce json
// @Param id path int true "Member id"
// @Success 200 {object} domain.Member
// @Failure 404 {object} map[string]string
// @Router /api/v1/members/{id} [get]
func (h *Handler) GetMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := h.store.GetMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get member")
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	c.JSON(http.StatusOK, redact(c, *m))
}

// CreateMember godoc
// @Summary Add a member (admin)
// @Tags members
// @Accept json
// @Produce json
// @Param request body MemberRequest true "Member"
// @Success 201 {object} domain.Member
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/members [post]
func (h *Handler) CreateMember(c *gin.Context) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := req.toDomain(0)
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(c, err, "create member")
			return
		}
		m.PasswordHash = hash
	}

	id, err := h.store.CreateMember(c.Request.Context(), m)
	if err != nil {
		respondError(c, err, "create member")
		return
	}
	slog.Info("member created", "member_id", id, "role", m.Role)

	created, err := h.store.GetMember(c.Request.Context(), id)
	if err != nil || created == nil {
		m.ID = id
		created = &m
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateMember godoc
// @Summary Replace a member (admin)
// @Tags members
// @Accept json
// @Produce json
// @Param id path int true "Member id"
// @Param request body MemberRequest true "Member"
// @Success 200 {object} domain.Member
// @Failure 404 {object} map[string]string
// @Router /api/v1/members/{id} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.UpdateMember(ctx, req.toDomain(id)); err != nil {
		respondError(c, err, "update member")
		return
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(c, err, "update member")
			return
		}
		if err := h.store.SetMemberPassword(ctx, id, hash); err != nil {
			respondError(c, err, "update member")
			return
		}
	}

	updated, err := h.store.GetMember(ctx, id)
	if err != nil {
		respondError(c, err, "update member")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMember godoc
// @Summary Remove a member (admin)
// @Tags members
// @Param id path int true "Member id"
// @Success 204
// @Failure 409 {object} map[string]string "member is assigned to projects"
// @Router /api/v1/members/{id} [delete]
func (h *Handler) DeleteMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if self, _ := currentMemberID(c); self == id {
		c.JSON(http.StatusConflict, gin.H{"error": "you cannot delete yourself"})
		return
	}
	if err := h.store.DeleteMember(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete member")
		return
	}
	c.Status(http.StatusNoContent)
}

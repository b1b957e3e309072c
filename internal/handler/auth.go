// internal/handler/auth.go
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"studio-settlement/internal/auth"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login godoc
// @Summary Exchange email and password for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.store.FindMemberByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err, "login")
		return
	}
	// same answer for unknown email, wrong password and disabled member
	if member == nil || !member.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrBadCredentials.Error()})
		return
	}
	if err := auth.CheckPassword(member.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, auth.ErrBadCredentials) {
			respondError(c, err, "login")
			return
		}
		slog.Info("login failed", "member_id", member.ID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrBadCredentials.Error()})
		return
	}

	token, expiresAt, err := h.tokens.GenerateToken(auth.Identity{MemberID: member.ID, Role: member.Role})
	if err != nil {
		slog.Error("token generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt, "member": member})
}

// Me godoc
// @Summary Current member
// @Tags auth
// @Produce json
// @Success 200 {object} domain.Member
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	id, ok := mustMemberID(c)
	if !ok {
		return
	}
	member, err := h.store.GetMember(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get current member")
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	c.JSON(http.StatusOK, member)
}

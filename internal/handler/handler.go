// internal/handler/handler.go
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studio-settlement/internal/auth"
	"studio-settlement/internal/calculator"
	"studio-settlement/internal/domain"
	"studio-settlement/internal/middleware"
	"studio-settlement/internal/settlement"
	"studio-settlement/internal/storage"

	val "studio-settlement/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// SummaryCache is optional; a nil cache means every summary is read from storage.
type SummaryCache interface {
	Get(ctx context.Context, month string) ([]domain.MemberSummary, bool, error)
	Set(ctx context.Context, month string, summaries []domain.MemberSummary) error
	Invalidate(ctx context.Context, month string) error
}

type Handler struct {
	store       storage.Store
	settlements *settlement.Service
	tokens      *auth.TokenService
	cache       SummaryCache
}

func NewHandler(store storage.Store, settlements *settlement.Service, tokens *auth.TokenService, cache SummaryCache) *Handler {
	return &Handler{store: store, settlements: settlements, tokens: tokens, cache: cache}
}

func currentMemberID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.KeyMemberID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get(middleware.KeyRole)
	return role == domain.RoleAdmin
}

// mustMemberID aborts with 500 when the auth middleware did not run.
func mustMemberID(c *gin.Context) (int64, bool) {
	id, ok := currentMemberID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "member_id missing"})
	}
	return id, ok
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func parseMonthParam(c *gin.Context) (string, bool) {
	month := c.Param("month")
	if _, err := time.Parse("2006-01", month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be in YYYY-MM format"})
		return "", false
	}
	return month, true
}

// respondError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without details.
func respondError(c *gin.Context, err error, action string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrSettlementLocked),
		errors.Is(err, settlement.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, storage.ErrBadReference),
		errors.Is(err, settlement.ErrInvalidShares),
		errors.Is(err, calculator.ErrInvalidInput),
		errors.Is(err, calculator.ErrShareLimit),
		errors.Is(err, calculator.ErrNoRates):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.Error(action+" failed", "error", err, "path", c.FullPath())
		c.JSON(status, gin.H{"error": "Internal error"})
		return
	}
	slog.Debug(action+" rejected", "error", err, "status", status)
	c.JSON(status, gin.H{"error": err.Error()})
}

// addFeed records a feed item; failures are logged and otherwise ignored.
func (h *Handler) addFeed(c *gin.Context, kind domain.FeedKind, projectID *int64, format string, args ...any) {
	item := domain.FeedItem{Kind: kind, ProjectID: projectID, Message: fmt.Sprintf(format, args...)}
	if id, ok := currentMemberID(c); ok {
		item.ActorID = &id
	}
	if _, err := h.store.AddFeedItem(c.Request.Context(), item); err != nil {
		slog.Warn("could not record feed item", "kind", kind, "error", err)
	}
}

func validateStruct(v any) error {
	if err := val.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("invalid input: %w", err)
		}
		var errs []string
		for _, e := range verrs {
			errs = append(errs, fieldErrorToString(e))
		}
		return fmt.Errorf("invalid input: %s", strings.Join(errs, "; "))
	}
	return nil
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "yearmonth":
		return fmt.Sprintf("%s must be in YYYY-MM format", e.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", e.Field())
	case "ratio":
		return fmt.Sprintf("%s must be a fraction between 0 and 1", e.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	case "unique":
		return fmt.Sprintf("%s must not list the same member twice", e.Field())
	case "min":
		if e.Param() == "1" && e.Kind().String() == "slice" {
			return fmt.Sprintf("%s must not be empty", e.Field())
		}
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}

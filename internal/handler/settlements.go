// internal/handler/settlements.go
package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"studio-settlement/internal/domain"

	"github.com/gin-gonic/gin"
)

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft confirmed paid"`
}

// ListSettlements godoc
// @Summary Settlement headers with totals, newest month first
// @Tags settlements
// @Produce json
// @Success 200 {array} domain.Settlement
// @Router /api/v1/settlements [get]
func (h *Handler) ListSettlements(c *gin.Context) {
	list, err := h.store.ListSettlements(c.Request.Context())
	if err != nil {
		respondError(c, err, "list settlements")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetSettlement godoc
// @Summary Saved settlement of a month with its items
// @Tags settlements
// @Produce json
// @Param month path string true "YYYY-MM"
// @Success 200 {object} domain.Settlement
// @Failure 404 {object} map[string]string
// @Router /api/v1/settlements/{month} [get]
func (h *Handler) GetSettlement(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}
	st, err := h.store.GetSettlement(c.Request.Context(), month)
	if err != nil {
		respondError(c, err, "get settlement")
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no settlement for " + month})
		return
	}
	c.JSON(http.StatusOK, st)
}

// PreviewSettlement godoc
// @Summary Compute a month without saving it
// @Tags settlements
// @Produce json
// @Param month path string true "YYYY-MM"
// @Success 200 {object} domain.Settlement
// @Failure 400 {object} map[string]string "a project's shares break the caps"
// @Router /api/v1/settlements/{month}/preview [get]
func (h *Handler) PreviewSettlement(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}
	st, err := h.settlements.Preview(c.Request.Context(), month)
	if err != nil {
		respondError(c, err, "preview settlement")
		return
	}
	c.JSON(http.StatusOK, st)
}

// GenerateSettlement godoc
// @Summary Recompute and save the month's draft (admin)
// @Tags settlements
// @Produce json
// @Param month path string true "YYYY-MM"
// @Success 200 {object} domain.Settlement
// @Failure 409 {object} map[string]string "already confirmed or paid"
// @Router /api/v1/settlements/{month}/generate [post]
func (h *Handler) GenerateSettlement(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}
	actor, _ := currentMemberID(c)

	st, err := h.settlements.Generate(c.Request.Context(), month, actor)
	if err != nil {
		respondError(c, err, "generate settlement")
		return
	}
	h.invalidateSummary(c, month)
	c.JSON(http.StatusOK, st)
}

// SetSettlementStatus godoc
// @Summary Confirm, reopen or mark a settlement paid (admin)
// @Tags settlements
// @Accept json
// @Produce json
// @Param month path string true "YYYY-MM"
// @Param request body StatusRequest true "Target status"
// @Success 200 {object} domain.Settlement
// @Failure 409 {object} map[string]string "transition not allowed"
// @Router /api/v1/settlements/{month}/status [post]
func (h *Handler) SetSettlementStatus(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, _ := currentMemberID(c)

	st, err := h.settlements.Transition(c.Request.Context(), month, domain.SettlementStatus(req.Status), actor)
	if err != nil {
		respondError(c, err, "change settlement status")
		return
	}
	h.invalidateSummary(c, month)
	c.JSON(http.StatusOK, st)
}

// SettlementSummary godoc
// @Summary Per-member totals of a saved settlement
// @Tags settlements
// @Produce json
// @Param month path string true "YYYY-MM"
// @Success 200 {object} map[string]any
// @Router /api/v1/settlements/{month}/summary [get]
func (h *Handler) SettlementSummary(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.cache != nil {
		sums, hit, err := h.cache.Get(ctx, month)
		if err != nil {
			slog.Warn("summary cache read failed", "month", month, "error", err)
		} else if hit {
			c.JSON(http.StatusOK, gin.H{"month": month, "members": sums, "cached": true})
			return
		}
	}

	sums, err := h.store.MemberSummaries(ctx, month)
	if err != nil {
		respondError(c, err, "settlement summary")
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, month, sums); err != nil {
			slog.Warn("summary cache write failed", "month", month, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"month": month, "members": sums, "cached": false})
}

// ExportSettlement godoc
// @Summary Settlement items as CSV for the bank transfer sheet
// @Tags settlements
// @Produce text/csv
// @Param month path string true "YYYY-MM"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /api/v1/settlements/{month}/export [get]
func (h *Handler) ExportSettlement(c *gin.Context) {
	month, ok := parseMonthParam(c)
	if !ok {
		return
	}
	st, err := h.store.GetSettlement(c.Request.Context(), month)
	if err != nil {
		respondError(c, err, "export settlement")
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no settlement for " + month})
		return
	}

	data, err := settlementCSV(st)
	if err != nil {
		respondError(c, err, "export settlement")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="settlement-%s.csv"`, month))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

var csvHeader = []string{
	"month", "status", "project_id", "project_name", "member_id", "member_name",
	"percent", "bonus_pct", "gross_amount", "distributable_net",
	"amount_before_withholding", "withholding_3_3", "amount_after_withholding",
}

// settlementCSV starts with a UTF-8 BOM so spreadsheet apps read Korean names correctly.
func settlementCSV(st *domain.Settlement) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	i64 := func(v int64) string { return strconv.FormatInt(v, 10) }
	f64 := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, it := range st.Items {
		row := []string{
			st.Month, string(st.Status), i64(it.ProjectID), it.ProjectName, i64(it.MemberID), it.MemberName,
			f64(it.Percent), f64(it.BonusPct), i64(it.GrossAmount), i64(it.DistributableNet),
			i64(it.AmountBeforeWithholding), i64(it.Withholding), i64(it.AmountAfterWithholding),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *Handler) invalidateSummary(c *gin.Context, month string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(c.Request.Context(), month); err != nil {
		slog.Warn("summary cache invalidation failed", "month", month, "error", err)
	}
}

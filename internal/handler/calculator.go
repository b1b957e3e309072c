// internal/handler/calculator.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type FeesRequest struct {
	GrossAmount    int64   `json:"gross_amount" validate:"gte=0"`
	DiscountNet    int64   `json:"discount_net" validate:"gte=0"`
	ChannelFeeRate float64 `json:"channel_fee_rate" validate:"ratio"`
	Month          string  `json:"month" validate:"yearmonth"`
}

type SettlementRequest struct {
	GrossAmount     int64   `json:"gross_amount" validate:"gte=0"`
	DiscountNet     int64   `json:"discount_net" validate:"gte=0"`
	DesignerPercent float64 `json:"designer_percent" validate:"gte=0,lte=100"`
	BonusPct        float64 `json:"bonus_pct" validate:"gte=0,lte=100"`
	Month           string  `json:"month" validate:"yearmonth"`
}

// CalculateFees godoc
// @Summary Fee breakdown for an invoiced amount
// @Tags calculator
// @Accept json
// @Produce json
// @Param request body FeesRequest true "Amounts"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/calculator/fees [post]
func (h *Handler) CalculateFees(c *gin.Context) {
	var req FeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	calc, err := h.settlements.Rates().CalculatorFor(req.Month)
	if err != nil {
		respondError(c, err, "calculate fees")
		return
	}
	fees, err := calc.Fees(req.GrossAmount, req.DiscountNet, req.ChannelFeeRate)
	if err != nil {
		respondError(c, err, "calculate fees")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate_version": calc.Rates().Version, "fees": fees})
}

// CalculateSettlement godoc
// @Summary One designer's payout for an invoiced amount
// @Tags calculator
// @Accept json
// @Produce json
// @Param request body SettlementRequest true "Amounts and shares"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/calculator/settlement [post]
func (h *Handler) CalculateSettlement(c *gin.Context) {
	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	calc, err := h.settlements.Rates().CalculatorFor(req.Month)
	if err != nil {
		respondError(c, err, "calculate settlement")
		return
	}
	amount, err := calc.Settlement(req.GrossAmount, req.DiscountNet, req.DesignerPercent, req.BonusPct)
	if err != nil {
		respondError(c, err, "calculate settlement")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rate_version": calc.Rates().Version, "settlement": amount})
}

// ListRates godoc
// @Summary Rate versions, oldest first
// @Tags calculator
// @Produce json
// @Success 200 {array} calculator.Rates
// @Router /api/v1/calculator/rates [get]
func (h *Handler) ListRates(c *gin.Context) {
	c.JSON(http.StatusOK, h.settlements.Rates().Versions())
}

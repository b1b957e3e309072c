// internal/calculator/calculator.go

// Package calculator turns a project's invoiced amount into fees, the net
// distributable amount and per-designer payouts.
//
// Every derived amount is rounded half-up to whole KRW right after its
// percentage multiplication, using exact decimal arithmetic. Subtractions are
// never rounded, so FeeBreakdown always reconciles to the gross amount.
package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput wraps every rejected argument. No partial result is
// returned alongside it.
var ErrInvalidInput = errors.New("invalid calculator input")

var hundred = decimal.NewFromInt(100)

type FeeBreakdown struct {
	GrossAmount      int64 `json:"gross_amount"`
	DiscountNet      int64 `json:"discount_net"`
	VATAmount        int64 `json:"vat_amount"`
	NetAfterVAT      int64 `json:"net_after_vat"`
	PostDiscountNet  int64 `json:"post_discount_net"`
	AdFee            int64 `json:"ad_fee"`
	ProgramFee       int64 `json:"program_fee"`
	ChannelFee       int64 `json:"channel_fee"`
	DistributableNet int64 `json:"distributable_net"`
}

type SettlementAmount struct {
	NetAmount         int64 `json:"net_amount"`
	BaseAmount        int64 `json:"base_amount"`
	BonusAmount       int64 `json:"bonus_amount"`
	BeforeWithholding int64 `json:"before_withholding"`
	WithholdingTax    int64 `json:"withholding_tax"`
	AfterWithholding  int64 `json:"after_withholding"`
}

// Calculator is immutable and safe for concurrent use.
type Calculator struct {
	rates Rates
}

func New(r Rates) (*Calculator, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{rates: r}, nil
}

func (c *Calculator) Rates() Rates {
	return c.rates
}

// Fees computes VAT, the discount-adjusted net and the ad/program/channel
// fees taken from it.
func (c *Calculator) Fees(grossAmount, discountNet int64, channelFeeRate float64) (FeeBreakdown, error) {
	if err := checkRange("channel fee rate", channelFeeRate, 0, 1); err != nil {
		return FeeBreakdown{}, err
	}
	rate := decimal.NewFromFloat(channelFeeRate)
	if limit := c.rates.MaxChannelFeeRate(); rate.GreaterThan(limit) {
		return FeeBreakdown{}, fmt.Errorf("%w: channel fee rate %s exceeds the %s left after ad and program fees",
			ErrInvalidInput, rate, limit)
	}
	vat, netAfterVAT, post, err := c.net(grossAmount, discountNet)
	if err != nil {
		return FeeBreakdown{}, err
	}

	postD := decimal.NewFromInt(post)
	adFee := roundKRW(postD.Mul(c.rates.AdFeeRate))
	programFee := roundKRW(postD.Mul(c.rates.ProgramFeeRate))
	channelFee := roundKRW(postD.Mul(rate))

	// At the rate limit the three roundings can overshoot by a won or two;
	// the channel fee absorbs it.
	distributable := post - adFee - programFee - channelFee
	if distributable < 0 {
		channelFee += distributable
		distributable = 0
	}

	return FeeBreakdown{
		GrossAmount:      grossAmount,
		DiscountNet:      discountNet,
		VATAmount:        vat,
		NetAfterVAT:      netAfterVAT,
		PostDiscountNet:  post,
		AdFee:            adFee,
		ProgramFee:       programFee,
		ChannelFee:       channelFee,
		DistributableNet: distributable,
	}, nil
}

// Settlement computes one designer's payout. Percentages apply to the
// VAT-excluded, discount-adjusted net, not to the distributable amount.
func (c *Calculator) Settlement(grossAmount, discountNet int64, designerPercent, bonusPct float64) (SettlementAmount, error) {
	if err := checkRange("designer percent", designerPercent, 0, 100); err != nil {
		return SettlementAmount{}, err
	}
	bonusCap, _ := c.rates.BonusCapPct.Float64()
	if err := checkRange("bonus percent", bonusPct, 0, bonusCap); err != nil {
		return SettlementAmount{}, err
	}
	_, _, post, err := c.net(grossAmount, discountNet)
	if err != nil {
		return SettlementAmount{}, err
	}

	postD := decimal.NewFromInt(post)
	base := roundKRW(postD.Mul(decimal.NewFromFloat(designerPercent)).Shift(-2))
	bonus := roundKRW(postD.Mul(decimal.NewFromFloat(bonusPct)).Shift(-2))
	before := base + bonus
	tax, after := c.Withholding(before)

	return SettlementAmount{
		NetAmount:         post,
		BaseAmount:        base,
		BonusAmount:       bonus,
		BeforeWithholding: before,
		WithholdingTax:    tax,
		AfterWithholding:  after,
	}, nil
}

// Withholding splits a pre-tax payout into the withheld tax and the amount
// paid out. Negative input is treated as zero.
func (c *Calculator) Withholding(beforeWithholding int64) (tax, after int64) {
	if beforeWithholding <= 0 {
		return 0, 0
	}
	tax = roundKRW(decimal.NewFromInt(beforeWithholding).Mul(c.rates.WithholdingRate))
	return tax, beforeWithholding - tax
}

func (c *Calculator) net(grossAmount, discountNet int64) (vat, netAfterVAT, postDiscount int64, err error) {
	if grossAmount <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: gross amount must be positive, got %d", ErrInvalidInput, grossAmount)
	}
	if discountNet < 0 {
		return 0, 0, 0, fmt.Errorf("%w: discount must not be negative, got %d", ErrInvalidInput, discountNet)
	}

	vat = roundKRW(decimal.NewFromInt(grossAmount).Mul(c.rates.VATRate))
	netAfterVAT = grossAmount - vat
	if discountNet > netAfterVAT {
		return 0, 0, 0, fmt.Errorf("%w: discount %d exceeds net amount after VAT %d",
			ErrInvalidInput, discountNet, netAfterVAT)
	}
	return vat, netAfterVAT, netAfterVAT - discountNet, nil
}

func roundKRW(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func checkRange(name string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
	}
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %g and %g, got %g", ErrInvalidInput, name, lo, hi, v)
	}
	return nil
}

// internal/calculator/shares.go
package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrShareLimit is returned when designer shares of one project break the
// pool or bonus caps, or pay out more than the distributable net.
var ErrShareLimit = errors.New("designer shares exceed limits")

type DesignerShare struct {
	MemberID int64   `json:"member_id"`
	Percent  float64 `json:"percent"`
	BonusPct float64 `json:"bonus_pct"`
}

type ProjectFinancials struct {
	GrossAmount    int64   `json:"gross_amount"`
	DiscountNet    int64   `json:"discount_net"`
	ChannelFeeRate float64 `json:"channel_fee_rate"`
}

type DesignerPayout struct {
	DesignerShare
	SettlementAmount
}

type ProjectBreakdown struct {
	Fees                   FeeBreakdown     `json:"fees"`
	Payouts                []DesignerPayout `json:"payouts"`
	TotalBeforeWithholding int64            `json:"total_before_withholding"`
	TotalWithholding       int64            `json:"total_withholding"`
	TotalAfterWithholding  int64            `json:"total_after_withholding"`
	StudioRemainder        int64            `json:"studio_remainder"`
}

// CheckShares validates the shares of a single project against the pool and
// bonus caps of r. Sums are taken in decimal so 13.3+13.3+13.4 equals 40.
func CheckShares(shares []DesignerShare, r Rates) error {
	percentSum := decimal.Zero
	bonusSum := decimal.Zero
	seen := make(map[int64]bool, len(shares))
	bonusCap, _ := r.BonusCapPct.Float64()

	for _, s := range shares {
		if s.MemberID <= 0 {
			return fmt.Errorf("%w: member id must be positive", ErrInvalidInput)
		}
		if seen[s.MemberID] {
			return fmt.Errorf("%w: member %d listed twice", ErrInvalidInput, s.MemberID)
		}
		seen[s.MemberID] = true

		if err := checkRange("designer percent", s.Percent, 0, 100); err != nil {
			return err
		}
		if err := checkRange("bonus percent", s.BonusPct, 0, bonusCap); err != nil {
			return err
		}
		percentSum = percentSum.Add(decimal.NewFromFloat(s.Percent))
		bonusSum = bonusSum.Add(decimal.NewFromFloat(s.BonusPct))
	}

	if percentSum.GreaterThan(r.DesignerPoolPct) {
		return fmt.Errorf("%w: designer percent total %s exceeds pool of %s",
			ErrShareLimit, percentSum, r.DesignerPoolPct)
	}
	if bonusSum.GreaterThan(r.BonusCapPct) {
		return fmt.Errorf("%w: bonus percent total %s exceeds cap of %s",
			ErrShareLimit, bonusSum, r.BonusCapPct)
	}
	return nil
}

// CheckPayoutFits verifies that the summed pre-tax payouts stay within the
// distributable net of fees.
func CheckPayoutFits(fees FeeBreakdown, amounts []SettlementAmount) error {
	var total int64
	for _, a := range amounts {
		total += a.BeforeWithholding
	}
	if total > fees.DistributableNet {
		return fmt.Errorf("%w: payouts %d exceed distributable net %d",
			ErrShareLimit, total, fees.DistributableNet)
	}
	return nil
}

// Project computes fees and every designer's payout for one project,
// enforcing the share caps and the distributable-net bound.
func (c *Calculator) Project(f ProjectFinancials, shares []DesignerShare) (ProjectBreakdown, error) {
	if err := CheckShares(shares, c.rates); err != nil {
		return ProjectBreakdown{}, err
	}
	fees, err := c.Fees(f.GrossAmount, f.DiscountNet, f.ChannelFeeRate)
	if err != nil {
		return ProjectBreakdown{}, err
	}

	out := ProjectBreakdown{
		Fees:    fees,
		Payouts: make([]DesignerPayout, 0, len(shares)),
	}
	amounts := make([]SettlementAmount, 0, len(shares))
	for _, s := range shares {
		amt, err := c.Settlement(f.GrossAmount, f.DiscountNet, s.Percent, s.BonusPct)
		if err != nil {
			return ProjectBreakdown{}, fmt.Errorf("member %d: %w", s.MemberID, err)
		}
		amounts = append(amounts, amt)
		out.Payouts = append(out.Payouts, DesignerPayout{DesignerShare: s, SettlementAmount: amt})
		out.TotalBeforeWithholding += amt.BeforeWithholding
		out.TotalWithholding += amt.WithholdingTax
		out.TotalAfterWithholding += amt.AfterWithholding
	}
	if err := CheckPayoutFits(fees, amounts); err != nil {
		return ProjectBreakdown{}, err
	}
	out.StudioRemainder = fees.DistributableNet - out.TotalBeforeWithholding
	return out, nil
}

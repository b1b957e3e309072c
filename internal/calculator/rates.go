// internal/calculator/rates.go
package calculator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoRates is returned when no rate version is in force for a month.
var ErrNoRates = errors.New("no rate version in force")

// Rates is one version of the studio constants. A version applies from
// EffectiveFrom (YYYY-MM) until the next version starts.
type Rates struct {
	Version         string          `json:"version"`
	EffectiveFrom   string          `json:"effective_from"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	AdFeeRate       decimal.Decimal `json:"ad_fee_rate"`
	ProgramFeeRate  decimal.Decimal `json:"program_fee_rate"`
	WithholdingRate decimal.Decimal `json:"withholding_rate"`
	DesignerPoolPct decimal.Decimal `json:"designer_pool_pct"`
	BonusCapPct     decimal.Decimal `json:"bonus_cap_pct"`
}

// DefaultRates returns the rate version the studio has used since 2024-01.
func DefaultRates() Rates {
	return Rates{
		Version:         "2024-01",
		EffectiveFrom:   "2024-01",
		VATRate:         decimal.RequireFromString("0.1"),
		AdFeeRate:       decimal.RequireFromString("0.10"),
		ProgramFeeRate:  decimal.RequireFromString("0.03"),
		WithholdingRate: decimal.RequireFromString("0.033"),
		DesignerPoolPct: decimal.NewFromInt(40),
		BonusCapPct:     decimal.NewFromInt(20),
	}
}

// MaxChannelFeeRate is the largest channel fee rate that still leaves a
// non-negative distributable amount after the ad and program fees.
func (r Rates) MaxChannelFeeRate() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(r.AdFeeRate).Sub(r.ProgramFeeRate)
}

func (r Rates) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Version) == "" {
		errs = append(errs, "version is required")
	}
	if _, err := time.Parse("2006-01", r.EffectiveFrom); err != nil {
		errs = append(errs, fmt.Sprintf("effective_from %q must be in YYYY-MM format", r.EffectiveFrom))
	}

	one := decimal.NewFromInt(1)
	fractions := []struct {
		name string
		v    decimal.Decimal
	}{
		{"vat_rate", r.VATRate},
		{"ad_fee_rate", r.AdFeeRate},
		{"program_fee_rate", r.ProgramFeeRate},
		{"withholding_rate", r.WithholdingRate},
	}
	for _, f := range fractions {
		if f.v.IsNegative() || f.v.GreaterThanOrEqual(one) {
			errs = append(errs, fmt.Sprintf("%s must be in [0, 1), got %s", f.name, f.v))
		}
	}
	if r.AdFeeRate.Add(r.ProgramFeeRate).GreaterThanOrEqual(one) {
		errs = append(errs, "ad_fee_rate + program_fee_rate must be below 1")
	}
	if !r.DesignerPoolPct.IsPositive() || r.DesignerPoolPct.GreaterThan(hundred) {
		errs = append(errs, fmt.Sprintf("designer_pool_pct must be in (0, 100], got %s", r.DesignerPoolPct))
	}
	if r.BonusCapPct.IsNegative() || r.BonusCapPct.GreaterThan(hundred) {
		errs = append(errs, fmt.Sprintf("bonus_cap_pct must be in [0, 100], got %s", r.BonusCapPct))
	}

	if len(errs) > 0 {
		return fmt.Errorf("rates %q: %s", r.Version, strings.Join(errs, "; "))
	}
	return nil
}

// RateTable holds rate versions ordered by EffectiveFrom.
type RateTable struct {
	versions []Rates
}

func NewRateTable(versions ...Rates) (RateTable, error) {
	if len(versions) == 0 {
		return RateTable{}, errors.New("rate table needs at least one version")
	}

	sorted := make([]Rates, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom < sorted[j].EffectiveFrom
	})

	seenVersion := make(map[string]bool, len(sorted))
	for i, r := range sorted {
		if err := r.Validate(); err != nil {
			return RateTable{}, err
		}
		if seenVersion[r.Version] {
			return RateTable{}, fmt.Errorf("duplicate rate version %q", r.Version)
		}
		seenVersion[r.Version] = true
		if i > 0 && sorted[i-1].EffectiveFrom == r.EffectiveFrom {
			return RateTable{}, fmt.Errorf("rate versions %q and %q start in the same month %s",
				sorted[i-1].Version, r.Version, r.EffectiveFrom)
		}
	}

	return RateTable{versions: sorted}, nil
}

func DefaultRateTable() RateTable {
	return RateTable{versions: []Rates{DefaultRates()}}
}

// For returns the version in force for month (YYYY-MM). An empty month
// selects the latest version.
func (t RateTable) For(month string) (Rates, error) {
	if len(t.versions) == 0 {
		return Rates{}, ErrNoRates
	}
	if month == "" {
		return t.Latest(), nil
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return Rates{}, fmt.Errorf("%w: month %q must be in YYYY-MM format", ErrInvalidInput, month)
	}

	// YYYY-MM sorts lexicographically in calendar order.
	for i := len(t.versions) - 1; i >= 0; i-- {
		if t.versions[i].EffectiveFrom <= month {
			return t.versions[i], nil
		}
	}
	return Rates{}, fmt.Errorf("%w: month %s is before %s", ErrNoRates, month, t.versions[0].EffectiveFrom)
}

func (t RateTable) Latest() Rates {
	if len(t.versions) == 0 {
		return DefaultRates()
	}
	return t.versions[len(t.versions)-1]
}

func (t RateTable) Versions() []Rates {
	out := make([]Rates, len(t.versions))
	copy(out, t.versions)
	return out
}

// CalculatorFor builds a Calculator with the rates in force for month.
func (t RateTable) CalculatorFor(month string) (*Calculator, error) {
	r, err := t.For(month)
	if err != nil {
		return nil, err
	}
	return New(r)
}

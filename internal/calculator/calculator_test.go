package calculator

import (
	"errors"
	"math"
	"testing"
)

func mustDefault(t *testing.T) *Calculator {
	t.Helper()
	c, err := New(DefaultRates())
	if err != nil {
		t.Fatalf("New(DefaultRates()) failed: %v", err)
	}
	return c
}

// halfUp is round(v*num/den) in integers for non-negative v.
func halfUp(v, num, den int64) int64 {
	return (v*num*2 + den) / (den * 2)
}

// ============================================================================
// Golden values
// ============================================================================

func TestFees_GrossWithChannelFee(t *testing.T) {
	c := mustDefault(t)

	got, err := c.Fees(1_100_000, 0, 0.21)
	if err != nil {
		t.Fatalf("Fees returned error: %v", err)
	}

	want := FeeBreakdown{
		GrossAmount:      1_100_000,
		DiscountNet:      0,
		VATAmount:        110_000,
		NetAfterVAT:      990_000,
		PostDiscountNet:  990_000,
		AdFee:            99_000,
		ProgramFee:       29_700,
		ChannelFee:       207_900,
		DistributableNet: 653_400,
	}
	if got != want {
		t.Errorf("Fees mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestSettlement_FullPoolNoBonus(t *testing.T) {
	c := mustDefault(t)

	got, err := c.Settlement(1_000_000, 0, 40, 0)
	if err != nil {
		t.Fatalf("Settlement returned error: %v", err)
	}
	if got.NetAmount != 900_000 {
		t.Errorf("NetAmount = %d, want 900000", got.NetAmount)
	}
	if got.BeforeWithholding != 360_000 {
		t.Errorf("BeforeWithholding = %d, want 360000", got.BeforeWithholding)
	}
	if got.WithholdingTax != 11_880 {
		t.Errorf("WithholdingTax = %d, want 11880", got.WithholdingTax)
	}
	if got.AfterWithholding != 348_120 {
		t.Errorf("AfterWithholding = %d, want 348120", got.AfterWithholding)
	}
}

func TestSettlement_SharesSumToPool(t *testing.T) {
	c := mustDefault(t)

	testCases := []struct {
		name     string
		gross    int64
		discount int64
		percents []float64
	}{
		{"even split", 1_000_000, 0, []float64{15, 15, 10}},
		{"uneven rounding", 1_234_567, 0, []float64{13.3, 13.3, 13.4}},
		{"with discount", 2_750_001, 50_000, []float64{20, 12.5, 7.5}},
		{"single designer", 333_333, 0, []float64{40}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var sum, post int64
			for _, p := range tc.percents {
				amt, err := c.Settlement(tc.gross, tc.discount, p, 0)
				if err != nil {
					t.Fatalf("Settlement(%v) error: %v", p, err)
				}
				sum += amt.BeforeWithholding
				post = amt.NetAmount
			}

			pool := halfUp(post, 40, 100)
			tolerance := int64(len(tc.percents))
			if diff := sum - pool; diff > tolerance || diff < -tolerance {
				t.Errorf("sum of payouts %d differs from pool %d by %d (tolerance %d)", sum, pool, diff, tolerance)
			}
		})
	}
}

// ============================================================================
// Properties
// ============================================================================

func TestFees_Idempotent(t *testing.T) {
	c := mustDefault(t)

	first, err := c.Fees(3_456_789, 12_345, 0.155)
	if err != nil {
		t.Fatalf("Fees error: %v", err)
	}
	second, err := c.Fees(3_456_789, 12_345, 0.155)
	if err != nil {
		t.Fatalf("Fees error: %v", err)
	}
	if first != second {
		t.Errorf("repeated call differs: %+v vs %+v", first, second)
	}

	a1, _ := c.Settlement(3_456_789, 12_345, 17.5, 3)
	a2, _ := c.Settlement(3_456_789, 12_345, 17.5, 3)
	if a1 != a2 {
		t.Errorf("repeated Settlement differs: %+v vs %+v", a1, a2)
	}
}

func TestFees_Conservation(t *testing.T) {
	c := mustDefault(t)

	grosses := []int64{1, 9, 11, 999, 1_000_000, 1_234_567, 98_765_432}
	rates := []float64{0, 0.05, 0.21, 0.333, 0.5}

	for _, g := range grosses {
		for _, r := range rates {
			for _, disc := range []int64{0, g / 7} {
				fees, err := c.Fees(g, disc, r)
				if err != nil {
					t.Fatalf("Fees(%d, %d, %v) error: %v", g, disc, r, err)
				}
				total := fees.DistributableNet + fees.AdFee + fees.ProgramFee + fees.ChannelFee + fees.DiscountNet + fees.VATAmount
				if total != g {
					t.Errorf("Fees(%d, %d, %v): components sum to %d", g, disc, r, total)
				}
				if fees.DistributableNet < 0 {
					t.Errorf("Fees(%d, %d, %v): negative distributable %d", g, disc, r, fees.DistributableNet)
				}
			}
		}
	}
}

func TestWithholding_Correctness(t *testing.T) {
	c := mustDefault(t)

	for before := int64(0); before <= 200_000; before += 37 {
		tax, after := c.Withholding(before)
		wantTax := halfUp(before, 33, 1000)
		if tax != wantTax {
			t.Fatalf("Withholding(%d) tax = %d, want %d", before, tax, wantTax)
		}
		if after != before-wantTax {
			t.Fatalf("Withholding(%d) after = %d, want %d", before, after, before-wantTax)
		}
	}

	// 500 * 0.033 = 16.5 rounds up
	if tax, _ := c.Withholding(500); tax != 17 {
		t.Errorf("Withholding(500) tax = %d, want 17", tax)
	}
}

func TestSettlement_MonotonicInPercent(t *testing.T) {
	c := mustDefault(t)

	prev := int64(-1)
	for p := 0.0; p <= 100; p += 0.25 {
		amt, err := c.Settlement(1_234_567, 1_000, p, 5)
		if err != nil {
			t.Fatalf("Settlement(%v) error: %v", p, err)
		}
		if amt.BeforeWithholding < prev {
			t.Fatalf("BeforeWithholding decreased at percent %v: %d < %d", p, amt.BeforeWithholding, prev)
		}
		prev = amt.BeforeWithholding
	}
}

func TestSettlement_ZeroShare(t *testing.T) {
	c := mustDefault(t)

	amt, err := c.Settlement(5_000_000, 0, 0, 0)
	if err != nil {
		t.Fatalf("Settlement error: %v", err)
	}
	if amt.BeforeWithholding != 0 || amt.AfterWithholding != 0 || amt.WithholdingTax != 0 {
		t.Errorf("expected zero payout, got %+v", amt)
	}
}

func TestSettlement_BonusAddsToBase(t *testing.T) {
	c := mustDefault(t)

	amt, err := c.Settlement(1_000_000, 100_000, 10, 5)
	if err != nil {
		t.Fatalf("Settlement error: %v", err)
	}
	// post = 900,000 - 100,000 = 800,000
	if amt.BaseAmount != 80_000 || amt.BonusAmount != 40_000 {
		t.Errorf("base/bonus = %d/%d, want 80000/40000", amt.BaseAmount, amt.BonusAmount)
	}
	if amt.BeforeWithholding != 120_000 || amt.WithholdingTax != 3_960 || amt.AfterWithholding != 116_040 {
		t.Errorf("unexpected amounts: %+v", amt)
	}
}

// ============================================================================
// Invalid input
// ============================================================================

func TestFees_RejectsInvalidInput(t *testing.T) {
	c := mustDefault(t)

	testCases := []struct {
		name     string
		gross    int64
		discount int64
		rate     float64
	}{
		{"zero gross", 0, 0, 0.1},
		{"negative gross", -1_000, 0, 0.1},
		{"negative discount", 1_000_000, -1, 0.1},
		{"discount above net", 1_000_000, 900_001, 0.1},
		{"rate above one", 1_000_000, 0, 1.5},
		{"negative rate", 1_000_000, 0, -0.01},
		{"NaN rate", 1_000_000, 0, math.NaN()},
		{"infinite rate", 1_000_000, 0, math.Inf(1)},
		{"fees exceed net", 1_000_000, 0, 1.0},
		{"rate just above the limit", 1_100_000, 0, 0.88},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Fees(tc.gross, tc.discount, tc.rate)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if got != (FeeBreakdown{}) {
				t.Errorf("expected no partial result, got %+v", got)
			}
		})
	}
}

func TestFees_ChannelRateAtLimit(t *testing.T) {
	c := mustDefault(t)

	if got := DefaultRates().MaxChannelFeeRate().String(); got != "0.87" {
		t.Fatalf("MaxChannelFeeRate = %s, want 0.87", got)
	}

	// gross 28 leaves a net of 25, where ad 2.5 and channel 21.75 both round up
	for _, g := range []int64{28, 55, 1_100_000, 98_765_432} {
		fees, err := c.Fees(g, 0, 0.87)
		if err != nil {
			t.Fatalf("Fees(%d, 0, 0.87) error: %v", g, err)
		}
		if fees.DistributableNet < 0 || fees.DistributableNet > 1 {
			t.Errorf("Fees(%d, 0, 0.87): distributable %d, want 0 or 1", g, fees.DistributableNet)
		}
		if total := fees.DistributableNet + fees.AdFee + fees.ProgramFee + fees.ChannelFee + fees.VATAmount; total != g {
			t.Errorf("Fees(%d, 0, 0.87): components sum to %d", g, total)
		}
	}
}

func TestFees_DiscountEqualToNetIsAllowed(t *testing.T) {
	c := mustDefault(t)

	fees, err := c.Fees(1_000_000, 900_000, 0.2)
	if err != nil {
		t.Fatalf("Fees error: %v", err)
	}
	if fees.PostDiscountNet != 0 || fees.DistributableNet != 0 {
		t.Errorf("expected zero net, got %+v", fees)
	}
}

func TestSettlement_RejectsInvalidInput(t *testing.T) {
	c := mustDefault(t)

	testCases := []struct {
		name    string
		gross   int64
		percent float64
		bonus   float64
	}{
		{"percent above 100", 1_000_000, 100.5, 0},
		{"negative percent", 1_000_000, -1, 0},
		{"bonus above cap", 1_000_000, 10, 20.5},
		{"negative bonus", 1_000_000, 10, -0.5},
		{"NaN percent", 1_000_000, math.NaN(), 0},
		{"zero gross", 0, 10, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Settlement(tc.gross, 0, tc.percent, tc.bonus)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

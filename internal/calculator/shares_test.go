package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCheckShares(t *testing.T) {
	r := DefaultRates()

	testCases := []struct {
		name    string
		shares  []DesignerShare
		wantErr error
	}{
		{"empty", nil, nil},
		{"exact pool", []DesignerShare{{MemberID: 1, Percent: 13.3}, {MemberID: 2, Percent: 13.3}, {MemberID: 3, Percent: 13.4}}, nil},
		{"exact bonus cap", []DesignerShare{{MemberID: 1, Percent: 20, BonusPct: 10}, {MemberID: 2, Percent: 20, BonusPct: 10}}, nil},
		{"pool exceeded", []DesignerShare{{MemberID: 1, Percent: 25}, {MemberID: 2, Percent: 15.5}}, ErrShareLimit},
		{"bonus exceeded", []DesignerShare{{MemberID: 1, Percent: 10, BonusPct: 15}, {MemberID: 2, Percent: 10, BonusPct: 6}}, ErrShareLimit},
		{"duplicate member", []DesignerShare{{MemberID: 1, Percent: 10}, {MemberID: 1, Percent: 10}}, ErrInvalidInput},
		{"missing member", []DesignerShare{{MemberID: 0, Percent: 10}}, ErrInvalidInput},
		{"single bonus above cap", []DesignerShare{{MemberID: 1, Percent: 10, BonusPct: 25}}, ErrInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckShares(tc.shares, r)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestProject_Breakdown(t *testing.T) {
	c := mustDefault(t)

	shares := []DesignerShare{
		{MemberID: 1, Percent: 25, BonusPct: 5},
		{MemberID: 2, Percent: 15},
	}
	got, err := c.Project(ProjectFinancials{GrossAmount: 1_100_000, ChannelFeeRate: 0.21}, shares)
	if err != nil {
		t.Fatalf("Project error: %v", err)
	}

	if got.Fees.DistributableNet != 653_400 {
		t.Errorf("DistributableNet = %d, want 653400", got.Fees.DistributableNet)
	}
	if len(got.Payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(got.Payouts))
	}
	// 990,000 * 30% and 990,000 * 15%
	if got.Payouts[0].BeforeWithholding != 297_000 || got.Payouts[1].BeforeWithholding != 148_500 {
		t.Errorf("unexpected payouts: %+v", got.Payouts)
	}
	if got.TotalBeforeWithholding != 445_500 {
		t.Errorf("TotalBeforeWithholding = %d, want 445500", got.TotalBeforeWithholding)
	}
	if got.TotalBeforeWithholding-got.TotalWithholding != got.TotalAfterWithholding {
		t.Errorf("totals do not reconcile: %+v", got)
	}
	if got.StudioRemainder != 653_400-445_500 {
		t.Errorf("StudioRemainder = %d", got.StudioRemainder)
	}
}

func TestProject_PayoutsExceedDistributable(t *testing.T) {
	c := mustDefault(t)

	shares := []DesignerShare{
		{MemberID: 1, Percent: 20, BonusPct: 10},
		{MemberID: 2, Percent: 20, BonusPct: 10},
	}
	// distributable = 990,000 - 99,000 - 29,700 - 297,000 = 564,300 < 594,000
	_, err := c.Project(ProjectFinancials{GrossAmount: 1_100_000, ChannelFeeRate: 0.30}, shares)
	if !errors.Is(err, ErrShareLimit) {
		t.Fatalf("expected ErrShareLimit, got %v", err)
	}
}

func TestRateTable_For(t *testing.T) {
	v1 := DefaultRates()
	v2 := DefaultRates()
	v2.Version = "2026-07"
	v2.EffectiveFrom = "2026-07"
	v2.WithholdingRate = decimal.RequireFromString("0.05")

	table, err := NewRateTable(v2, v1)
	if err != nil {
		t.Fatalf("NewRateTable error: %v", err)
	}

	testCases := []struct {
		month   string
		want    string
		wantErr bool
	}{
		{"2024-01", "2024-01", false},
		{"2026-06", "2024-01", false},
		{"2026-07", "2026-07", false},
		{"2030-12", "2026-07", false},
		{"", "2026-07", false},
		{"2023-12", "", true},
		{"2026/07", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.month, func(t *testing.T) {
			got, err := table.For(tc.month)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.month)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Version != tc.want {
				t.Errorf("For(%q) = %s, want %s", tc.month, got.Version, tc.want)
			}
		})
	}

	c, err := table.CalculatorFor("2026-08")
	if err != nil {
		t.Fatalf("CalculatorFor error: %v", err)
	}
	if tax, _ := c.Withholding(100_000); tax != 5_000 {
		t.Errorf("withholding under 2026-07 rates = %d, want 5000", tax)
	}
}

func TestNewRateTable_Rejects(t *testing.T) {
	bad := DefaultRates()
	bad.AdFeeRate = decimal.RequireFromString("1.2")
	if _, err := NewRateTable(bad); err == nil {
		t.Error("expected error for ad fee rate above 1")
	}

	dup := DefaultRates()
	if _, err := NewRateTable(DefaultRates(), dup); err == nil {
		t.Error("expected error for duplicate version")
	}

	if _, err := NewRateTable(); err == nil {
		t.Error("expected error for empty table")
	}
}

// internal/config/rates.go
package config

import (
	"fmt"

	"studio-settlement/internal/calculator"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type rateFile struct {
	Versions []rateEntry `mapstructure:"versions"`
}

// Rates are read as strings so 0.033 stays exactly 0.033.
type rateEntry struct {
	Version         string `mapstructure:"version"`
	EffectiveFrom   string `mapstructure:"effective_from"`
	VATRate         string `mapstructure:"vat_rate"`
	AdFeeRate       string `mapstructure:"ad_fee_rate"`
	ProgramFeeRate  string `mapstructure:"program_fee_rate"`
	WithholdingRate string `mapstructure:"withholding_rate"`
	DesignerPoolPct string `mapstructure:"designer_pool_pct"`
	BonusCapPct     string `mapstructure:"bonus_cap_pct"`
}

// LoadRateTable reads the versioned rate file (yaml, json or toml, by
// extension). An empty path yields the built-in table.
func LoadRateTable(path string) (calculator.RateTable, error) {
	if path == "" {
		return calculator.DefaultRateTable(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return calculator.RateTable{}, fmt.Errorf("read rates file: %w", err)
	}

	var f rateFile
	if err := v.Unmarshal(&f); err != nil {
		return calculator.RateTable{}, fmt.Errorf("decode rates file: %w", err)
	}
	if len(f.Versions) == 0 {
		return calculator.RateTable{}, fmt.Errorf("rates file %s has no versions", path)
	}

	versions := make([]calculator.Rates, 0, len(f.Versions))
	for i, e := range f.Versions {
		r, err := e.rates()
		if err != nil {
			return calculator.RateTable{}, fmt.Errorf("rates file version #%d: %w", i+1, err)
		}
		versions = append(versions, r)
	}
	return calculator.NewRateTable(versions...)
}

func (e rateEntry) rates() (calculator.Rates, error) {
	// Omitted fields inherit the built-in defaults.
	r := calculator.DefaultRates()
	r.Version = e.Version
	r.EffectiveFrom = e.EffectiveFrom

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"vat_rate", e.VATRate, &r.VATRate},
		{"ad_fee_rate", e.AdFeeRate, &r.AdFeeRate},
		{"program_fee_rate", e.ProgramFeeRate, &r.ProgramFeeRate},
		{"withholding_rate", e.WithholdingRate, &r.WithholdingRate},
		{"designer_pool_pct", e.DesignerPoolPct, &r.DesignerPoolPct},
		{"bonus_cap_pct", e.BonusCapPct, &r.BonusCapPct},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return calculator.Rates{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return r, nil
}

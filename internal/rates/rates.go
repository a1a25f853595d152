// Package rates holds the annual interest rate tables the accrual engine
// runs on. A Table is immutable after construction and is injected into the
// engine, so tests can run with their own rates.
package rates

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/models"
)

type Table struct {
	flexible map[string]decimal.Decimal
	fixed    map[string]decimal.Decimal
}

// New builds a Table from asset -> annual percent rate maps.
// Asset symbols are uppercased; the maps are copied.
func New(flexible, fixed map[string]decimal.Decimal) Table {
	t := Table{
		flexible: make(map[string]decimal.Decimal, len(flexible)),
		fixed:    make(map[string]decimal.Decimal, len(fixed)),
	}
	for asset, rate := range flexible {
		t.flexible[strings.ToUpper(asset)] = rate
	}
	for asset, rate := range fixed {
		t.fixed[strings.ToUpper(asset)] = rate
	}
	return t
}

// APY returns the annual percent rate for the asset under the given savings
// type. Unknown assets return zero: the engine treats that as "no interest
// accrues", not as an error.
func (t Table) APY(asset string, savingsType models.SavingsType) decimal.Decimal {
	m := t.flexible
	if savingsType == models.SavingsFixedTerm {
		m = t.fixed
	}

	rate, ok := m[strings.ToUpper(asset)]
	if !ok {
		return decimal.Zero
	}
	return rate
}

// Assets returns every asset symbol present in either table.
func (t Table) Assets() []string {
	seen := make(map[string]struct{}, len(t.flexible))
	assets := make([]string, 0, len(t.flexible))

	for asset := range t.flexible {
		seen[asset] = struct{}{}
		assets = append(assets, asset)
	}
	for asset := range t.fixed {
		if _, ok := seen[asset]; !ok {
			assets = append(assets, asset)
		}
	}
	return assets
}

// Default returns the reference rate table.
// Flexible rates stay at or below the fixed-term rate for every asset.
func Default() Table {
	flexible := map[string]decimal.Decimal{
		"BTC":   decimal.NewFromInt(9),
		"ETH":   decimal.NewFromInt(10),
		"USDT":  decimal.NewFromInt(16),
		"USDC":  decimal.NewFromInt(16),
		"BNB":   decimal.NewFromInt(11),
		"SOL":   decimal.NewFromInt(12),
		"ADA":   decimal.NewFromInt(10),
		"DOT":   decimal.NewFromInt(11),
		"MATIC": decimal.NewFromInt(12),
	}
	fixed := map[string]decimal.Decimal{
		"BTC":   decimal.NewFromInt(14),
		"ETH":   decimal.NewFromInt(15),
		"USDT":  decimal.NewFromInt(26),
		"USDC":  decimal.NewFromInt(26),
		"BNB":   decimal.NewFromInt(17),
		"SOL":   decimal.NewFromInt(18),
		"ADA":   decimal.NewFromInt(16),
		"DOT":   decimal.NewFromInt(17),
		"MATIC": decimal.NewFromInt(19),
	}

	return New(flexible, fixed)
}

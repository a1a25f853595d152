package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SavingsFlexible  SavingsType = "flexible"
	SavingsFixedTerm SavingsType = "fixed-term"
)

// DateLayout is the calendar-day format used for accrual stamps (UTC)
const DateLayout = "2006-01-02"

type SavingsType string

func (s SavingsType) Valid() bool {
	return s == SavingsFlexible || s == SavingsFixedTerm
}

// BalanceKey identifies one balance within an account: one asset held under
// one savings product. Its string form "{ASSET}_{savingsType}" matches the
// keys used in exported ledger snapshots.
type BalanceKey struct {
	Asset       string
	SavingsType SavingsType
}

func NewBalanceKey(asset string, savingsType SavingsType) BalanceKey {
	return BalanceKey{
		Asset:       strings.ToUpper(asset),
		SavingsType: savingsType,
	}
}

func (k BalanceKey) String() string {
	return k.Asset + "_" + string(k.SavingsType)
}

// ParseBalanceKey decodes "{ASSET}_{savingsType}".
// The savings type never contains an underscore, so splitting on the last
// one keeps assets like "WRAPPED_BTC" unambiguous.
func ParseBalanceKey(s string) (BalanceKey, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return BalanceKey{}, fmt.Errorf("malformed balance key: %q", s)
	}

	key := BalanceKey{
		Asset:       strings.ToUpper(s[:i]),
		SavingsType: SavingsType(s[i+1:]),
	}
	if !key.SavingsType.Valid() {
		return BalanceKey{}, fmt.Errorf("unknown savings type in balance key: %q", s)
	}

	return key, nil
}

// Balance holds one asset position inside an account.
// Amount and USDValue are updated together by the accrual engine using the
// same annual rate, so their ratio (the effective unit price) never drifts
// through accrual alone.
type Balance struct {
	ID        uuid.UUID
	AccountID uuid.UUID

	Asset       string
	SavingsType SavingsType

	// Asset-denominated quantity held
	Amount decimal.Decimal

	// USD principal, the base for interest computation
	USDValue decimal.Decimal

	// Cumulative USD interest credited since the balance was created
	TotalEarned decimal.Decimal

	// Calendar day (UTC, YYYY-MM-DD) interest was last applied.
	// Nil for balances that never accrued. This is the idempotence marker:
	// a balance stamped with today's date is never credited again today.
	LastInterestDate *string

	LastUpdated time.Time
	StartDate   time.Time
}

func (b Balance) Key() BalanceKey {
	return BalanceKey{Asset: b.Asset, SavingsType: b.SavingsType}
}

// AccruedToday reports whether the balance already carries today's stamp.
func (b Balance) AccruedToday(today string) bool {
	return b.LastInterestDate != nil && *b.LastInterestDate == today
}

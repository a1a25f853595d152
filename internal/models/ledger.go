package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// The only entry type the accrual engine writes today
	LedgerTypeDailyCompound = "daily_compound"
)

// BalanceSnapshot is the post-accrual state of one balance as recorded in a
// ledger entry, keyed by BalanceKey.String() in the stored document.
type BalanceSnapshot struct {
	Amount           decimal.Decimal `json:"amount"`
	USDValue         decimal.Decimal `json:"usdValue"`
	TotalEarned      decimal.Decimal `json:"totalEarned"`
	LastInterestDate string          `json:"lastInterestDate"`
}

// LedgerEntry is the audit record of one account's interest credit during
// one accrual run. At most one entry exists per account per calendar day;
// the store enforces that with a unique constraint.
type LedgerEntry struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Email     string

	// USD interest credited across all of the account's balances in the run
	TotalInterestAdded decimal.Decimal

	// Calendar day (UTC, YYYY-MM-DD) the accrual applied to
	AccrualDate string

	// Full post-update balance map, keyed by "{ASSET}_{savingsType}"
	BalanceSnapshot map[string]BalanceSnapshot

	Type      string
	CreatedAt time.Time
}

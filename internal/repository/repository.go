package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/models"
)

// AccrualUpdate carries the deltas the accrual engine wants applied to one
// balance, conditioned on the interest date the balance was read with. If
// the stored date no longer matches PrevInterestDate a concurrent run got
// there first and the write must fail with apperrors.ErrBalanceStale
// instead of double-crediting.
type AccrualUpdate struct {
	BalanceID uuid.UUID

	// Interest date observed when the balance was read (nil if never accrued)
	PrevInterestDate *string

	// Calendar day (UTC, YYYY-MM-DD) being accrued
	NewInterestDate string

	// Amounts to add; all zero for a stamp-only update (zero or unrated balance)
	AddAmount      decimal.Decimal
	AddUSDValue    decimal.Decimal
	AddTotalEarned decimal.Decimal

	Now time.Time
}

// Account repository interface
type AccountRepo interface {
	// Create account
	// If account with the email exists already has to return apperrors.ErrAccountAlreadyExists
	CreateAccount(ctx context.Context, email string, name string) (models.Account, error)

	// Get account by id
	// If account not found must return apperrors.ErrAccountNotFound
	GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error)

	CountAccounts(ctx context.Context) (int64, error)

	// List account ids ordered by id, starting strictly after the cursor.
	// Pass uuid.Nil to start from the beginning. Returns at most limit ids;
	// a short page means the scan is complete.
	ListAccountIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)

	// Balances of one account, ordered by (asset, savings_type).
	// forUpdate locks the rows for the rest of the transaction.
	GetBalances(ctx context.Context, accountID uuid.UUID, forUpdate bool) ([]models.Balance, error)

	// Add funds to a balance, creating it if missing.
	// A balance created here has no interest date yet, so it is picked up by
	// the next accrual run of the same day.
	Deposit(ctx context.Context, accountID uuid.UUID, key models.BalanceKey, amount, usdValue decimal.Decimal) (models.Balance, error)

	// Conditionally apply accrual deltas to a balance (see AccrualUpdate).
	// Must return apperrors.ErrBalanceStale when the condition fails and
	// apperrors.ErrBalanceNotFound when the balance is gone.
	ApplyAccrual(ctx context.Context, upd AccrualUpdate) (models.Balance, error)
}

// Payment ledger repository interface
type LedgerRepo interface {
	// Append an audit entry
	// If an entry for (account, accrual day) exists already has to return apperrors.ErrLedgerEntryExists
	Append(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error)

	// Entries of one account, most recent accrual day first
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error)

	// Sum of TotalInterestAdded over every entry ever written
	TotalPlatformInterest(ctx context.Context) (decimal.Decimal, error)
}

type Storage interface {
	Account() AccountRepo
	Ledger() LedgerRepo

	// Run fn within a database transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/apperrors"
	"github.com/ndmitriev/coinvault/internal/models"
	"github.com/ndmitriev/coinvault/internal/repository"
)

type AccountRepo struct {
	DB DBTX
}

const createAccount = `-- name: CreateAccount
INSERT INTO accounts (id, email, name)
VALUES ($1, $2, $3)
RETURNING id, created_at, email, name
`

func (r *AccountRepo) CreateAccount(ctx context.Context, email string, name string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, createAccount, uuid.New(), email, name)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return account, apperrors.ErrAccountAlreadyExists
		}

		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const getAccount = `-- name: GetAccount
SELECT id, created_at, email, name FROM accounts
WHERE id = $1
`

func (r *AccountRepo) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, getAccount, accountID)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const countAccounts = `-- name: CountAccounts
SELECT count(*) FROM accounts
`

func (r *AccountRepo) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, countAccounts).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

const listAccountIDs = `-- name: ListAccountIDs
SELECT id FROM accounts
WHERE id > $1
ORDER BY id
LIMIT $2
`

func (r *AccountRepo) ListAccountIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, _ := r.DB.Query(ctx, listAccountIDs, after, limit)
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var id uuid.UUID
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ids, nil
}

const getBalances = `-- name: GetBalances
SELECT id, account_id, asset, savings_type, amount, usd_value, total_earned,
       last_interest_date, last_updated, start_date
FROM balances
WHERE account_id = $1
ORDER BY asset, savings_type
`

func (r *AccountRepo) GetBalances(ctx context.Context, accountID uuid.UUID, forUpdate bool) ([]models.Balance, error) {
	query := getBalances
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, accountID)
	balances, err := pgx.CollectRows(rows, rowToBalance)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return balances, nil
}

// Deposit adds funds to a balance, creating it on first use. A balance
// created here carries no interest date yet, so a same-day accrual rerun
// will still credit it.
const deposit = `-- name: Deposit
INSERT INTO balances (id, account_id, asset, savings_type, amount, usd_value, last_updated, start_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (account_id, asset, savings_type) DO UPDATE
SET amount = balances.amount + EXCLUDED.amount,
    usd_value = balances.usd_value + EXCLUDED.usd_value,
    last_updated = EXCLUDED.last_updated
RETURNING id, account_id, asset, savings_type, amount, usd_value, total_earned,
          last_interest_date, last_updated, start_date
`

func (r *AccountRepo) Deposit(ctx context.Context, accountID uuid.UUID, key models.BalanceKey, amount, usdValue decimal.Decimal) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, deposit, uuid.New(), accountID, key.Asset, key.SavingsType, amount, usdValue, time.Now())
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return balance, apperrors.ErrAccountNotFound
		}

		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

// Conditional write: the update applies only while the stored interest date
// still equals the one the caller read. A concurrent run that already
// stamped the balance makes the condition fail, which surfaces as
// ErrBalanceStale rather than a silent double credit.
const applyAccrual = `-- name: ApplyAccrual
UPDATE balances
SET amount = amount + $2,
    usd_value = usd_value + $3,
    total_earned = total_earned + $4,
    last_interest_date = $5::date,
    last_updated = $6
WHERE id = $1 AND last_interest_date IS NOT DISTINCT FROM $7::date
RETURNING id, account_id, asset, savings_type, amount, usd_value, total_earned,
          last_interest_date, last_updated, start_date
`

func (r *AccountRepo) ApplyAccrual(ctx context.Context, upd repository.AccrualUpdate) (models.Balance, error) {
	now := upd.Now
	if now.IsZero() {
		now = time.Now()
	}

	rows, _ := r.DB.Query(ctx, applyAccrual,
		upd.BalanceID, upd.AddAmount, upd.AddUSDValue, upd.AddTotalEarned,
		upd.NewInterestDate, now, upd.PrevInterestDate,
	)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Condition failed: either the balance is gone or another run stamped it first
		var exists bool
		checkErr := r.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM balances WHERE id = $1)", upd.BalanceID).Scan(&exists)
		if checkErr != nil {
			return balance, fmt.Errorf("db error: %w", checkErr)
		}
		if !exists {
			return balance, apperrors.ErrBalanceNotFound
		}
		return balance, apperrors.ErrBalanceStale
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.CreatedAt, &a.Email, &a.Name)
	return a, err
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var b models.Balance
	var lastInterest *time.Time

	err := row.Scan(
		&b.ID, &b.AccountID, &b.Asset, &b.SavingsType,
		&b.Amount, &b.USDValue, &b.TotalEarned,
		&lastInterest, &b.LastUpdated, &b.StartDate,
	)
	if lastInterest != nil {
		date := lastInterest.Format(models.DateLayout)
		b.LastInterestDate = &date
	}

	return b, err
}

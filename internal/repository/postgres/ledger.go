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
)

type LedgerRepo struct {
	DB DBTX
}

const appendEntry = `-- name: AppendEntry
INSERT INTO ledger_entries (id, account_id, email, total_interest_added, accrual_date, balance_snapshot, type)
VALUES ($1, $2, $3, $4, $5::date, $6, $7)
RETURNING id, account_id, email, total_interest_added, accrual_date, balance_snapshot, type, created_at
`

func (r *LedgerRepo) Append(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Type == "" {
		entry.Type = models.LedgerTypeDailyCompound
	}

	rows, _ := r.DB.Query(ctx, appendEntry,
		entry.ID, entry.AccountID, entry.Email, entry.TotalInterestAdded,
		entry.AccrualDate, entry.BalanceSnapshot, entry.Type,
	)
	saved, err := pgx.CollectOneRow(rows, rowToLedgerEntry)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return saved, apperrors.ErrLedgerEntryExists
		}

		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const listEntriesByAccount = `-- name: ListEntriesByAccount
SELECT id, account_id, email, total_interest_added, accrual_date, balance_snapshot, type, created_at
FROM ledger_entries
WHERE account_id = $1
ORDER BY accrual_date DESC
`

func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error) {
	rows, _ := r.DB.Query(ctx, listEntriesByAccount, accountID)
	entries, err := pgx.CollectRows(rows, rowToLedgerEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

const totalPlatformInterest = `-- name: TotalPlatformInterest
SELECT COALESCE(SUM(total_interest_added), 0) FROM ledger_entries
`

func (r *LedgerRepo) TotalPlatformInterest(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.QueryRow(ctx, totalPlatformInterest).Scan(&total)
	if err != nil {
		return total, fmt.Errorf("db error: %w", err)
	}

	return total, nil
}

func rowToLedgerEntry(row pgx.CollectableRow) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	var accrualDate time.Time

	err := row.Scan(
		&e.ID, &e.AccountID, &e.Email, &e.TotalInterestAdded,
		&accrualDate, &e.BalanceSnapshot, &e.Type, &e.CreatedAt,
	)
	e.AccrualDate = accrualDate.Format(models.DateLayout)

	return e, err
}

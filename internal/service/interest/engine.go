// Package interest implements the daily accrual engine: it walks every
// account, credits one day of interest per balance at most once per UTC
// calendar day, and writes one audit ledger entry per credited account.
package interest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/apperrors"
	"github.com/ndmitriev/coinvault/internal/logger"
	"github.com/ndmitriev/coinvault/internal/models"
	"github.com/ndmitriev/coinvault/internal/rates"
	"github.com/ndmitriev/coinvault/internal/repository"
)

const (
	defaultCountWorkers = 8   // Accounts processed concurrently
	defaultBatchSize    = 200 // Account ids fetched per page
)

type Config struct {
	// Number of accounts processed concurrently
	// If not set than default is used
	CountWorkers int

	// Page size of the account id scan
	// If not set than default is used
	BatchSize int

	// Clock, overridable in tests
	Now func() time.Time
}

type Engine struct {
	storage      repository.Storage
	rates        rates.Table
	logger       logger.Logger
	countWorkers int
	batchSize    int
	now          func() time.Time
}

func NewEngine(cfg Config, storage repository.Storage, table rates.Table, l logger.Logger) *Engine {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		storage:      storage,
		rates:        table,
		logger:       l,
		countWorkers: cfg.CountWorkers,
		batchSize:    cfg.BatchSize,
		now:          cfg.Now,
	}
}

// RunResult aggregates one accrual run across all accounts.
type RunResult struct {
	// Calendar day (UTC, YYYY-MM-DD) the run accrued for
	Date string

	// Accounts existing when the run started
	TotalAccounts int64

	// Accounts that received interest (and a ledger entry) this run
	AccountsProcessed int

	// Accounts with at least one balance already stamped for today
	SkippedAlreadyRan int

	// USD interest credited across all accounts this run
	TotalInterestAdded decimal.Decimal

	// Per-account failures; they do not abort the run
	Errors []string
}

// Outcome of a single account
type accountOutcome struct {
	accountID uuid.UUID
	processed bool
	skipped   bool
	interest  decimal.Decimal
	err       error
}

// ApplyDailyInterestToAllUsers runs one accrual pass over every account for
// the current UTC day. Safe to invoke any number of times per day: already
// stamped balances stay byte-for-byte unchanged. Per-account failures are
// collected into RunResult.Errors; only a failure to enumerate accounts at
// all aborts the run.
func (e *Engine) ApplyDailyInterestToAllUsers(ctx context.Context) (RunResult, error) {
	today := e.today()
	result := RunResult{Date: today, TotalInterestAdded: decimal.Zero}

	total, err := e.storage.Account().CountAccounts(ctx)
	if err != nil {
		return result, fmt.Errorf("listing accounts: %w", err)
	}
	result.TotalAccounts = total
	e.logger.Info("Accrual run started", "date", today, "total_accounts", total)

	accountIDs := make(chan uuid.UUID)
	outcomes := make(chan accountOutcome)

	// Producer: keyset-paginated id scan, so the run never holds the whole
	// account set in memory
	scanErr := make(chan error, 1)
	go func() {
		defer close(accountIDs)
		scanErr <- e.produce(ctx, accountIDs)
	}()

	// Bounded worker pool over accounts
	var wg sync.WaitGroup
	for range e.countWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, today, accountIDs, outcomes)
		}()
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		switch {
		case out.err != nil:
			result.Errors = append(result.Errors, fmt.Sprintf("account %s: %v", out.accountID, out.err))
		default:
			if out.processed {
				result.AccountsProcessed++
				result.TotalInterestAdded = result.TotalInterestAdded.Add(out.interest)
			}
			if out.skipped {
				result.SkippedAlreadyRan++
			}
		}
	}

	// A scan failure means some accounts were never even visited, which no
	// per-account error entry can express; the run as a whole fails
	if err := <-scanErr; err != nil {
		return result, fmt.Errorf("listing accounts: %w", err)
	}

	e.logger.Info("Accrual run finished",
		"date", today,
		"processed", result.AccountsProcessed,
		"skipped", result.SkippedAlreadyRan,
		"interest_added", result.TotalInterestAdded,
		"errors", len(result.Errors),
	)

	return result, nil
}

func (e *Engine) today() string {
	return e.now().UTC().Format(models.DateLayout)
}

func (e *Engine) produce(ctx context.Context, out chan<- uuid.UUID) error {
	after := uuid.Nil

	for {
		page, err := e.storage.Account().ListAccountIDs(ctx, after, e.batchSize)
		if err != nil {
			return err
		}

		for _, id := range page {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- id:
			}
		}

		if len(page) < e.batchSize {
			return nil
		}
		after = page[len(page)-1]
	}
}

func (e *Engine) worker(ctx context.Context, today string, in <-chan uuid.UUID, out chan<- accountOutcome) {
	for {
		select {
		case <-ctx.Done():
			return

		case accountID, ok := <-in:
			if !ok {
				return
			}

			outcome := e.processAccount(ctx, accountID, today)
			if outcome.err != nil {
				e.logger.Error("Failed to accrue interest for account", "error", outcome.err, "account_id", accountID)
			}

			select {
			case <-ctx.Done():
				return
			case out <- outcome:
			}
		}
	}
}

// processAccount applies one day of interest to every balance of one
// account inside a single transaction: read balances locked, credit the
// rated positive ones, stamp the rest, then persist the ledger entry. A
// failure anywhere rolls back the whole account and leaves it untouched.
func (e *Engine) processAccount(ctx context.Context, accountID uuid.UUID, today string) accountOutcome {
	outcome := accountOutcome{accountID: accountID, interest: decimal.Zero}

	err := e.storage.InTx(ctx, func(s repository.Storage) error {
		account, err := s.Account().GetAccount(ctx, accountID)
		if err != nil {
			return err
		}

		balances, err := s.Account().GetBalances(ctx, accountID, true)
		if err != nil {
			return err
		}
		if len(balances) == 0 {
			return nil
		}

		interestAdded := decimal.Zero
		snapshot := make(map[string]models.BalanceSnapshot, len(balances))

		for _, balance := range balances {
			if balance.AccruedToday(today) {
				outcome.skipped = true
				snapshot[balance.Key().String()] = snapshotBalance(balance)
				continue
			}

			upd := repository.AccrualUpdate{
				BalanceID:        balance.ID,
				PrevInterestDate: balance.LastInterestDate,
				NewInterestDate:  today,
				Now:              e.now(),
			}

			rate := e.rates.APY(balance.Asset, balance.SavingsType)
			if rate.IsPositive() && balance.USDValue.IsPositive() {
				// Same annual rate on both units keeps the effective unit
				// price (usdValue/amount) constant through accrual
				upd.AddUSDValue = CalculateDailyInterest(balance.USDValue, rate)
				upd.AddAmount = CalculateDailyInterest(balance.Amount, rate)
				upd.AddTotalEarned = upd.AddUSDValue
			}
			// Zero or unrated balances still get today's stamp so they are
			// not reconsidered by a later run the same day

			updated, err := s.Account().ApplyAccrual(ctx, upd)
			if err != nil {
				return fmt.Errorf("balance %s: %w", balance.Key(), err)
			}

			interestAdded = interestAdded.Add(upd.AddUSDValue)
			snapshot[updated.Key().String()] = snapshotBalance(updated)
		}

		if !interestAdded.IsPositive() {
			return nil
		}

		_, err = s.Ledger().Append(ctx, models.LedgerEntry{
			AccountID:          account.ID,
			Email:              account.Email,
			TotalInterestAdded: interestAdded,
			AccrualDate:        today,
			BalanceSnapshot:    snapshot,
			Type:               models.LedgerTypeDailyCompound,
		})
		if err != nil {
			return fmt.Errorf("ledger entry: %w", err)
		}

		outcome.processed = true
		outcome.interest = interestAdded
		return nil
	})

	if err != nil {
		// A concurrent run already stamped the balance; its credit stands,
		// this account just counts as skipped
		if errors.Is(err, apperrors.ErrBalanceStale) {
			return accountOutcome{accountID: accountID, skipped: true, interest: decimal.Zero}
		}

		return accountOutcome{accountID: accountID, err: err, interest: decimal.Zero}
	}

	return outcome
}

func snapshotBalance(b models.Balance) models.BalanceSnapshot {
	s := models.BalanceSnapshot{
		Amount:      b.Amount,
		USDValue:    b.USDValue,
		TotalEarned: b.TotalEarned,
	}
	if b.LastInterestDate != nil {
		s.LastInterestDate = *b.LastInterestDate
	}
	return s
}

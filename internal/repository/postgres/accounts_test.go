package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ndmitriev/coinvault/internal/apperrors"
	"github.com/ndmitriev/coinvault/internal/models"
	"github.com/ndmitriev/coinvault/internal/repository"
	"github.com/ndmitriev/coinvault/internal/testutil"
)

func TestAccountRepo(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	defer pg.Terminate()

	btcFlexible := models.BalanceKey{Asset: "BTC", SavingsType: models.SavingsFlexible}

	t.Run("create and get account", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}

			created, err := repo.CreateAccount(t.Context(), "alice@example.com", "Alice")
			require.NoError(t, err)
			require.NotEqual(t, uuid.Nil, created.ID)
			require.Equal(t, "alice@example.com", created.Email)
			require.Equal(t, "Alice", created.Name)

			got, err := repo.GetAccount(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, created, got)
		})
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}

			_, err := repo.CreateAccount(t.Context(), "dup@example.com", "First")
			require.NoError(t, err)

			_, err = repo.CreateAccount(t.Context(), "dup@example.com", "Second")
			require.ErrorIs(t, err, apperrors.ErrAccountAlreadyExists)
		})
	})

	t.Run("get missing account", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}

			_, err := repo.GetAccount(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		})
	})

	t.Run("keyset id scan covers every account exactly once", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}

			want := make(map[uuid.UUID]bool, 5)
			for range 5 {
				account, err := repo.CreateAccount(t.Context(), uuid.NewString()+"@example.com", "User")
				require.NoError(t, err)
				want[account.ID] = true
			}

			count, err := repo.CountAccounts(t.Context())
			require.NoError(t, err)
			require.Equal(t, int64(5), count)

			got := make(map[uuid.UUID]bool, 5)
			after := uuid.Nil
			for {
				page, err := repo.ListAccountIDs(t.Context(), after, 2)
				require.NoError(t, err)
				for _, id := range page {
					require.False(t, got[id], "id %s returned twice", id)
					got[id] = true
				}
				if len(page) < 2 {
					break
				}
				after = page[len(page)-1]
			}

			require.Equal(t, want, got)
		})
	})

	t.Run("deposit creates then tops up a balance", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}
			account, err := repo.CreateAccount(t.Context(), "deposit@example.com", "Depositor")
			require.NoError(t, err)

			first, err := repo.Deposit(t.Context(), account.ID, btcFlexible,
				decimal.RequireFromString("0.5"), decimal.NewFromInt(5000))
			require.NoError(t, err)
			require.Equal(t, "BTC", first.Asset)
			require.Equal(t, models.SavingsFlexible, first.SavingsType)
			require.Nil(t, first.LastInterestDate, "fresh balance has no interest stamp")

			second, err := repo.Deposit(t.Context(), account.ID, btcFlexible,
				decimal.RequireFromString("0.25"), decimal.NewFromInt(2500))
			require.NoError(t, err)
			require.Equal(t, first.ID, second.ID, "same key tops up, not duplicates")
			require.True(t, second.Amount.Equal(decimal.RequireFromString("0.75")))
			require.True(t, second.USDValue.Equal(decimal.NewFromInt(7500)))

			balances, err := repo.GetBalances(t.Context(), account.ID, false)
			require.NoError(t, err)
			require.Len(t, balances, 1)
		})
	})

	t.Run("deposit to unknown account", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}

			_, err := repo.Deposit(t.Context(), uuid.New(), btcFlexible,
				decimal.NewFromInt(1), decimal.NewFromInt(1))
			require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		})
	})

	t.Run("same asset under both savings types stays separate", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}
			account, err := repo.CreateAccount(t.Context(), "split@example.com", "Split")
			require.NoError(t, err)

			_, err = repo.Deposit(t.Context(), account.ID, btcFlexible,
				decimal.NewFromInt(1), decimal.NewFromInt(1000))
			require.NoError(t, err)
			_, err = repo.Deposit(t.Context(), account.ID,
				models.BalanceKey{Asset: "BTC", SavingsType: models.SavingsFixedTerm},
				decimal.NewFromInt(2), decimal.NewFromInt(2000))
			require.NoError(t, err)

			balances, err := repo.GetBalances(t.Context(), account.ID, false)
			require.NoError(t, err)
			require.Len(t, balances, 2)
			// Ordered by (asset, savings_type)
			require.Equal(t, models.SavingsFixedTerm, balances[0].SavingsType)
			require.Equal(t, models.SavingsFlexible, balances[1].SavingsType)
		})
	})

	t.Run("apply accrual credits and stamps", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}
			account, err := repo.CreateAccount(t.Context(), "accrual@example.com", "Accrual")
			require.NoError(t, err)
			balance, err := repo.Deposit(t.Context(), account.ID, btcFlexible,
				decimal.NewFromInt(1), decimal.NewFromInt(10000))
			require.NoError(t, err)

			updated, err := repo.ApplyAccrual(t.Context(), repository.AccrualUpdate{
				BalanceID:        balance.ID,
				PrevInterestDate: nil,
				NewInterestDate:  "2026-02-11",
				AddAmount:        decimal.RequireFromString("0.0001"),
				AddUSDValue:      decimal.RequireFromString("2.46"),
				AddTotalEarned:   decimal.RequireFromString("2.46"),
				Now:              time.Now(),
			})
			require.NoError(t, err)
			require.True(t, updated.Amount.Equal(decimal.RequireFromString("1.0001")))
			require.True(t, updated.USDValue.Equal(decimal.RequireFromString("10002.46")))
			require.True(t, updated.TotalEarned.Equal(decimal.RequireFromString("2.46")))
			require.NotNil(t, updated.LastInterestDate)
			require.Equal(t, "2026-02-11", *updated.LastInterestDate)
		})
	})

	t.Run("apply accrual with stale interest date", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}
			account, err := repo.CreateAccount(t.Context(), "stale@example.com", "Stale")
			require.NoError(t, err)
			balance, err := repo.Deposit(t.Context(), account.ID, btcFlexible,
				decimal.NewFromInt(1), decimal.NewFromInt(1000))
			require.NoError(t, err)

			// First writer wins
			_, err = repo.ApplyAccrual(t.Context(), repository.AccrualUpdate{
				BalanceID:       balance.ID,
				NewInterestDate: "2026-02-11",
				AddUSDValue:     decimal.NewFromInt(1),
				AddTotalEarned:  decimal.NewFromInt(1),
			})
			require.NoError(t, err)

			// Second writer still holds the pre-update read
			_, err = repo.ApplyAccrual(t.Context(), repository.AccrualUpdate{
				BalanceID:       balance.ID,
				NewInterestDate: "2026-02-11",
				AddUSDValue:     decimal.NewFromInt(1),
				AddTotalEarned:  decimal.NewFromInt(1),
			})
			require.ErrorIs(t, err, apperrors.ErrBalanceStale)

			balances, err := repo.GetBalances(t.Context(), account.ID, false)
			require.NoError(t, err)
			require.True(t, balances[0].USDValue.Equal(decimal.NewFromInt(1001)), "stale write must not double credit")
		})
	})

	t.Run("apply accrual to missing balance", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &AccountRepo{DB: tx}

			_, err := repo.ApplyAccrual(t.Context(), repository.AccrualUpdate{
				BalanceID:       uuid.New(),
				NewInterestDate: "2026-02-11",
			})
			require.ErrorIs(t, err, apperrors.ErrBalanceNotFound)
		})
	})
}

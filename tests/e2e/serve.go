package e2e

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/ndmitriev/coinvault/internal/handlers"
	"github.com/ndmitriev/coinvault/internal/logger"
	"github.com/ndmitriev/coinvault/internal/rates"
	"github.com/ndmitriev/coinvault/internal/repository/postgres"
	"github.com/ndmitriev/coinvault/internal/service/account"
	"github.com/ndmitriev/coinvault/internal/service/auth"
	"github.com/ndmitriev/coinvault/internal/service/interest"
	"github.com/ndmitriev/coinvault/internal/service/ledger"
	"github.com/ndmitriev/coinvault/internal/testutil"
)

const (
	CronSecret    = "e2e-cron-secret"
	AdminPassword = "e2e-operator-password"
)

// RunDay pins the engine clock so accrual assertions never depend on the
// wall clock crossing midnight UTC mid-test
var RunDay = time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)

type Services struct {
	Engine         *interest.Engine
	AccountService *account.AccountService
	LedgerService  *ledger.LedgerService
	AuthService    *auth.AuthService
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		noopLogger := logger.NewNoOpLogger()

		// One worker: the whole run must stay on the single test connection
		engine := interest.NewEngine(interest.Config{
			CountWorkers: 1,
			Now:          func() time.Time { return RunDay },
		}, storage, rates.Default(), noopLogger)

		passwordHash, err := auth.HashPassword(AdminPassword)
		require.NoError(t, err, "operator password should hash without errors")

		authService, err := auth.NewService(auth.Config{
			SecretKey:    "e2e-test-secret",
			PasswordHash: passwordHash,
		})
		require.NoError(t, err, "auth service starting error")

		accountService := account.NewService(storage)
		ledgerService := ledger.NewService(storage)

		router := handlers.NewRouter(
			engine,
			ledgerService,
			accountService,
			authService,
			CronSecret,
			time.Minute,
			noopLogger,
		)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			Engine:         engine,
			AccountService: accountService,
			LedgerService:  ledgerService,
			AuthService:    authService,
		})
	})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndmitriev/coinvault/internal/handlers/middleware"
	"github.com/ndmitriev/coinvault/internal/logger"
	"github.com/ndmitriev/coinvault/internal/models"
	"github.com/ndmitriev/coinvault/internal/service/interest"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	engine engineService,
	ledgerService ledgerService,
	accountService accountService,
	authService authService,
	cronSecret string,
	runTimeout time.Duration,
	logger logger.Logger,
) http.Handler {
	withCronAuth := middleware.CronAuth(cronSecret)
	withAdminAuth := middleware.AdminAuth(authService)

	admin := http.NewServeMux()
	admin.Handle("POST /interest/run", handleRunInterest(engine, runTimeout, logger))
	admin.Handle("GET /interest/total", handleTotalInterest(ledgerService, logger))
	admin.Handle("POST /accounts", handleCreateAccount(accountService, logger))
	admin.Handle("GET /accounts/{id}/balances", handleListBalances(accountService, logger))
	admin.Handle("POST /accounts/{id}/deposit", handleDeposit(accountService, logger))
	admin.Handle("GET /accounts/{id}/interest", handleInterestHistory(ledgerService, logger))

	root := http.NewServeMux()
	root.Handle("GET /api/cron/daily-interest", withCronAuth(handleCronDailyInterest(engine, runTimeout, logger)))
	root.Handle("POST /api/admin/login", handleAdminLogin(authService, logger))
	root.Handle("/api/admin/", http.StripPrefix("/api/admin", withAdminAuth(admin)))

	return chain(root,
		middleware.LoggerMiddleware(logger),
	)
}

type engineService interface {
	// Run one accrual pass for the current UTC day
	// Must be safe to invoke many times per day (idempotent per balance)
	ApplyDailyInterestToAllUsers(ctx context.Context) (interest.RunResult, error)
}

type ledgerService interface {
	TotalPlatformInterest(ctx context.Context) (decimal.Decimal, error)
	AccountHistory(ctx context.Context, accountID uuid.UUID) ([]models.LedgerEntry, error)
}

type accountService interface {
	CreateAccount(ctx context.Context, email string, name string) (models.Account, error)
	GetBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error)
	Deposit(ctx context.Context, accountID uuid.UUID, key models.BalanceKey, amount, usdValue decimal.Decimal) (models.Balance, error)
}

type authService interface {
	// Check operator password and issue a session token
	// Has to return apperrors.ErrInvalidCredentials on wrong password
	Login(password string) (token string, expiresAt time.Time, err error)

	// Authorize an admin request from its bearer token
	Auth(r *http.Request) error
}

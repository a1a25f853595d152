package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ndmitriev/coinvault/internal/db"
	"github.com/ndmitriev/coinvault/internal/handlers"
	"github.com/ndmitriev/coinvault/internal/logger"
	"github.com/ndmitriev/coinvault/internal/rates"
	"github.com/ndmitriev/coinvault/internal/repository/postgres"
	"github.com/ndmitriev/coinvault/internal/scheduler"
	"github.com/ndmitriev/coinvault/internal/service/account"
	"github.com/ndmitriev/coinvault/internal/service/auth"
	"github.com/ndmitriev/coinvault/internal/service/interest"
	"github.com/ndmitriev/coinvault/internal/service/ledger"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	// nil when the built-in accrual schedule is disabled
	Scheduler *scheduler.Scheduler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	engine := interest.NewEngine(
		interest.Config{CountWorkers: c.CountWorkers, BatchSize: c.BatchSize},
		storage,
		rates.Default(),
		logger,
	)
	ledgerService := ledger.NewService(storage)
	accountService := account.NewService(storage)
	authService, err := auth.NewService(auth.Config{
		SecretKey:    c.SecretKey,
		PasswordHash: c.AdminPasswordHash,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	mux := handlers.NewRouter(
		engine,
		ledgerService,
		accountService,
		authService,
		c.CronSecret,
		c.RunTimeout,
		logger,
	)

	app := &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}

	if c.CronSchedule != "" {
		app.Scheduler = scheduler.New(c.CronSchedule, c.RunTimeout, engine, logger)
	}

	return app, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	var schedulerStopped <-chan struct{}
	if s.Scheduler != nil {
		stopped, err := s.Scheduler.Start(srvCtx)
		if err != nil {
			return fmt.Errorf("error while starting accrual scheduler. Err: %w", err)
		}
		schedulerStopped = stopped
	} else {
		closed := make(chan struct{})
		close(closed)
		schedulerStopped = closed
	}

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-schedulerStopped

	return err
}

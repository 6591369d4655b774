package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lsoares/investa/internal/db"
	"github.com/lsoares/investa/internal/handlers"
	"github.com/lsoares/investa/internal/logger"
	"github.com/lsoares/investa/internal/repository/postgres"
	"github.com/lsoares/investa/internal/service/accrual"
	"github.com/lsoares/investa/internal/service/auth"
	"github.com/lsoares/investa/internal/service/deposit"
	"github.com/lsoares/investa/internal/service/investment"
	"github.com/lsoares/investa/internal/service/user"
	"github.com/lsoares/investa/internal/service/withdrawal"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Scheduler  *accrual.Scheduler

	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	feeRate, err := decimal.NewFromString(c.FeeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid fee rate %q: %w", c.FeeRate, err)
	}
	commissionRate, err := decimal.NewFromString(c.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission rate %q: %w", c.CommissionRate, err)
	}
	minWithdrawal, err := decimal.NewFromString(c.MinWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum withdrawal %q: %w", c.MinWithdrawal, err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	authService, err := auth.NewService(auth.Config{SecretKey: c.SecretKey}, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage)
	depositService := deposit.NewService(storage, commissionRate, log)
	withdrawalService := withdrawal.NewService(withdrawal.Config{
		FeeRate:   feeRate,
		MinAmount: minWithdrawal,
	}, storage, log)
	investmentService := investment.NewService(storage, log)

	scheduler := accrual.NewScheduler(accrual.Config{Interval: c.AccrualInterval}, storage, log)

	mux := handlers.NewRouter(
		authService,
		userService,
		depositService,
		withdrawalService,
		investmentService,
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Scheduler:  scheduler,
		logger:     log,
	}, nil
}

// Run starts the accrual scheduler and the http server, then closes both
// gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	schedulerStopped := s.Scheduler.Run(srvCtx)

	idleConnsClosed := make(chan struct{})
	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-schedulerStopped

	return err
}

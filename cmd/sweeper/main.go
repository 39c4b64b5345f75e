package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codecraftwt/loan-backend-sub000/internal/config"
	"github.com/codecraftwt/loan-backend-sub000/internal/db"
	frauddomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/fraud"
	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
	"github.com/codecraftwt/loan-backend-sub000/internal/jobs"
	"github.com/codecraftwt/loan-backend-sub000/internal/notify"
	"github.com/codecraftwt/loan-backend-sub000/internal/observability"
	postgresrepo "github.com/codecraftwt/loan-backend-sub000/internal/repository/postgres"
)

func main() {
	runOnce := flag.Bool("run-once", false, "run both sweeps immediately and exit")
	flag.Parse()

	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	userRepo := postgresrepo.NewUserRepository(pool)
	loanRepo := postgresrepo.NewLoanRepository(pool)
	notificationRepo := postgresrepo.NewNotificationRepository(pool)

	// The sweeper delivers borrower notifications but never pushes or
	// emails; the api process owns interactive delivery.
	dispatcher := notify.NewDispatcher(notificationRepo, notify.NoopPushSender{}, userRepo, logger)

	loanService := loandomain.NewService(loanRepo, userRepo, allowAllGate{}, nil, dispatcher, logger, cfg.MinPrincipal, cfg.ConfirmationCodeTTL)
	fraudService := frauddomain.NewService(loanRepo, userRepo, logger)
	sweeper := jobs.NewSweeper(loanService, fraudService, logger)

	if *runOnce {
		_ = sweeper.RunOverdueSweep(context.Background())
		_ = sweeper.RunFraudSweep(context.Background())
		return
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.OverdueSweepSchedule, func() {
		_ = sweeper.RunOverdueSweep(context.Background())
	}); err != nil {
		logger.Error("invalid overdue sweep schedule", "schedule", cfg.OverdueSweepSchedule, "err", err)
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.FraudSweepSchedule, func() {
		_ = sweeper.RunFraudSweep(context.Background())
	}); err != nil {
		logger.Error("invalid fraud sweep schedule", "schedule", cfg.FraudSweepSchedule, "err", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("sweeper started",
		"overdue_schedule", cfg.OverdueSweepSchedule,
		"fraud_schedule", cfg.FraudSweepSchedule)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("sweeper stopped")
}

// allowAllGate exists because the sweeper never creates loans; the gate is
// only consulted on the create path.
type allowAllGate struct{}

func (allowAllGate) CanCreateLoan(context.Context, string) (bool, string, error) {
	return true, "", nil
}

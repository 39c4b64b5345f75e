package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codecraftwt/loan-backend-sub000/internal/auth"
	"github.com/codecraftwt/loan-backend-sub000/internal/config"
	"github.com/codecraftwt/loan-backend-sub000/internal/db"
	frauddomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/fraud"
	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
	plandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/plan"
	reputationdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/reputation"
	"github.com/codecraftwt/loan-backend-sub000/internal/gateway"
	"github.com/codecraftwt/loan-backend-sub000/internal/http/handlers"
	"github.com/codecraftwt/loan-backend-sub000/internal/notify"
	"github.com/codecraftwt/loan-backend-sub000/internal/observability"
	postgresrepo "github.com/codecraftwt/loan-backend-sub000/internal/repository/postgres"
	"github.com/codecraftwt/loan-backend-sub000/internal/server"
	"github.com/codecraftwt/loan-backend-sub000/internal/ws"
)

func main() {
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

	redisClient, err := db.NewRedisClient(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Error("failed to connect redis", "err", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	userRepo := postgresrepo.NewUserRepository(pool)
	loanRepo := postgresrepo.NewLoanRepository(pool)
	planRepo := postgresrepo.NewPlanRepository(pool)
	sessionRepo := postgresrepo.NewSessionRepository(pool)
	notificationRepo := postgresrepo.NewNotificationRepository(pool)

	pay, err := gateway.NewFromConfig(cfg)
	if err != nil {
		logger.Error("failed to init payment gateway", "err", err)
		os.Exit(1)
	}

	var push notify.PushSender = notify.NoopPushSender{}
	if cfg.FirebaseCredentialsFile != "" {
		fcm, err := notify.NewFCMSender(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Error("failed to init fcm", "err", err)
			os.Exit(1)
		}
		push = fcm
	}
	var mailer notify.EmailSender = notify.NoopEmailSender{}
	if cfg.SendgridAPIKey != "" {
		mailer = notify.NewSendgridSender(cfg.SendgridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	}
	dispatcher := notify.NewDispatcher(notificationRepo, push, userRepo, logger)

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	resetCodes := auth.NewResetCodeStore(redisClient, cfg.ResetCodeTTL)
	authService := auth.NewService(userRepo, sessionRepo, jwtManager, resetCodes, mailer, logger, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	planService := plandomain.NewService(planRepo, userRepo, pay, pay)
	loanService := loandomain.NewService(loanRepo, userRepo, planService, pay, dispatcher, logger, cfg.MinPrincipal, cfg.ConfirmationCodeTTL)
	fraudService := frauddomain.NewService(loanRepo, userRepo, logger)
	reputationService := reputationdomain.NewService(loanRepo)

	cookieCfg := auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
	authHandler := handlers.NewAuthHandler(authService, cookieCfg, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	loanHandler := handlers.NewLoanHandler(loanService)
	borrowerHandler := handlers.NewBorrowerHandler(loanService)
	planHandler := handlers.NewPlanHandler(planService)
	subscriptionHandler := handlers.NewSubscriptionHandler(planService)
	riskHandler := handlers.NewRiskHandler(fraudService, reputationService)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)

	hub := ws.NewHub()
	wsHandler := ws.NewHandler(hub)
	notifier := ws.NewNotifier(notificationRepo, hub, 2*time.Second)

	notifierCtx, notifierCancel := context.WithCancel(context.Background())
	defer notifierCancel()
	go func() {
		if err := notifier.Run(notifierCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("ws notifier stopped", "err", err)
		}
	}()

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:              pool,
		AuthHandler:         authHandler,
		LoanHandler:         loanHandler,
		BorrowerHandler:     borrowerHandler,
		PlanHandler:         planHandler,
		SubscriptionHandler: subscriptionHandler,
		RiskHandler:         riskHandler,
		NotificationHandler: notificationHandler,
		WSHandler:           wsHandler,
		JWTManager:          jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}

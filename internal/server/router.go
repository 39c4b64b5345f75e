package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codecraftwt/loan-backend-sub000/internal/auth"
	"github.com/codecraftwt/loan-backend-sub000/internal/config"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
	"github.com/codecraftwt/loan-backend-sub000/internal/http/handlers"
	"github.com/codecraftwt/loan-backend-sub000/internal/http/middleware"
	"github.com/codecraftwt/loan-backend-sub000/internal/version"
	"github.com/codecraftwt/loan-backend-sub000/internal/ws"
)

const maxRequestBodyBytes = 1 << 20

type Dependencies struct {
	Pinger              handlers.Pinger
	AuthHandler         *handlers.AuthHandler
	LoanHandler         *handlers.LoanHandler
	BorrowerHandler     *handlers.BorrowerHandler
	PlanHandler         *handlers.PlanHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	RiskHandler         *handlers.RiskHandler
	NotificationHandler *handlers.NotificationHandler
	WSHandler           *ws.Handler
	JWTManager          *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestBodyLimit(maxRequestBodyBytes))
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	requireAuth := middleware.RequireAuth(deps.JWTManager)

	authGroup := r.Group("/v1/auth")
	authGroup.POST("/register", deps.AuthHandler.Register)
	authGroup.POST("/login", deps.AuthHandler.Login)
	authGroup.POST("/refresh", deps.AuthHandler.Refresh)
	authGroup.POST("/logout", deps.AuthHandler.Logout)
	authGroup.POST("/forgot-password", deps.AuthHandler.ForgotPassword)
	authGroup.POST("/reset-password", deps.AuthHandler.ResetPassword)

	authProtected := authGroup.Group("")
	authProtected.Use(requireAuth)
	authProtected.GET("/me", deps.AuthHandler.Me)
	authProtected.POST("/device-tokens", deps.AuthHandler.RegisterDeviceToken)

	lenderGroup := r.Group("/v1/lender")
	lenderGroup.Use(requireAuth, middleware.RequireRole(userdomain.RoleLender, userdomain.RoleAdmin))
	lenderGroup.POST("/loans", deps.LoanHandler.CreateLoan)
	lenderGroup.GET("/loans", deps.LoanHandler.ListLoans)
	lenderGroup.GET("/loans/:loanId", deps.LoanHandler.GetLoan)
	lenderGroup.PATCH("/loans/:loanId", deps.LoanHandler.EditLoan)
	lenderGroup.DELETE("/loans/:loanId", deps.LoanHandler.DeleteLoan)
	lenderGroup.POST("/loans/:loanId/verify-code", deps.LoanHandler.VerifyCode)
	lenderGroup.POST("/loans/:loanId/resend-code", deps.LoanHandler.ResendCode)
	lenderGroup.POST("/loans/:loanId/payments/:paymentId/confirm", deps.LoanHandler.ConfirmPayment)
	lenderGroup.POST("/loans/:loanId/payments/:paymentId/reject", deps.LoanHandler.RejectPayment)
	lenderGroup.GET("/dashboard", deps.LoanHandler.Dashboard)
	lenderGroup.GET("/borrowers/:idNumber/risk", deps.RiskHandler.BorrowerRisk)

	borrowerGroup := r.Group("/v1/borrower")
	borrowerGroup.Use(requireAuth, middleware.RequireRole(userdomain.RoleBorrower))
	borrowerGroup.GET("/loans", deps.BorrowerHandler.ListLoans)
	borrowerGroup.POST("/loans/:loanId/decision", deps.BorrowerHandler.Decide)
	borrowerGroup.POST("/loans/:loanId/payments", deps.BorrowerHandler.SubmitPayment)

	adminGroup := r.Group("/v1/admin")
	adminGroup.Use(requireAuth, middleware.RequireRole(userdomain.RoleAdmin))
	adminGroup.POST("/plans", deps.PlanHandler.Create)
	adminGroup.GET("/plans", deps.PlanHandler.ListAll)
	adminGroup.PATCH("/plans/:planId", deps.PlanHandler.Update)
	adminGroup.DELETE("/plans/:planId", deps.PlanHandler.Delete)

	subscriptionGroup := r.Group("/v1/subscription")
	subscriptionGroup.Use(requireAuth, middleware.RequireRole(userdomain.RoleLender))
	subscriptionGroup.GET("/plans", deps.PlanHandler.ListActive)
	subscriptionGroup.GET("/status", deps.SubscriptionHandler.Status)
	subscriptionGroup.POST("/orders", deps.SubscriptionHandler.CreateOrder)
	subscriptionGroup.POST("/verify", deps.SubscriptionHandler.VerifyPurchase)

	notificationGroup := r.Group("/v1/notifications")
	notificationGroup.Use(requireAuth)
	notificationGroup.GET("", deps.NotificationHandler.List)
	notificationGroup.POST("/:notificationId/read", deps.NotificationHandler.MarkRead)

	if deps.WSHandler != nil {
		wsGroup := r.Group("/v1/ws")
		wsGroup.Use(requireAuth)
		wsGroup.GET("/notifications", deps.WSHandler.HandleWebSocket)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}

package router

import (
	"net/http"
	"time"

	"smsgateway/config"
	"smsgateway/internal/handler"
	"smsgateway/internal/middleware"
	"smsgateway/internal/repository"
	"smsgateway/internal/service"
	"smsgateway/internal/ws"
	"smsgateway/pkg/mailer"
	"smsgateway/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Providers are the upstream clients the services talk to.
type Providers struct {
	SMS     service.SMSProvider
	Payment payment.Provider
	Mailer  mailer.Mailer
}

// App is the wired HTTP engine plus the background components main starts.
type App struct {
	Engine   *gin.Engine
	Hub      *ws.Hub
	Limiter  *middleware.InMemoryRateLimiter
	Pricing  *service.PricingService
	Payments *service.PaymentService
	Worker   *service.CommissionWorker
}

func Setup(cfg *config.Config, db *gorm.DB, p Providers) *App {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := middleware.NewInMemoryRateLimiter(100, 60*time.Second)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimit(limiter))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	tokenRepo := repository.NewAuthTokenRepository(db)
	activationRepo := repository.NewActivationRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	jobRepo := repository.NewCommissionJobRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	hub := ws.NewHub()

	// Services
	authSvc := service.NewAuthService(cfg, db, userRepo, tokenRepo, affiliateRepo, p.Mailer)
	userSvc := service.NewUserService(userRepo, adminRepo)
	ledgerSvc := service.NewLedgerService(db, ledgerRepo, userRepo, hub)
	pricingSvc := service.NewPricingService(&cfg.Pricing, priceRepo, settingRepo, p.SMS)
	activationSvc := service.NewActivationService(db, ledgerRepo, activationRepo, userRepo, pricingSvc, p.SMS, hub)
	paymentSvc := service.NewPaymentService(cfg, db, ledgerRepo, txRepo, userRepo, affiliateRepo, jobRepo, p.Payment, hub)
	affiliateSvc := service.NewAffiliateService(cfg, db, ledgerRepo, affiliateRepo, userRepo, withdrawalRepo, settingRepo, txRepo, hub)
	worker := service.NewCommissionWorker(&cfg.Affiliate, db, jobRepo, affiliateSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	meHandler := handler.NewMeHandler(userSvc)
	pricingHandler := handler.NewPricingHandler(pricingSvc, auditRepo)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	paymentWebhookHandler := handler.NewPaymentWebhookHandler(paymentSvc, &cfg.Payment)
	smsHandler := handler.NewSMSHandler(activationSvc, cfg.SMSActivate.WebhookSecret)
	affiliateHandler := handler.NewAffiliateHandler(affiliateSvc, auditRepo)
	adminHandler := handler.NewAdminHandler(userSvc, ledgerSvc, authSvc, auditRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.AdminRequired()
	userLimit := middleware.RateLimitByUser(middleware.NewInMemoryRateLimiter(30, 60*time.Second))

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/confirm-email", authHandler.ConfirmEmail)
			authGroup.POST("/confirm-email", authHandler.ConfirmEmail)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
		}
		api.POST("/admin/login", adminHandler.AdminLogin)

		users := api.Group("/users", authMw)
		{
			users.GET("/me", meHandler.GetMe)
			users.PATCH("/me", meHandler.UpdateMe)
		}

		affiliate := api.Group("/affiliate", authMw)
		{
			affiliate.GET("/link", affiliateHandler.Link)
			affiliate.GET("/stats", affiliateHandler.Stats)
			affiliate.POST("/withdrawal", userLimit, affiliateHandler.RequestWithdrawal)
			affiliate.GET("/withdrawals/mine", affiliateHandler.MyWithdrawals)
			affiliate.GET("/commission", adminMw, affiliateHandler.GetCommission)
			affiliate.POST("/commission", adminMw, affiliateHandler.SetCommission)
			affiliate.GET("/withdrawals", adminMw, affiliateHandler.ListWithdrawals)
			affiliate.PATCH("/withdrawals/:id", adminMw, affiliateHandler.UpdateWithdrawal)
		}

		credits := api.Group("/credits")
		{
			credits.GET("/prices", pricingHandler.List)
			credits.GET("/prices/filter", pricingHandler.Filter)
			credits.GET("/markup", authMw, adminMw, pricingHandler.GetMarkup)
			credits.POST("/markup", authMw, adminMw, pricingHandler.SetMarkup)
			credits.POST("/update-markup", authMw, adminMw, pricingHandler.UpdateMarkup)
			credits.POST("/refresh-prices", authMw, adminMw, pricingHandler.Refresh)
			credits.PUT("/prices", authMw, adminMw, pricingHandler.Upsert)
		}

		api.POST("/payments/webhook", paymentWebhookHandler.Handle)
		payments := api.Group("/payments", authMw)
		{
			payments.POST("/create", userLimit, paymentHandler.Create)
			payments.GET("/:id/status", paymentHandler.Status)
			payments.GET("/transactions", paymentHandler.Transactions)
		}

		api.POST("/sms/webhook", smsHandler.Webhook)
		api.GET("/sms/countries", smsHandler.Countries)
		sms := api.Group("/sms", authMw)
		{
			sms.POST("/buy", userLimit, smsHandler.Buy)
			sms.GET("/status/:activationId", smsHandler.Status)
			sms.POST("/activations/:id/cancel", smsHandler.Cancel)
			sms.GET("/activations", smsHandler.Recent)
			sms.GET("/numbers-status", smsHandler.NumbersStatus)
		}

		admin := api.Group("/admin", authMw, adminMw)
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/:id", adminHandler.GetUser)
			admin.POST("/users/balance/add", adminHandler.AddBalance)
			admin.PUT("/users/balance", adminHandler.SetBalance)
			admin.GET("/users/:id/reconcile", adminHandler.Reconcile)
			admin.GET("/transactions", adminHandler.ListTransactions)
			admin.GET("/audit", adminHandler.AuditTrail)
		}
	}

	r.GET("/ws/events", ws.UpgradeEventsWS(&cfg.JWT, hub, cfg.Server.CORSOrigins))

	return &App{
		Engine:   r,
		Hub:      hub,
		Limiter:  limiter,
		Pricing:  pricingSvc,
		Payments: paymentSvc,
		Worker:   worker,
	}
}

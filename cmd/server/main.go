package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsgateway/config"
	"smsgateway/internal/database"
	"smsgateway/internal/logging"
	"smsgateway/internal/router"
	"smsgateway/internal/service"
	"smsgateway/pkg/mailer"
	"smsgateway/pkg/payment"
	"smsgateway/pkg/smsactivate"

	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, flush := logging.Init(cfg.IsProduction())
	defer flush()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	if err := database.SeedSettings(db); err != nil {
		logger.Fatal("Seeding settings failed", zap.Error(err))
	}
	database.SeedAdmin(db, &cfg.Admin)

	if cfg.SMSActivate.APIKey == "" {
		logger.Warn("SMS_ACTIVATE_API_KEY is not set, upstream calls will fail")
	}
	app := router.Setup(cfg, db, router.Providers{
		SMS:     smsactivate.NewClient(cfg.SMSActivate.BaseURL, cfg.SMSActivate.APIKey, cfg.SMSActivate.Timeout),
		Payment: newPaymentProvider(&cfg.Payment, logger),
		Mailer: mailer.New(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}),
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	scheduler, err := service.NewScheduler(ctx, cfg.Pricing.RefreshCron, cfg.Payment.PollCron, app.Pricing, app.Payments)
	if err != nil {
		logger.Fatal("Invalid cron schedule", zap.Error(err))
	}
	scheduler.Start()
	go app.Worker.Run(ctx)
	go app.Limiter.Run(ctx)
	go func() {
		if n, err := app.Pricing.RefreshPrices(ctx); err != nil {
			logger.Warn("Initial price refresh failed", zap.Error(err))
		} else {
			logger.Info("Initial price refresh done", zap.Int("prices", n))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	stop()
	scheduler.Stop()
	logger.Info("Server stopped")
}

func newPaymentProvider(cfg *config.PaymentConfig, logger *zap.Logger) payment.Provider {
	if cfg.Provider == "stub" {
		logger.Warn("Using in-memory stub payment provider")
		return payment.NewStubProvider()
	}
	if cfg.APIKey == "" {
		logger.Warn("PUSHINPAY_API_KEY is not set, checkouts will fail")
	}
	return payment.NewPushinPayProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server      ServerConfig
	App         AppConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	SMSActivate SMSActivateConfig
	Payment     PaymentConfig
	Pricing     PricingConfig
	Affiliate   AffiliateConfig
	SMTP        SMTPConfig
	Admin       AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

type AppConfig struct {
	BaseURL    string // front-end, used in affiliate links and emails
	APIBaseURL string // public API base, used for webhook callback URLs
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type SMSActivateConfig struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
}

type PaymentConfig struct {
	Provider      string // pushinpay | stub
	APIKey        string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
	MinDeposit    decimal.Decimal
	Expiry        time.Duration
	PollCron      string
}

type PricingConfig struct {
	ExchangeRate   decimal.Decimal
	ProviderMarkup decimal.Decimal
	RefreshCron    string
}

type AffiliateConfig struct {
	MinWithdrawal  decimal.Decimal
	WorkerInterval time.Duration
	MaxAttempts    int
	RetryBackoff   time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type AdminConfig struct {
	Email    string
	Password string
}

// LoadDotEnv reads a .env file into the environment when one exists.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func Load() (*Config, error) {
	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		d, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return d
	}
	dec := func(key string, def string) decimal.Decimal {
		d, err := getEnvDecimal(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvString("PORT", "3000"),
			Env:          getEnvString("APP_ENV", "development"),
			ReadTimeout:  dur("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: dur("SERVER_WRITE_TIMEOUT", 45*time.Second),
			CORSOrigins:  getEnvList("CORS_ORIGINS", "http://localhost:3001"),
		},
		App: AppConfig{
			BaseURL:    strings.TrimRight(getEnvString("APP_BASE_URL", "http://localhost:3001"), "/"),
			APIBaseURL: strings.TrimRight(getEnvString("API_BASE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			DSN:             getEnvString("DATABASE_DSN", "root:@tcp(localhost:3306)/smsgateway?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: dur("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnvString("JWT_SECRET", "change-me-in-production"),
			RefreshSecret: getEnvString("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  dur("JWT_ACCESS_EXPIRY", time.Hour),
			RefreshExpiry: dur("JWT_REFRESH_EXPIRY", 168*time.Hour),
			Issuer:        getEnvString("JWT_ISSUER", "smsgateway"),
		},
		SMSActivate: SMSActivateConfig{
			APIKey:        getEnvString("SMS_ACTIVATE_API_KEY", ""),
			BaseURL:       getEnvString("SMS_ACTIVATE_BASE_URL", "https://api.sms-activate.ae/stubs/handler_api.php"),
			WebhookSecret: getEnvString("SMS_WEBHOOK_SECRET", ""),
			Timeout:       dur("UPSTREAM_TIMEOUT", 30*time.Second),
		},
		Payment: PaymentConfig{
			Provider:      getEnvString("PAYMENT_PROVIDER", "pushinpay"),
			APIKey:        getEnvString("PUSHINPAY_API_KEY", ""),
			BaseURL:       getEnvString("PUSHINPAY_BASE_URL", "https://api.pushinpay.com.br"),
			WebhookSecret: getEnvString("PAYMENT_WEBHOOK_SECRET", ""),
			Timeout:       dur("UPSTREAM_TIMEOUT", 30*time.Second),
			MinDeposit:    dec("MIN_DEPOSIT", "1.00"),
			Expiry:        dur("PAYMENT_EXPIRY", time.Hour),
			PollCron:      getEnvString("PAYMENT_POLL_CRON", "*/5 * * * *"),
		},
		Pricing: PricingConfig{
			ExchangeRate:   dec("USD_BRL_EXCHANGE_RATE", "5.5"),
			ProviderMarkup: dec("PROVIDER_MARKUP", "1.5"),
			RefreshCron:    getEnvString("PRICE_REFRESH_CRON", "0 0 * * *"),
		},
		Affiliate: AffiliateConfig{
			MinWithdrawal:  dec("MIN_WITHDRAWAL", "50"),
			WorkerInterval: dur("COMMISSION_WORKER_INTERVAL", 10*time.Second),
			MaxAttempts:    getEnvInt("COMMISSION_MAX_ATTEMPTS", 10),
			RetryBackoff:   dur("COMMISSION_RETRY_BACKOFF", 30*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getEnvString("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnvString("SMTP_USER", ""),
			Password: getEnvString("SMTP_PASSWORD", ""),
			From:     getEnvString("EMAIL_FROM", "no-reply@localhost"),
		},
		Admin: AdminConfig{
			Email:    getEnvString("ADMIN_EMAIL", ""),
			Password: getEnvString("ADMIN_PASSWORD", ""),
		},
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	if cfg.Server.Env == "production" {
		if cfg.JWT.AccessSecret == "change-me-in-production" || cfg.JWT.RefreshSecret == "change-me-refresh" {
			return nil, fmt.Errorf("config: JWT_SECRET and JWT_REFRESH_SECRET must be set in production")
		}
	}
	if !cfg.Pricing.ExchangeRate.IsPositive() {
		return nil, fmt.Errorf("config: USD_BRL_EXCHANGE_RATE must be positive")
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Server.Env == "production" }

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	value := getEnvString(key, defaultValue)
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
	}
	return d, nil
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnvString(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

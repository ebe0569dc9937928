package database

import (
	"errors"
	"fmt"

	"smsgateway/config"
	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AffiliateLink{},
		&models.Transaction{},
		&models.SmsActivation{},
		&models.ServicePrice{},
		&models.WithdrawalRequest{},
		&models.CommissionJob{},
		&models.Markup{},
		&models.AffiliateCommission{},
		&models.AuditLog{},
		&models.AuthToken{},
	)
}

// SeedSettings makes sure the markup and commission singleton rows exist.
func SeedSettings(db *gorm.DB) error {
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Markup{ID: domain.SingletonID, Percentage: decimal.Zero}).Error; err != nil {
		return fmt.Errorf("seed markup: %w", err)
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.AffiliateCommission{ID: domain.SingletonID, Percentage: decimal.Zero}).Error; err != nil {
		return fmt.Errorf("seed commission: %w", err)
	}
	return nil
}

// SeedAdmin creates the admin account from config when it does not exist yet.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig) {
	if cfg.Email == "" || cfg.Password == "" {
		zap.L().Info("Skipping admin seed (ADMIN_EMAIL/ADMIN_PASSWORD not set)")
		return
	}
	var existing models.User
	err := db.Where("email = ?", cfg.Email).First(&existing).Error
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			db.Model(&existing).Update("role", domain.RoleAdmin)
		}
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		zap.L().Error("Admin lookup failed", zap.Error(err))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("Admin password hash failed", zap.Error(err))
		return
	}
	admin := &models.User{
		Name:          "Admin",
		Email:         cfg.Email,
		PasswordHash:  string(hash),
		Role:          domain.RoleAdmin,
		EmailVerified: true,
	}
	if err := db.Create(admin).Error; err != nil {
		zap.L().Error("Admin seed failed", zap.Error(err))
		return
	}
	zap.L().Info("Admin user created", zap.Uint("id", admin.ID), zap.String("email", admin.Email))
}

package repository

import (
	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository reads and writes the markup and commission singletons.
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) GetMarkup() (decimal.Decimal, error) {
	var m models.Markup
	if err := r.db.First(&m, domain.SingletonID).Error; err != nil {
		return decimal.Zero, err
	}
	return m.Percentage, nil
}

func (r *SettingRepository) SetMarkup(p decimal.Decimal) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "updated_at"}),
	}).Create(&models.Markup{ID: domain.SingletonID, Percentage: p}).Error
}

func (r *SettingRepository) GetCommission() (decimal.Decimal, error) {
	var c models.AffiliateCommission
	if err := r.db.First(&c, domain.SingletonID).Error; err != nil {
		return decimal.Zero, err
	}
	return c.Percentage, nil
}

// GetCommissionTx reads the commission inside the caller's transaction.
func (r *SettingRepository) GetCommissionTx(tx *gorm.DB) (decimal.Decimal, error) {
	var c models.AffiliateCommission
	if err := tx.First(&c, domain.SingletonID).Error; err != nil {
		return decimal.Zero, err
	}
	return c.Percentage, nil
}

func (r *SettingRepository) SetCommission(p decimal.Decimal) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "updated_at"}),
	}).Create(&models.AffiliateCommission{ID: domain.SingletonID, Percentage: p}).Error
}

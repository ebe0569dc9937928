package repository

import (
	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByExternalID(externalID string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("external_id = ?", externalID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetForUser(userID, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) ListByUser(userID uint, txType string, limit, offset int) ([]models.Transaction, int64, error) {
	q := r.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Transaction
	err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// ListPendingDeposits returns deposits still waiting on the payment provider.
func (r *TransactionRepository) ListPendingDeposits(limit int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.Where("type = ? AND status = ? AND external_id IS NOT NULL", domain.TxTypeDeposit, domain.TxStatusPending).
		Order("created_at ASC").Limit(limit).Find(&list).Error
	return list, err
}

// CommissionTotal sums affiliate credits paid to the user.
func (r *TransactionRepository) CommissionTotal(userID uint) (decimal.Decimal, error) {
	var out struct{ Total decimal.Decimal }
	err := r.db.Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", userID, domain.TxTypeAffiliateCredit).
		Select("COALESCE(SUM(amount), 0) AS total").Scan(&out).Error
	return out.Total, err
}

package repository

import (
	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"gorm.io/gorm"
)

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(tx *gorm.DB, w *models.WithdrawalRequest) error {
	return tx.Create(w).Error
}

func (r *WithdrawalRepository) GetByID(id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := r.db.Preload("User").First(&w, id).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) GetByIDTx(tx *gorm.DB, id uint) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := tx.First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// Resolve moves a PENDING request to its final status. It reports false when
// another caller already resolved it.
func (r *WithdrawalRepository) Resolve(tx *gorm.DB, id uint, status string) (bool, error) {
	res := tx.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, domain.WithdrawalPending).
		Update("status", status)
	return res.RowsAffected == 1, res.Error
}

func (r *WithdrawalRepository) SetTransaction(tx *gorm.DB, id, txID uint) error {
	return tx.Model(&models.WithdrawalRequest{}).Where("id = ?", id).Update("transaction_id", txID).Error
}

// List returns requests newest first, optionally filtered by status, with the user preloaded.
func (r *WithdrawalRepository) List(status string) ([]models.WithdrawalRequest, error) {
	q := r.db.Preload("User")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.WithdrawalRequest
	err := q.Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

func (r *WithdrawalRepository) ListByUser(userID uint) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

package repository

import (
	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"gorm.io/gorm"
)

type ActivationRepository struct {
	db *gorm.DB
}

func NewActivationRepository(db *gorm.DB) *ActivationRepository {
	return &ActivationRepository{db: db}
}

func (r *ActivationRepository) Create(tx *gorm.DB, a *models.SmsActivation) error {
	return tx.Create(a).Error
}

func (r *ActivationRepository) SetTransaction(tx *gorm.DB, id, txID uint) error {
	return tx.Model(&models.SmsActivation{}).Where("id = ?", id).Update("transaction_id", txID).Error
}

// GetByProviderID looks an activation up by the upstream activation id.
func (r *ActivationRepository) GetByProviderID(activationID string) (*models.SmsActivation, error) {
	var a models.SmsActivation
	err := r.db.Where("activation_id = ?", activationID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Finish moves a PENDING activation to a terminal status, storing the code
// when one was received. It reports false if the activation was not PENDING.
func (r *ActivationRepository) Finish(tx *gorm.DB, id uint, status string, code *string) (bool, error) {
	fields := map[string]interface{}{"status": status}
	if code != nil {
		fields["code"] = *code
	}
	res := tx.Model(&models.SmsActivation{}).
		Where("id = ? AND status = ?", id, domain.ActivationPending).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

// DebitFor returns the DEBIT transaction that paid for the activation.
func (r *ActivationRepository) DebitFor(tx *gorm.DB, a *models.SmsActivation) (*models.Transaction, error) {
	var t models.Transaction
	q := tx.Where("type = ? AND user_id = ?", domain.TxTypeDebit, a.UserID)
	if a.TransactionID != nil {
		q = q.Where("id = ?", *a.TransactionID)
	} else {
		q = q.Where("activation_id = ?", a.ID)
	}
	if err := q.First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ActivationRepository) ListRecentByUser(userID uint, limit int) ([]models.SmsActivation, error) {
	var list []models.SmsActivation
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

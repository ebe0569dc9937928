package repository

import (
	"time"

	"smsgateway/internal/models"

	"gorm.io/gorm"
)

type AuthTokenRepository struct {
	db *gorm.DB
}

func NewAuthTokenRepository(db *gorm.DB) *AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

func (r *AuthTokenRepository) Create(t *models.AuthToken) error {
	return r.db.Create(t).Error
}

// Consume marks an unexpired, unused token as used and returns it.
// A token can be consumed only once.
func (r *AuthTokenRepository) Consume(tx *gorm.DB, hash, purpose string, now time.Time) (*models.AuthToken, error) {
	var t models.AuthToken
	if err := tx.Where("token_hash = ? AND purpose = ?", hash, purpose).First(&t).Error; err != nil {
		return nil, err
	}
	res := tx.Model(&models.AuthToken{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", t.ID, now).
		Update("used_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

package repository

import (
	"smsgateway/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateFields writes only the given columns.
func (r *UserRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// SetReferredByLink records the referral only if the user has none yet.
// Returns false when the user was already attributed to a link.
func (r *UserRepository) SetReferredByLink(userID, linkID uint) (bool, error) {
	res := r.db.Model(&models.User{}).
		Where("id = ? AND referred_by_link_id IS NULL", userID).
		Update("referred_by_link_id", linkID)
	return res.RowsAffected == 1, res.Error
}

func (r *UserRepository) SetPixKey(tx *gorm.DB, id uint, pixKey string) error {
	return tx.Model(&models.User{}).Where("id = ?", id).Update("pix_key", pixKey).Error
}

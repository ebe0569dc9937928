package repository

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"smsgateway/internal/models"

	"gorm.io/gorm"
)

const (
	affiliateCodeLength   = 10
	affiliateCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type AffiliateRepository struct {
	db *gorm.DB
}

func NewAffiliateRepository(db *gorm.DB) *AffiliateRepository {
	return &AffiliateRepository{db: db}
}

func generateAffiliateCode() (string, error) {
	b := make([]byte, affiliateCodeLength)
	max := big.NewInt(int64(len(affiliateCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = affiliateCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// GetOrCreateLink returns the user's link, creating one with a fresh unique code if needed.
func (r *AffiliateRepository) GetOrCreateLink(userID uint) (*models.AffiliateLink, error) {
	if link, err := r.GetByUserID(userID); err == nil {
		return link, nil
	}
	for i := 0; i < 10; i++ {
		code, err := generateAffiliateCode()
		if err != nil {
			return nil, err
		}
		link := models.AffiliateLink{UserID: userID, Code: code}
		if err := r.db.Create(&link).Error; err == nil {
			return &link, nil
		}
		// Either the code collided or a concurrent request created the user's link.
		if existing, err := r.GetByUserID(userID); err == nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("failed to generate a unique affiliate code after retries")
}

func (r *AffiliateRepository) GetByUserID(userID uint) (*models.AffiliateLink, error) {
	var link models.AffiliateLink
	err := r.db.Where("user_id = ?", userID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *AffiliateRepository) GetByCode(code string) (*models.AffiliateLink, error) {
	return r.GetByCodeTx(r.db, code)
}

func (r *AffiliateRepository) GetByCodeTx(tx *gorm.DB, code string) (*models.AffiliateLink, error) {
	var link models.AffiliateLink
	err := tx.Where("code = ?", code).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *AffiliateRepository) GetByID(id uint) (*models.AffiliateLink, error) {
	var link models.AffiliateLink
	err := r.db.First(&link, id).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// CountReferred returns how many users signed up or paid through the link.
func (r *AffiliateRepository) CountReferred(linkID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.User{}).Where("referred_by_link_id = ?", linkID).Count(&n).Error
	return n, err
}

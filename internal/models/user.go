package models

import (
	"time"

	"smsgateway/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Name             string          `gorm:"size:120;not null" json:"name"`
	Email            string          `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash     string          `gorm:"size:255" json:"-"`
	Role             string          `gorm:"size:20;not null;default:'USER';index" json:"role"` // USER | ADMIN
	Balance          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	AffiliateBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"affiliate_balance"`
	PixKey           *string         `gorm:"size:255" json:"pix_key,omitempty"`
	EmailVerified    bool            `gorm:"not null;default:false" json:"email_verified"`
	ReferredByLinkID *uint           `gorm:"index" json:"referred_by_link_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`

	ReferredByLink *AffiliateLink `gorm:"foreignKey:ReferredByLinkID" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }

// WalletBalance returns the balance held in the named wallet.
func (u *User) WalletBalance(wallet string) decimal.Decimal {
	if wallet == domain.WalletAffiliate {
		return u.AffiliateBalance
	}
	return u.Balance
}

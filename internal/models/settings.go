package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Markup is the single-row sale markup applied on top of upstream cost.
type Markup struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	Percentage decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"percentage"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Markup) TableName() string { return "markups" }

// AffiliateCommission is the single-row commission rate paid on referred deposits.
type AffiliateCommission struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	Percentage decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"percentage"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (AffiliateCommission) TableName() string { return "affiliate_commissions" }

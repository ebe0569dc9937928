package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an append-only ledger entry. Amount is signed: positive
// credits the wallet, negative debits it. Only Status ever changes.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Wallet        string          `gorm:"size:20;not null;default:'BALANCE';index" json:"wallet"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Type          string          `gorm:"size:30;not null;index" json:"type"`
	Status        string          `gorm:"size:20;not null;index" json:"status"`
	Description   string          `gorm:"size:255" json:"description"`
	ExternalID    *string         `gorm:"size:128;uniqueIndex" json:"external_id,omitempty"`
	ActivationID  *uint           `gorm:"index" json:"activation_id,omitempty"`
	AffiliateCode string          `gorm:"size:20" json:"-"`
	Metadata      string          `gorm:"type:text" json:"metadata,omitempty"` // JSON
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }

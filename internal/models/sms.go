package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SmsActivation is one number rental from the SMS provider.
type SmsActivation struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Service       string          `gorm:"size:20;not null" json:"service"`
	Country       string          `gorm:"size:20;not null" json:"country"`
	ActivationID  string          `gorm:"size:64;uniqueIndex;not null" json:"activation_id"`
	Number        string          `gorm:"size:32;not null" json:"number"`
	Price         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	Status        string          `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, CANCELLED
	Code          *string         `gorm:"size:64" json:"code"`
	TransactionID *uint           `gorm:"index" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (SmsActivation) TableName() string { return "sms_activations" }

// ServicePrice is a cached (service, country) price. The table is rebuilt on every refresh.
type ServicePrice struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	Service   string          `gorm:"size:20;not null;uniqueIndex:idx_service_country" json:"service"`
	Country   string          `gorm:"size:20;not null;uniqueIndex:idx_service_country" json:"country"`
	PriceUsd  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price_usd"`
	PriceBrl  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_brl"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (ServicePrice) TableName() string { return "service_prices" }

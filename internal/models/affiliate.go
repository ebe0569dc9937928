package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AffiliateLink is the referral code issued to a user. Each user has at most one.
type AffiliateLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Code      string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (AffiliateLink) TableName() string { return "affiliate_links" }

// WithdrawalRequest holds affiliate funds that were moved out of the affiliate
// balance until an admin approves or cancels the payout.
type WithdrawalRequest struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	PixKey        string          `gorm:"size:255;not null" json:"pix_key"`
	Status        string          `gorm:"size:20;not null;index" json:"status"` // PENDING, APPROVED, CANCELLED
	TransactionID *uint           `gorm:"index" json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }

// CommissionJob is the outbox entry that pays the referrer of a completed deposit.
type CommissionJob struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	DepositTransactionID uint            `gorm:"uniqueIndex;not null" json:"deposit_transaction_id"`
	ReferredUserID       uint            `gorm:"not null;index" json:"referred_user_id"`
	Amount               decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Code                 string          `gorm:"size:20;not null" json:"code"`
	Status               string          `gorm:"size:20;not null;index" json:"status"` // PENDING, DONE, FAILED
	Attempts             int             `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt        time.Time       `gorm:"index" json:"next_attempt_at"`
	LastError            string          `gorm:"size:512" json:"last_error"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (CommissionJob) TableName() string { return "commission_jobs" }

package repository

import (
	"errors"
	"fmt"

	"smsgateway/internal/domain"
	"smsgateway/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance          = errors.New("insufficient balance")
	ErrInsufficientAffiliateBalance = errors.New("insufficient affiliate balance")
	ErrStatusChanged                = errors.New("status already changed")
)

// Entry describes the ledger row written alongside a balance change.
type Entry struct {
	Type          string
	Status        string
	Description   string
	ExternalID    *string
	ActivationID  *uint
	AffiliateCode string
	Metadata      string
}

// LedgerRepository owns every write to users.balance and users.affiliate_balance.
// All methods that mutate take the caller's transaction.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func walletColumn(wallet string) string {
	if wallet == domain.WalletAffiliate {
		return "affiliate_balance"
	}
	return "balance"
}

// LockUser loads the user row FOR UPDATE.
func (r *LedgerRepository) LockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var u models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, userID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// adjust moves the wallet by delta and refuses to go below zero.
func (r *LedgerRepository) adjust(tx *gorm.DB, userID uint, wallet string, delta decimal.Decimal) (*models.User, error) {
	u, err := r.LockUser(tx, userID)
	if err != nil {
		return nil, err
	}
	next := u.WalletBalance(wallet).Add(delta)
	if next.IsNegative() {
		if wallet == domain.WalletAffiliate {
			return nil, ErrInsufficientAffiliateBalance
		}
		return nil, ErrInsufficientBalance
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		Update(walletColumn(wallet), next).Error; err != nil {
		return nil, err
	}
	if wallet == domain.WalletAffiliate {
		u.AffiliateBalance = next
	} else {
		u.Balance = next
	}
	return u, nil
}

// Apply changes the wallet by a signed delta and writes the paired ledger row.
func (r *LedgerRepository) Apply(tx *gorm.DB, userID uint, wallet string, delta decimal.Decimal, e Entry) (*models.Transaction, *models.User, error) {
	u, err := r.adjust(tx, userID, wallet, delta)
	if err != nil {
		return nil, nil, err
	}
	status := e.Status
	if status == "" {
		status = domain.TxStatusCompleted
	}
	t := &models.Transaction{
		UserID:        userID,
		Wallet:        wallet,
		Amount:        delta,
		Type:          e.Type,
		Status:        status,
		Description:   e.Description,
		ExternalID:    e.ExternalID,
		ActivationID:  e.ActivationID,
		AffiliateCode: e.AffiliateCode,
		Metadata:      e.Metadata,
	}
	if err := tx.Create(t).Error; err != nil {
		return nil, nil, fmt.Errorf("ledger insert: %w", err)
	}
	return t, u, nil
}

// SettlePending flips a PENDING or locally EXPIRED row to COMPLETED and applies
// its amount. A deposit expired by the poller can still be paid upstream.
// The status check is part of the UPDATE, so concurrent settlements credit once.
func (r *LedgerRepository) SettlePending(tx *gorm.DB, txID uint) (*models.Transaction, *models.User, error) {
	res := tx.Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", txID, []string{domain.TxStatusPending, domain.TxStatusExpired}).
		Update("status", domain.TxStatusCompleted)
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, nil, ErrStatusChanged
	}
	var t models.Transaction
	if err := tx.First(&t, txID).Error; err != nil {
		return nil, nil, err
	}
	u, err := r.adjust(tx, t.UserID, t.Wallet, t.Amount)
	if err != nil {
		return nil, nil, err
	}
	return &t, u, nil
}

// Transition performs a conditional status update and reports whether it won.
func (r *LedgerRepository) Transition(tx *gorm.DB, txID uint, from, to string) (bool, error) {
	res := tx.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txID, from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

// Sum totals the ledger for a wallet. DEPOSIT rows count once COMPLETED;
// every other kind is written when its balance change happens and always counts.
func (r *LedgerRepository) Sum(userID uint, wallet string) (decimal.Decimal, error) {
	var rows []models.Transaction
	err := r.db.Select("amount", "type", "status").
		Where("user_id = ? AND wallet = ?", userID, wallet).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range rows {
		if t.Type == domain.TxTypeDeposit && t.Status != domain.TxStatusCompleted {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

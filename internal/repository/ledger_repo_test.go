package repository

import (
	"errors"
	"testing"

	"smsgateway/internal/domain"
	"smsgateway/internal/models"
	"smsgateway/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Test User", Email: email, Role: domain.RoleUser}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func TestLedgerApply_CreditAndDebit(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	u := createUser(t, db, "a@example.com")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := repo.Apply(tx, u.ID, domain.WalletBalance, decimal.NewFromInt(20), Entry{Type: domain.TxTypeCredit})
		return err
	})
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	var user *models.User
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		_, user, err = repo.Apply(tx, u.ID, domain.WalletBalance, decimal.RequireFromString("-7.50"), Entry{Type: domain.TxTypeDebit})
		return err
	})
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if !user.Balance.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Expected balance 12.50, got %s", user.Balance)
	}

	sum, err := repo.Sum(u.ID, domain.WalletBalance)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if !sum.Equal(user.Balance) {
		t.Errorf("Ledger sum %s does not match balance %s", sum, user.Balance)
	}
}

func TestLedgerApply_RejectsOverdraft(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	u := createUser(t, db, "b@example.com")

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := repo.Apply(tx, u.ID, domain.WalletBalance, decimal.NewFromInt(-1), Entry{Type: domain.TxTypeDebit})
		return err
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, _, err := repo.Apply(tx, u.ID, domain.WalletAffiliate, decimal.NewFromInt(-1), Entry{Type: domain.TxTypeWithdrawal})
		return err
	})
	if !errors.Is(err, ErrInsufficientAffiliateBalance) {
		t.Fatalf("Expected ErrInsufficientAffiliateBalance, got %v", err)
	}

	var count int64
	db.Model(&models.Transaction{}).Where("user_id = ?", u.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected no ledger rows after rejected debits, got %d", count)
	}
}

func TestLedgerSettlePending_OnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	u := createUser(t, db, "c@example.com")

	ext := "charge-1"
	deposit := &models.Transaction{
		UserID:     u.ID,
		Wallet:     domain.WalletBalance,
		Amount:     decimal.NewFromInt(30),
		Type:       domain.TxTypeDeposit,
		Status:     domain.TxStatusPending,
		ExternalID: &ext,
	}
	if err := db.Create(deposit).Error; err != nil {
		t.Fatalf("Failed to create deposit: %v", err)
	}

	sum, _ := repo.Sum(u.ID, domain.WalletBalance)
	if !sum.IsZero() {
		t.Errorf("Pending deposit must not count, got sum %s", sum)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, _, err := repo.SettlePending(tx, deposit.ID)
		return err
	})
	if err != nil {
		t.Fatalf("SettlePending failed: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, _, err := repo.SettlePending(tx, deposit.ID)
		return err
	})
	if !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("Expected ErrStatusChanged on second settlement, got %v", err)
	}

	var got models.User
	db.First(&got, u.ID)
	if !got.Balance.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected balance 30 after one settlement, got %s", got.Balance)
	}
	sum, _ = repo.Sum(u.ID, domain.WalletBalance)
	if !sum.Equal(got.Balance) {
		t.Errorf("Ledger sum %s does not match balance %s", sum, got.Balance)
	}
}

func TestLedgerSettlePending_AcceptsExpired(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	u := createUser(t, db, "exp@example.com")

	for _, status := range []string{domain.TxStatusExpired, domain.TxStatusCancelled} {
		ext := "charge-" + status
		deposit := &models.Transaction{
			UserID:     u.ID,
			Wallet:     domain.WalletBalance,
			Amount:     decimal.NewFromInt(10),
			Type:       domain.TxTypeDeposit,
			Status:     status,
			ExternalID: &ext,
		}
		if err := db.Create(deposit).Error; err != nil {
			t.Fatalf("Failed to create deposit: %v", err)
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			_, _, err := repo.SettlePending(tx, deposit.ID)
			return err
		})
		switch status {
		case domain.TxStatusExpired:
			if err != nil {
				t.Errorf("Expected expired deposit to settle, got %v", err)
			}
		default:
			if !errors.Is(err, ErrStatusChanged) {
				t.Errorf("Expected %s deposit to be rejected, got %v", status, err)
			}
		}
	}

	var got models.User
	db.First(&got, u.ID)
	if !got.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected balance 10, got %s", got.Balance)
	}
}

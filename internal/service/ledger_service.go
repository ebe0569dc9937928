package service

import (
	"context"
	"fmt"

	"smsgateway/internal/domain"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerService covers admin balance adjustments and ledger reconciliation.
type LedgerService struct {
	db       *gorm.DB
	ledger   *repository.LedgerRepository
	users    *repository.UserRepository
	notifier Notifier
}

func NewLedgerService(db *gorm.DB, ledger *repository.LedgerRepository, users *repository.UserRepository, notifier Notifier) *LedgerService {
	return &LedgerService{db: db, ledger: ledger, users: users, notifier: notifierOrNop(notifier)}
}

// AddBalance credits a positive amount to the user's spendable balance.
func (s *LedgerService) AddBalance(ctx context.Context, userID uint, amount decimal.Decimal, actorID uint) (*models.User, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		_, user, err = s.ledger.Apply(tx, userID, domain.WalletBalance, amount, repository.Entry{
			Type:        domain.TxTypeCredit,
			Description: fmt.Sprintf("Manual credit by admin %d", actorID),
		})
		return err
	})
	if err != nil {
		return nil, notFound("user", err)
	}
	s.notifier.Publish(userID, domain.EventBalanceUpdated, balanceOf(user))
	return user, nil
}

// SetBalance moves the balance to an absolute value, recording the delta as an ADJUSTMENT.
func (s *LedgerService) SetBalance(ctx context.Context, userID uint, balance decimal.Decimal, actorID uint) (*models.User, error) {
	balance = balance.Round(2)
	if balance.IsNegative() {
		return nil, invalid("balance cannot be negative")
	}
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.ledger.LockUser(tx, userID)
		if err != nil {
			return err
		}
		delta := balance.Sub(current.Balance)
		if delta.IsZero() {
			user = current
			return nil
		}
		_, user, err = s.ledger.Apply(tx, userID, domain.WalletBalance, delta, repository.Entry{
			Type:        domain.TxTypeAdjustment,
			Description: fmt.Sprintf("Balance set to %s by admin %d", balance.StringFixed(2), actorID),
		})
		return err
	})
	if err != nil {
		return nil, notFound("user", err)
	}
	s.notifier.Publish(userID, domain.EventBalanceUpdated, balanceOf(user))
	return user, nil
}

type WalletReconciliation struct {
	Wallet    string          `json:"wallet"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Drift     decimal.Decimal `json:"drift"`
}

type Reconciliation struct {
	UserID     uint                   `json:"user_id"`
	Consistent bool                   `json:"consistent"`
	Wallets    []WalletReconciliation `json:"wallets"`
}

// Reconcile compares each stored balance with the sum of its ledger.
func (s *LedgerService) Reconcile(userID uint) (*Reconciliation, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	out := &Reconciliation{UserID: userID, Consistent: true}
	for _, wallet := range []string{domain.WalletBalance, domain.WalletAffiliate} {
		sum, err := s.ledger.Sum(userID, wallet)
		if err != nil {
			return nil, err
		}
		bal := u.WalletBalance(wallet)
		drift := bal.Sub(sum)
		if !drift.IsZero() {
			out.Consistent = false
			zap.L().Warn("Ledger drift detected",
				zap.Uint("user_id", userID), zap.String("wallet", wallet),
				zap.String("balance", bal.String()), zap.String("ledger_sum", sum.String()))
		}
		out.Wallets = append(out.Wallets, WalletReconciliation{Wallet: wallet, Balance: bal, LedgerSum: sum, Drift: drift})
	}
	return out, nil
}

type balanceEvent struct {
	Balance          decimal.Decimal `json:"balance"`
	AffiliateBalance decimal.Decimal `json:"affiliate_balance"`
}

func balanceOf(u *models.User) balanceEvent {
	return balanceEvent{Balance: u.Balance, AffiliateBalance: u.AffiliateBalance}
}

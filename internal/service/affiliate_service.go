package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"smsgateway/config"
	"smsgateway/internal/domain"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AffiliateService struct {
	cfg         *config.AffiliateConfig
	baseURL     string
	db          *gorm.DB
	ledger      *repository.LedgerRepository
	affiliates  *repository.AffiliateRepository
	users       *repository.UserRepository
	withdrawals *repository.WithdrawalRepository
	settings    *repository.SettingRepository
	txs         *repository.TransactionRepository
	notifier    Notifier
}

func NewAffiliateService(
	cfg *config.Config,
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	affiliates *repository.AffiliateRepository,
	users *repository.UserRepository,
	withdrawals *repository.WithdrawalRepository,
	settings *repository.SettingRepository,
	txs *repository.TransactionRepository,
	notifier Notifier,
) *AffiliateService {
	return &AffiliateService{
		cfg:         &cfg.Affiliate,
		baseURL:     cfg.App.BaseURL,
		db:          db,
		ledger:      ledger,
		affiliates:  affiliates,
		users:       users,
		withdrawals: withdrawals,
		settings:    settings,
		txs:         txs,
		notifier:    notifierOrNop(notifier),
	}
}

type AffiliateLinkView struct {
	Code string `json:"code"`
	URL  string `json:"url"`
}

func (s *AffiliateService) GetOrCreateLink(userID uint) (*AffiliateLinkView, error) {
	link, err := s.affiliates.GetOrCreateLink(userID)
	if err != nil {
		return nil, err
	}
	return &AffiliateLinkView{Code: link.Code, URL: s.baseURL + "/register?ref=" + link.Code}, nil
}

func (s *AffiliateService) GetCommission() (decimal.Decimal, error) {
	return s.settings.GetCommission()
}

func (s *AffiliateService) SetCommission(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return invalid("commission must be between 0 and 100")
	}
	return s.settings.SetCommission(p.Round(2))
}

// Commission identifies the deposit a commission is paid for.
type Commission struct {
	DepositTransactionID uint
	ReferredUserID       uint
	Amount               decimal.Decimal
	Code                 string
}

type commissionMetadata struct {
	ReferredUserID       uint            `json:"referred_user_id"`
	DepositAmount        decimal.Decimal `json:"deposit_amount"`
	Percentage           decimal.Decimal `json:"percentage"`
	Code                 string          `json:"code"`
	DepositTransactionID uint            `json:"deposit_transaction_id,omitempty"`
}

// CreditCommission pays the referrer of a deposit in its own transaction.
func (s *AffiliateService) CreditCommission(ctx context.Context, c Commission) (*models.Transaction, error) {
	var out *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.CreditCommissionTx(tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		s.publishBalance(out.UserID)
	}
	return out, nil
}

func (s *AffiliateService) publishBalance(userID uint) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return
	}
	s.notifier.Publish(userID, domain.EventBalanceUpdated, balanceOf(u))
}

// CreditCommissionTx credits the referrer's affiliate wallet inside tx. It
// returns a nil transaction without writing anything when the commission is
// zero, the code is unknown or the referrer is the depositor.
func (s *AffiliateService) CreditCommissionTx(tx *gorm.DB, c Commission) (*models.Transaction, error) {
	percent, err := s.settings.GetCommissionTx(tx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !percent.IsPositive() {
		return nil, nil
	}
	link, err := s.affiliates.GetByCodeTx(tx, strings.TrimSpace(c.Code))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if link.UserID == c.ReferredUserID {
		return nil, nil
	}
	commission := c.Amount.Mul(percent).Div(hundred).Round(2)
	if !commission.IsPositive() {
		return nil, nil
	}
	meta, err := json.Marshal(commissionMetadata{
		ReferredUserID:       c.ReferredUserID,
		DepositAmount:        c.Amount,
		Percentage:           percent,
		Code:                 link.Code,
		DepositTransactionID: c.DepositTransactionID,
	})
	if err != nil {
		return nil, err
	}
	t, _, err := s.ledger.Apply(tx, link.UserID, domain.WalletAffiliate, commission, repository.Entry{
		Type:          domain.TxTypeAffiliateCredit,
		Description:   fmt.Sprintf("Commission on deposit by user %d", c.ReferredUserID),
		AffiliateCode: link.Code,
		Metadata:      string(meta),
	})
	return t, err
}

// RequestWithdrawal moves affiliate funds into a PENDING payout request.
func (s *AffiliateService) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal, pixKey string) (*models.WithdrawalRequest, error) {
	amount = amount.Round(2)
	pixKey = strings.TrimSpace(pixKey)
	if amount.LessThan(s.cfg.MinWithdrawal) {
		return nil, invalid("minimum withdrawal is %s", s.cfg.MinWithdrawal.StringFixed(2))
	}
	if pixKey == "" {
		return nil, invalid("pix key is required")
	}
	w := &models.WithdrawalRequest{UserID: userID, Amount: amount, PixKey: pixKey, Status: domain.WithdrawalPending}
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, u, err := s.ledger.Apply(tx, userID, domain.WalletAffiliate, amount.Neg(), repository.Entry{
			Type:        domain.TxTypeWithdrawal,
			Status:      domain.TxStatusPending,
			Description: "Affiliate withdrawal via PIX",
		})
		if err != nil {
			return err
		}
		user = u
		if err := s.users.SetPixKey(tx, userID, pixKey); err != nil {
			return err
		}
		if err := s.withdrawals.Create(tx, w); err != nil {
			return err
		}
		w.TransactionID = &t.ID
		return s.withdrawals.SetTransaction(tx, w.ID, t.ID)
	})
	if err != nil {
		return nil, notFound("user", err)
	}
	zap.L().Info("Withdrawal requested",
		zap.Uint("user_id", userID), zap.Uint("withdrawal_id", w.ID), zap.String("amount", amount.String()))
	s.notifier.Publish(userID, domain.EventBalanceUpdated, balanceOf(user))
	return w, nil
}

// UpdateWithdrawal approves or cancels a PENDING request. A cancelled request
// returns the held amount to the affiliate wallet.
func (s *AffiliateService) UpdateWithdrawal(ctx context.Context, id uint, status string) (*models.WithdrawalRequest, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != domain.WithdrawalApproved && status != domain.WithdrawalCancelled {
		return nil, invalid("status must be APPROVED or CANCELLED")
	}
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.withdrawals.GetByIDTx(tx, id)
		if err != nil {
			return err
		}
		won, err := s.withdrawals.Resolve(tx, id, status)
		if err != nil {
			return err
		}
		if !won {
			return ErrNotPending
		}
		if status == domain.WithdrawalApproved {
			if w.TransactionID != nil {
				_, err = s.ledger.Transition(tx, *w.TransactionID, domain.TxStatusPending, domain.TxStatusCompleted)
			}
			return err
		}
		_, user, err = s.ledger.Apply(tx, w.UserID, domain.WalletAffiliate, w.Amount, repository.Entry{
			Type:        domain.TxTypeRefund,
			Description: fmt.Sprintf("Withdrawal %d cancelled", w.ID),
		})
		if err != nil {
			return err
		}
		if w.TransactionID != nil {
			_, err = s.ledger.Transition(tx, *w.TransactionID, domain.TxStatusPending, domain.TxStatusRefunded)
		}
		return err
	})
	if err != nil {
		return nil, notFound("withdrawal", err)
	}
	w, err := s.withdrawals.GetByID(id)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Withdrawal resolved", zap.Uint("withdrawal_id", id), zap.String("status", status))
	if user != nil {
		s.notifier.Publish(user.ID, domain.EventBalanceUpdated, balanceOf(user))
	}
	return w, nil
}

func (s *AffiliateService) ListWithdrawals(status string) ([]models.WithdrawalRequest, error) {
	return s.withdrawals.List(strings.ToUpper(strings.TrimSpace(status)))
}

func (s *AffiliateService) MyWithdrawals(userID uint) ([]models.WithdrawalRequest, error) {
	return s.withdrawals.ListByUser(userID)
}

type AffiliateStats struct {
	Code             string          `json:"code"`
	ReferredUsers    int64           `json:"referred_users"`
	AffiliateBalance decimal.Decimal `json:"affiliate_balance"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
}

func (s *AffiliateService) Stats(userID uint) (*AffiliateStats, error) {
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	stats := &AffiliateStats{AffiliateBalance: u.AffiliateBalance}
	link, err := s.affiliates.GetByUserID(userID)
	switch {
	case err == nil:
		stats.Code = link.Code
		if stats.ReferredUsers, err = s.affiliates.CountReferred(link.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	if stats.TotalCommission, err = s.txs.CommissionTotal(userID); err != nil {
		return nil, err
	}
	return stats, nil
}

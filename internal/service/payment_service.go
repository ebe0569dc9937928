package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"smsgateway/config"
	"smsgateway/internal/domain"
	"smsgateway/internal/metrics"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"
	"smsgateway/pkg/payment"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentService struct {
	cfg        *config.PaymentConfig
	webhookURL string
	db         *gorm.DB
	ledger     *repository.LedgerRepository
	txs        *repository.TransactionRepository
	users      *repository.UserRepository
	affiliates *repository.AffiliateRepository
	jobs       *repository.CommissionJobRepository
	provider   payment.Provider
	notifier   Notifier
	now        func() time.Time
}

func NewPaymentService(
	cfg *config.Config,
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	txs *repository.TransactionRepository,
	users *repository.UserRepository,
	affiliates *repository.AffiliateRepository,
	jobs *repository.CommissionJobRepository,
	provider payment.Provider,
	notifier Notifier,
) *PaymentService {
	return &PaymentService{
		cfg:        &cfg.Payment,
		webhookURL: cfg.App.APIBaseURL + "/api/v1/payments/webhook",
		db:         db,
		ledger:     ledger,
		txs:        txs,
		users:      users,
		affiliates: affiliates,
		jobs:       jobs,
		provider:   provider,
		notifier:   notifierOrNop(notifier),
		now:        time.Now,
	}
}

type Checkout struct {
	TransactionID uint            `json:"transactionId"`
	ExternalID    string          `json:"externalId"`
	Amount        decimal.Decimal `json:"amount"`
	QRCode        string          `json:"qrCode"`
	QRCodeBase64  string          `json:"qrCodeBase64"`
	Status        string          `json:"status"`
}

// CreateCheckout opens a PIX charge and records it as a PENDING deposit.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID uint, amount decimal.Decimal, affiliateCode string) (*Checkout, error) {
	amount = amount.Round(2)
	if amount.LessThan(s.cfg.MinDeposit) {
		return nil, invalid("minimum deposit is %s", s.cfg.MinDeposit.StringFixed(2))
	}
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	code := s.referralCode(u, strings.TrimSpace(affiliateCode))

	charge, err := s.provider.CreateCharge(ctx, payment.ChargeRequest{UserID: userID, Amount: amount, WebhookURL: s.webhookURL})
	if err != nil {
		return nil, upstream("create charge", err)
	}
	externalID := charge.ID
	t := &models.Transaction{
		UserID:        userID,
		Wallet:        domain.WalletBalance,
		Amount:        amount,
		Type:          domain.TxTypeDeposit,
		Status:        domain.TxStatusPending,
		Description:   "PIX deposit",
		ExternalID:    &externalID,
		AffiliateCode: code,
	}
	if err := s.txs.Create(t); err != nil {
		return nil, fmt.Errorf("record deposit %s: %w", externalID, err)
	}
	zap.L().Info("Checkout created",
		zap.Uint("user_id", userID), zap.Uint("transaction_id", t.ID),
		zap.String("external_id", externalID), zap.String("amount", amount.String()))
	return &Checkout{
		TransactionID: t.ID,
		ExternalID:    externalID,
		Amount:        amount,
		QRCode:        charge.QRCode,
		QRCodeBase64:  charge.QRCodeBase64,
		Status:        t.Status,
	}, nil
}

// referralCode returns the code the deposit is attributed to. The first
// valid code a user pays through becomes their permanent referral.
func (s *PaymentService) referralCode(u *models.User, submitted string) string {
	if u.ReferredByLinkID != nil {
		link, err := s.affiliates.GetByID(*u.ReferredByLinkID)
		if err == nil {
			return link.Code
		}
		return ""
	}
	if submitted == "" {
		return ""
	}
	link, err := s.affiliates.GetByCode(submitted)
	if err != nil || link.UserID == u.ID {
		return ""
	}
	if _, err := s.users.SetReferredByLink(u.ID, link.ID); err != nil {
		zap.L().Warn("Failed to store referral", zap.Uint("user_id", u.ID), zap.Error(err))
	}
	return link.Code
}

// WebhookPayload is the PIX provider notification. Value and UserID are kept
// raw since providers send them as numbers or strings.
type WebhookPayload struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Value  json.RawMessage `json:"value,omitempty"`
	UserID json.RawMessage `json:"userId,omitempty"`
}

// HandleWebhook applies a provider notification. The status of an unsigned
// notification is ignored and re-read from the provider.
func (s *PaymentService) HandleWebhook(ctx context.Context, p WebhookPayload, signed bool) (*models.Transaction, error) {
	if p.ID == "" {
		return nil, invalid("id is required")
	}
	t, err := s.txs.GetByExternalID(p.ID)
	if err != nil {
		return nil, notFound("transaction", err)
	}
	if t.Status == domain.TxStatusCompleted {
		return t, ErrAlreadyProcessed
	}
	status := strings.ToLower(p.Status)
	if !signed {
		charge, err := s.provider.GetCharge(ctx, p.ID)
		if err != nil {
			return nil, upstream("get charge", err)
		}
		status = charge.Status
	}
	return s.applyUpstreamStatus(ctx, t, status)
}

// Verify re-checks one of the user's deposits with the provider.
func (s *PaymentService) Verify(ctx context.Context, userID, txID uint) (*models.Transaction, error) {
	t, err := s.txs.GetForUser(userID, txID)
	if err != nil {
		return nil, notFound("transaction", err)
	}
	if t.Status == domain.TxStatusCompleted {
		return t, ErrAlreadyProcessed
	}
	if t.Type != domain.TxTypeDeposit || t.ExternalID == nil ||
		(t.Status != domain.TxStatusPending && t.Status != domain.TxStatusExpired) {
		return t, nil
	}
	charge, err := s.provider.GetCharge(ctx, *t.ExternalID)
	if err != nil {
		return nil, upstream("get charge", err)
	}
	return s.applyUpstreamStatus(ctx, t, charge.Status)
}

// PollPending re-checks every pending deposit. Deposits older than the
// configured expiry that are still unpaid are expired.
func (s *PaymentService) PollPending(ctx context.Context) {
	pending, err := s.txs.ListPendingDeposits(200)
	if err != nil {
		zap.L().Error("List pending deposits failed", zap.Error(err))
		return
	}
	cutoff := s.now().Add(-s.cfg.Expiry)
	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		t := &pending[i]
		status, err := s.upstreamStatus(ctx, t, cutoff)
		if err != nil {
			zap.L().Warn("Deposit poll failed", zap.Uint("transaction_id", t.ID), zap.Error(err))
			continue
		}
		if _, err := s.applyUpstreamStatus(ctx, t, status); err != nil && !errors.Is(err, ErrAlreadyProcessed) {
			zap.L().Warn("Deposit status update failed", zap.Uint("transaction_id", t.ID), zap.Error(err))
		}
	}
}

func (s *PaymentService) upstreamStatus(ctx context.Context, t *models.Transaction, cutoff time.Time) (string, error) {
	charge, err := s.provider.GetCharge(ctx, *t.ExternalID)
	stale := t.CreatedAt.Before(cutoff)
	switch {
	case errors.Is(err, payment.ErrChargeNotFound) && stale:
		return payment.StatusExpired, nil
	case err != nil:
		return "", err
	case charge.Status == payment.StatusCreated && stale:
		return payment.StatusExpired, nil
	}
	return charge.Status, nil
}

func (s *PaymentService) applyUpstreamStatus(ctx context.Context, t *models.Transaction, status string) (*models.Transaction, error) {
	if t.Status == domain.TxStatusCompleted {
		return t, ErrAlreadyProcessed
	}
	switch status {
	case payment.StatusPaid:
		return s.complete(ctx, t)
	case payment.StatusExpired:
		return s.close(t, domain.TxStatusExpired)
	case payment.StatusCanceled:
		return s.close(t, domain.TxStatusCancelled)
	}
	return t, nil
}

// complete credits a paid deposit once and enqueues its commission in the same transaction.
func (s *PaymentService) complete(ctx context.Context, t *models.Transaction) (*models.Transaction, error) {
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settled, u, err := s.ledger.SettlePending(tx, t.ID)
		if err != nil {
			return err
		}
		user = u
		if settled.AffiliateCode == "" {
			return nil
		}
		return s.jobs.Enqueue(tx, &models.CommissionJob{
			DepositTransactionID: settled.ID,
			ReferredUserID:       settled.UserID,
			Amount:               settled.Amount,
			Code:                 settled.AffiliateCode,
			NextAttemptAt:        s.now(),
		})
	})
	if errors.Is(err, repository.ErrStatusChanged) {
		current, gerr := s.txs.GetByID(t.ID)
		if gerr == nil && current.Status == domain.TxStatusCompleted {
			return current, ErrAlreadyProcessed
		}
		return current, fmt.Errorf("%w: deposit is no longer pending", ErrNotPending)
	}
	if err != nil {
		return nil, err
	}
	metrics.DepositsCompleted.Inc()
	zap.L().Info("Deposit completed",
		zap.Uint("transaction_id", t.ID), zap.Uint("user_id", t.UserID), zap.String("amount", t.Amount.String()))

	done, err := s.txs.GetByID(t.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(t.UserID, domain.EventDepositCompleted, done)
	s.notifier.Publish(t.UserID, domain.EventBalanceUpdated, balanceOf(user))
	return done, nil
}

func (s *PaymentService) close(t *models.Transaction, status string) (*models.Transaction, error) {
	var won bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = s.ledger.Transition(tx, t.ID, domain.TxStatusPending, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	if won {
		zap.L().Info("Deposit closed", zap.Uint("transaction_id", t.ID), zap.String("status", status))
	}
	return s.txs.GetByID(t.ID)
}

func (s *PaymentService) Get(userID, txID uint) (*models.Transaction, error) {
	t, err := s.txs.GetForUser(userID, txID)
	if err != nil {
		return nil, notFound("transaction", err)
	}
	return t, nil
}

func (s *PaymentService) History(userID uint, kind string, limit, offset int) ([]models.Transaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.txs.ListByUser(userID, strings.ToUpper(kind), limit, offset)
}

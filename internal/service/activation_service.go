package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smsgateway/internal/domain"
	"smsgateway/internal/metrics"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"
	"smsgateway/pkg/smsactivate"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ActivationService struct {
	db          *gorm.DB
	ledger      *repository.LedgerRepository
	activations *repository.ActivationRepository
	users       *repository.UserRepository
	pricing     *PricingService
	sms         SMSProvider
	notifier    Notifier
}

func NewActivationService(
	db *gorm.DB,
	ledger *repository.LedgerRepository,
	activations *repository.ActivationRepository,
	users *repository.UserRepository,
	pricing *PricingService,
	sms SMSProvider,
	notifier Notifier,
) *ActivationService {
	return &ActivationService{
		db:          db,
		ledger:      ledger,
		activations: activations,
		users:       users,
		pricing:     pricing,
		sms:         sms,
		notifier:    notifierOrNop(notifier),
	}
}

// Buy rents a number for the user. The balance is checked before any upstream
// call; the debit, the activation row and the DEBIT entry commit together.
func (s *ActivationService) Buy(ctx context.Context, userID uint, service, country string) (*models.SmsActivation, error) {
	service, country = ResolveService(service), ResolveCountry(country)
	if !validCode(service) || !validCode(country) {
		return nil, invalid("service and country must be upstream codes or known aliases")
	}
	price, err := s.pricing.Quote(ctx, service, country)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, notFound("user", err)
	}
	if u.Balance.LessThan(price.PriceBrl) {
		metrics.Activations.WithLabelValues("insufficient_balance").Inc()
		return nil, ErrInsufficientBalance
	}

	num, err := s.sms.GetNumber(ctx, service, country)
	if err != nil {
		metrics.Activations.WithLabelValues("upstream_error").Inc()
		return nil, upstream("getNumber", err)
	}

	a := &models.SmsActivation{
		UserID:       userID,
		Service:      service,
		Country:      country,
		ActivationID: num.ActivationID,
		Number:       num.Phone,
		Price:        price.PriceBrl,
		Status:       domain.ActivationPending,
	}
	var user *models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.activations.Create(tx, a); err != nil {
			return err
		}
		debit, updated, err := s.ledger.Apply(tx, userID, domain.WalletBalance, price.PriceBrl.Neg(), repository.Entry{
			Type:         domain.TxTypeDebit,
			Description:  fmt.Sprintf("SMS number %s/%s", service, country),
			ActivationID: &a.ID,
		})
		if err != nil {
			return err
		}
		user = updated
		a.TransactionID = &debit.ID
		return s.activations.SetTransaction(tx, a.ID, debit.ID)
	})
	if err != nil {
		metrics.Activations.WithLabelValues("failed").Inc()
		s.releaseNumber(num.ActivationID, err)
		return nil, err
	}

	metrics.Activations.WithLabelValues("purchased").Inc()
	zap.L().Info("Number purchased",
		zap.Uint("user_id", userID),
		zap.String("activation_id", a.ActivationID),
		zap.String("price", a.Price.String()))
	s.notifier.Publish(userID, domain.EventBalanceUpdated, balanceOf(user))
	return a, nil
}

// releaseNumber cancels an allocated number whose local purchase failed.
func (s *ActivationService) releaseNumber(activationID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := s.sms.SetStatus(ctx, activationID, smsactivate.SetStatusCancel); err != nil {
		zap.L().Error("Failed to release upstream number after local failure",
			zap.String("activation_id", activationID), zap.NamedError("cause", cause), zap.Error(err))
		return
	}
	zap.L().Warn("Released upstream number after local failure",
		zap.String("activation_id", activationID), zap.Error(cause))
}

// ApplyStatus moves a PENDING activation to its terminal state. A cancellation
// refunds the completed debit in the same transaction. Terminal states are final.
func (s *ActivationService) ApplyStatus(ctx context.Context, activationID string, state smsactivate.State, code *string) (*models.SmsActivation, error) {
	a, err := s.activations.GetByProviderID(activationID)
	if err != nil {
		return nil, notFound("activation", err)
	}
	var target string
	switch state {
	case smsactivate.StateSuccess:
		target = domain.ActivationCompleted
	case smsactivate.StateCancelled:
		target = domain.ActivationCancelled
	default:
		return a, nil
	}

	var refunded *models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.activations.Finish(tx, a.ID, target, code)
		if err != nil || !won {
			return err
		}
		if target != domain.ActivationCancelled {
			return nil
		}
		debit, err := s.activations.DebitFor(tx, a)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		flipped, err := s.ledger.Transition(tx, debit.ID, domain.TxStatusCompleted, domain.TxStatusRefunded)
		if err != nil || !flipped {
			return err
		}
		_, refunded, err = s.ledger.Apply(tx, a.UserID, domain.WalletBalance, debit.Amount.Neg(), repository.Entry{
			Type:         domain.TxTypeRefund,
			Description:  fmt.Sprintf("Refund for cancelled activation %s", a.ActivationID),
			ActivationID: &a.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.activations.GetByProviderID(activationID)
	if err != nil {
		return nil, err
	}
	if updated.Status != a.Status {
		metrics.Activations.WithLabelValues(updated.Status).Inc()
		s.notifier.Publish(updated.UserID, domain.EventActivationUpdated, updated)
	}
	if refunded != nil {
		s.notifier.Publish(updated.UserID, domain.EventBalanceUpdated, balanceOf(refunded))
	}
	return updated, nil
}

func (s *ActivationService) owned(userID uint, activationID string) (*models.SmsActivation, error) {
	a, err := s.activations.GetByProviderID(activationID)
	if err != nil {
		return nil, notFound("activation", err)
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("%w: activation", ErrNotFound)
	}
	return a, nil
}

// Poll asks upstream for the activation status and applies it.
func (s *ActivationService) Poll(ctx context.Context, userID uint, activationID string) (*models.SmsActivation, error) {
	a, err := s.owned(userID, activationID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.ActivationPending {
		return a, nil
	}
	st, err := s.sms.GetStatus(ctx, activationID)
	if err != nil {
		return nil, upstream("getStatus", err)
	}
	return s.ApplyStatus(ctx, activationID, st.State, st.Code)
}

// HandleWebhook applies a status pushed by the provider (6 success, 8 cancelled).
// An unsigned notification only triggers a status read from the provider.
func (s *ActivationService) HandleWebhook(ctx context.Context, activationID, status, code string, signed bool) (*models.SmsActivation, error) {
	if !signed {
		a, err := s.activations.GetByProviderID(activationID)
		if err != nil {
			return nil, notFound("activation", err)
		}
		if a.Status != domain.ActivationPending {
			return a, nil
		}
		st, err := s.sms.GetStatus(ctx, activationID)
		if err != nil {
			return nil, upstream("getStatus", err)
		}
		return s.ApplyStatus(ctx, activationID, st.State, st.Code)
	}
	var c *string
	if code != "" {
		c = &code
	}
	return s.ApplyStatus(ctx, activationID, smsactivate.StateFromWebhook(status), c)
}

// Cancel cancels upstream first and then refunds locally.
func (s *ActivationService) Cancel(ctx context.Context, userID uint, activationID string) (*models.SmsActivation, error) {
	a, err := s.owned(userID, activationID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.ActivationPending {
		return nil, fmt.Errorf("%w: activation is %s", ErrNotPending, a.Status)
	}
	if _, err := s.sms.SetStatus(ctx, activationID, smsactivate.SetStatusCancel); err != nil {
		return nil, upstream("setStatus", err)
	}
	return s.ApplyStatus(ctx, activationID, smsactivate.StateCancelled, nil)
}

func (s *ActivationService) ListRecent(userID uint, limit int) ([]models.SmsActivation, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.activations.ListRecentByUser(userID, limit)
}

func (s *ActivationService) NumbersStatus(ctx context.Context, country, operator string) (json.RawMessage, error) {
	country = ResolveCountry(country)
	if !validCode(country) {
		return nil, invalid("country is required")
	}
	out, err := s.sms.GetNumbersStatus(ctx, country, operator)
	if err != nil {
		return nil, upstream("getNumbersStatus", err)
	}
	return out, nil
}

func (s *ActivationService) Countries(ctx context.Context) (map[string]string, error) {
	out, err := s.sms.GetCountries(ctx)
	if err != nil {
		return nil, upstream("getCountries", err)
	}
	return out, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"smsgateway/config"
	"smsgateway/internal/domain"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"
	"smsgateway/internal/testutil"
	"smsgateway/pkg/payment"
	"smsgateway/pkg/smsactivate"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeSMS struct {
	mu          sync.Mutex
	prices      []smsactivate.Price
	pricesErr   error
	nextID      int
	numberErr   error
	numberCalls int
	statuses    map[string]*smsactivate.Status
	setCalls    map[string][]int
	statusCalls int
}

func newFakeSMS() *fakeSMS {
	return &fakeSMS{statuses: map[string]*smsactivate.Status{}, setCalls: map[string][]int{}}
}

func (f *fakeSMS) GetPrices(ctx context.Context) ([]smsactivate.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prices, f.pricesErr
}

func (f *fakeSMS) GetNumber(ctx context.Context, service, country string) (*smsactivate.Number, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numberCalls++
	if f.numberErr != nil {
		return nil, f.numberErr
	}
	f.nextID++
	return &smsactivate.Number{ActivationID: "act" + strconv.Itoa(f.nextID), Phone: "5511999990000"}, nil
}

func (f *fakeSMS) GetStatus(ctx context.Context, activationID string) (*smsactivate.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if st, ok := f.statuses[activationID]; ok {
		return st, nil
	}
	return &smsactivate.Status{State: smsactivate.StatePending}, nil
}

func (f *fakeSMS) SetStatus(ctx context.Context, activationID string, status int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls[activationID] = append(f.setCalls[activationID], status)
	return "ACCESS_CANCEL", nil
}

func (f *fakeSMS) GetNumbersStatus(ctx context.Context, country, operator string) (json.RawMessage, error) {
	return json.RawMessage(`{"wa_0":"12"}`), nil
}

func (f *fakeSMS) GetCountries(ctx context.Context) (map[string]string, error) {
	return map[string]string{"0": "russia", "73": "brazil"}, nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type publishedEvent struct {
	userID uint
	kind   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(userID uint, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{userID, eventType})
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.kind == kind {
			c++
		}
	}
	return c
}

// testEnv wires every service against one in-memory database.
type testEnv struct {
	cfg    *config.Config
	db     *gorm.DB
	sms    *fakeSMS
	pay    *payment.StubProvider
	mail   *fakeMailer
	events *recordingNotifier

	users       *repository.UserRepository
	ledgerRepo  *repository.LedgerRepository
	txs         *repository.TransactionRepository
	prices      *repository.PriceRepository
	settings    *repository.SettingRepository
	affRepo     *repository.AffiliateRepository
	jobs        *repository.CommissionJobRepository
	activations *repository.ActivationRepository

	pricing    *PricingService
	ledger     *LedgerService
	activation *ActivationService
	payments   *PaymentService
	affiliate  *AffiliateService
	worker     *CommissionWorker
	auth       *AuthService
	userSvc    *UserService
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{BaseURL: "http://app.test", APIBaseURL: "http://api.test"},
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "smsgateway-test",
		},
		Payment: config.PaymentConfig{
			MinDeposit: decimal.RequireFromString("1.00"),
			Expiry:     time.Hour,
		},
		Pricing: config.PricingConfig{
			ExchangeRate:   decimal.RequireFromString("5.5"),
			ProviderMarkup: decimal.RequireFromString("1.5"),
		},
		Affiliate: config.AffiliateConfig{
			MinWithdrawal:  decimal.NewFromInt(50),
			WorkerInterval: time.Second,
			MaxAttempts:    3,
			RetryBackoff:   time.Second,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		cfg:    testConfig(),
		db:     testutil.NewDB(t),
		sms:    newFakeSMS(),
		pay:    payment.NewStubProvider(),
		mail:   &fakeMailer{},
		events: &recordingNotifier{},
	}
	e.users = repository.NewUserRepository(e.db)
	e.ledgerRepo = repository.NewLedgerRepository(e.db)
	e.txs = repository.NewTransactionRepository(e.db)
	e.prices = repository.NewPriceRepository(e.db)
	e.settings = repository.NewSettingRepository(e.db)
	e.affRepo = repository.NewAffiliateRepository(e.db)
	e.jobs = repository.NewCommissionJobRepository(e.db)
	e.activations = repository.NewActivationRepository(e.db)

	e.pricing = NewPricingService(&e.cfg.Pricing, e.prices, e.settings, e.sms)
	e.ledger = NewLedgerService(e.db, e.ledgerRepo, e.users, e.events)
	e.activation = NewActivationService(e.db, e.ledgerRepo, e.activations, e.users, e.pricing, e.sms, e.events)
	e.payments = NewPaymentService(e.cfg, e.db, e.ledgerRepo, e.txs, e.users, e.affRepo, e.jobs, e.pay, e.events)
	e.affiliate = NewAffiliateService(e.cfg, e.db, e.ledgerRepo, e.affRepo, e.users,
		repository.NewWithdrawalRepository(e.db), e.settings, e.txs, e.events)
	e.worker = NewCommissionWorker(&e.cfg.Affiliate, e.db, e.jobs, e.affiliate)
	e.auth = NewAuthService(e.cfg, e.db, e.users, repository.NewAuthTokenRepository(e.db), e.affRepo, e.mail)
	e.userSvc = NewUserService(e.users, repository.NewAdminRepository(e.db))
	return e
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Test User", Email: email, Role: domain.RoleUser}
	if err := e.users.Create(u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

// fund credits the balance through the ledger so reconciliation holds.
func (e *testEnv) fund(t *testing.T, userID uint, amount string) {
	t.Helper()
	if _, err := e.ledger.AddBalance(context.Background(), userID, decimal.RequireFromString(amount), 0); err != nil {
		t.Fatalf("AddBalance failed: %v", err)
	}
}

func (e *testEnv) balance(t *testing.T, userID uint) *models.User {
	t.Helper()
	u, err := e.users.GetByID(userID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	return u
}

func (e *testEnv) countTx(t *testing.T, userID uint, txType string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.Transaction{}).Where("user_id = ? AND type = ?", userID, txType).Count(&n).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

func (e *testEnv) assertReconciled(t *testing.T, userID uint) {
	t.Helper()
	r, err := e.ledger.Reconcile(userID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !r.Consistent {
		t.Errorf("Expected ledger to reconcile, got %+v", r.Wallets)
	}
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("Expected %v, got %v", target, err)
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

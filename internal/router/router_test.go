package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"smsgateway/config"
	"smsgateway/internal/domain"
	"smsgateway/internal/models"
	"smsgateway/internal/testutil"
	"smsgateway/pkg/mailer"
	"smsgateway/pkg/payment"
	"smsgateway/pkg/smsactivate"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeSMS struct {
	mu     sync.Mutex
	nextID int
}

func (f *fakeSMS) GetPrices(ctx context.Context) ([]smsactivate.Price, error) {
	return []smsactivate.Price{
		{Service: "wa", Country: "73", Cost: decimal.RequireFromString("1.00"), Count: 10},
		{Service: "tg", Country: "73", Cost: decimal.RequireFromString("0.50"), Count: 3},
	}, nil
}

func (f *fakeSMS) GetNumber(ctx context.Context, service, country string) (*smsactivate.Number, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return &smsactivate.Number{ActivationID: "act" + strconv.Itoa(f.nextID), Phone: "5511988887777"}, nil
}

func (f *fakeSMS) GetStatus(ctx context.Context, activationID string) (*smsactivate.Status, error) {
	return &smsactivate.Status{State: smsactivate.StatePending}, nil
}

func (f *fakeSMS) SetStatus(ctx context.Context, activationID string, status int) (string, error) {
	return "ACCESS_CANCEL", nil
}

func (f *fakeSMS) GetNumbersStatus(ctx context.Context, country, operator string) (json.RawMessage, error) {
	return json.RawMessage(`{"wa_0":"12"}`), nil
}

func (f *fakeSMS) GetCountries(ctx context.Context) (map[string]string, error) {
	return map[string]string{"73": "brazil"}, nil
}

type testServer struct {
	t     *testing.T
	db    *gorm.DB
	app   *App
	stub  *payment.StubProvider
	admin string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test", CORSOrigins: []string{"http://app.test"}},
		App:    config.AppConfig{BaseURL: "http://app.test", APIBaseURL: "http://api.test"},
		JWT: config.JWTConfig{
			AccessSecret:  "access-secret",
			RefreshSecret: "refresh-secret",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "smsgateway-test",
		},
		Payment: config.PaymentConfig{MinDeposit: decimal.RequireFromString("1.00"), Expiry: time.Hour},
		Pricing: config.PricingConfig{
			ExchangeRate:   decimal.RequireFromString("5.5"),
			ProviderMarkup: decimal.RequireFromString("1.5"),
		},
		Affiliate: config.AffiliateConfig{MinWithdrawal: decimal.NewFromInt(50), MaxAttempts: 3, RetryBackoff: time.Second},
	}
	db := testutil.NewDB(t)
	stub := payment.NewStubProvider()
	s := &testServer{
		t:    t,
		db:   db,
		stub: stub,
		app:  Setup(cfg, db, Providers{SMS: &fakeSMS{}, Payment: stub, Mailer: mailer.LogMailer{}}),
	}

	_, token := s.register("Admin", "admin@example.com")
	if err := db.Model(&models.User{}).Where("email = ?", "admin@example.com").Update("role", domain.RoleAdmin).Error; err != nil {
		t.Fatalf("Failed to promote admin: %v", err)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/admin/login", token, map[string]string{
		"email": "admin@example.com", "password": "secret123",
	}), http.StatusOK, &login)
	s.admin = login.AccessToken
	return s
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) expect(w *httptest.ResponseRecorder, status int, out interface{}) {
	s.t.Helper()
	if w.Code != status {
		s.t.Fatalf("Expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			s.t.Fatalf("Failed to decode response: %v (%s)", err, w.Body.String())
		}
	}
}

func (s *testServer) register(name, email string) (uint, string) {
	s.t.Helper()
	var resp struct {
		User        models.User `json:"user"`
		AccessToken string      `json:"access_token"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	}), http.StatusCreated, &resp)
	return resp.User.ID, resp.AccessToken
}

func (s *testServer) me(token string) models.User {
	s.t.Helper()
	var u models.User
	s.expect(s.do(http.MethodGet, "/api/v1/users/me", token, nil), http.StatusOK, &u)
	return u
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	s.expect(s.do(http.MethodGet, "/healthz", "", nil), http.StatusOK, nil)
	w := s.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected metrics endpoint to answer 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("http_requests_total")) {
		t.Errorf("Expected request counter in metrics output")
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	_, user := s.register("Regular", "user@example.com")

	if w := s.do(http.MethodGet, "/api/v1/admin/users", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/v1/admin/users", user, nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/v1/credits/markup", user, map[string]string{"percentage": "10"}); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for markup change by non-admin, got %d", w.Code)
	}
	var list struct {
		Data  []models.User `json:"data"`
		Total int64         `json:"total"`
	}
	s.expect(s.do(http.MethodGet, "/api/v1/admin/users", s.admin, nil), http.StatusOK, &list)
	if list.Total != 2 {
		t.Errorf("Expected 2 users, got %d", list.Total)
	}
}

func TestBuyAndCancelNumber(t *testing.T) {
	s := newTestServer(t)
	userID, user := s.register("Buyer", "buyer@example.com")

	s.expect(s.do(http.MethodPost, "/api/v1/credits/markup", s.admin, map[string]string{"percentage": "20"}), http.StatusOK, nil)
	var refreshed struct {
		PricesUpdated int `json:"prices_updated"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/credits/refresh-prices", s.admin, nil), http.StatusOK, &refreshed)
	if refreshed.PricesUpdated != 2 {
		t.Fatalf("Expected 2 prices, got %d", refreshed.PricesUpdated)
	}

	w := s.do(http.MethodPost, "/api/v1/sms/buy", user, map[string]string{"service": "whatsapp", "country": "brazil"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 with empty balance, got %d: %s", w.Code, w.Body.String())
	}

	s.expect(s.do(http.MethodPost, "/api/v1/admin/users/balance/add", s.admin, map[string]interface{}{
		"userId": userID, "amount": "20.00",
	}), http.StatusOK, nil)

	var a models.SmsActivation
	s.expect(s.do(http.MethodPost, "/api/v1/sms/buy", user, map[string]string{"service": "whatsapp", "country": "brazil"}), http.StatusCreated, &a)
	if !a.Price.Equal(decimal.RequireFromString("9.90")) {
		t.Errorf("Expected price 9.90, got %s", a.Price)
	}
	if a.Status != domain.ActivationPending {
		t.Errorf("Expected PENDING activation, got %s", a.Status)
	}
	if got := s.me(user).Balance; !got.Equal(decimal.RequireFromString("10.10")) {
		t.Errorf("Expected balance 10.10 after purchase, got %s", got)
	}

	var cancelled models.SmsActivation
	s.expect(s.do(http.MethodPost, "/api/v1/sms/activations/"+a.ActivationID+"/cancel", user, nil), http.StatusOK, &cancelled)
	if cancelled.Status != domain.ActivationCancelled {
		t.Errorf("Expected CANCELLED, got %s", cancelled.Status)
	}
	if got := s.me(user).Balance; !got.Equal(decimal.RequireFromString("20")) {
		t.Errorf("Expected refund to restore 20.00, got %s", got)
	}

	// A second cancel must not refund again.
	if w := s.do(http.MethodPost, "/api/v1/sms/activations/"+a.ActivationID+"/cancel", user, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 on second cancel, got %d", w.Code)
	}

	var rec struct {
		Consistent bool `json:"consistent"`
	}
	s.expect(s.do(http.MethodGet, "/api/v1/admin/users/"+strconv.FormatUint(uint64(userID), 10)+"/reconcile", s.admin, nil), http.StatusOK, &rec)
	if !rec.Consistent {
		t.Errorf("Expected ledger to reconcile after buy and cancel")
	}
}

func TestUpdateMarkupReprices(t *testing.T) {
	s := newTestServer(t)
	s.expect(s.do(http.MethodPost, "/api/v1/credits/refresh-prices", s.admin, nil), http.StatusOK, nil)

	var filtered struct {
		Data []models.ServicePrice `json:"data"`
	}
	s.expect(s.do(http.MethodGet, "/api/v1/credits/prices/filter?services=wa&country=73", "", nil), http.StatusOK, &filtered)
	if len(filtered.Data) != 1 || !filtered.Data[0].PriceBrl.Equal(decimal.RequireFromString("8.25")) {
		t.Fatalf("Expected wa/73 at 8.25 before markup, got %+v", filtered.Data)
	}

	var updated struct {
		PricesUpdated int `json:"prices_updated"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/credits/update-markup", s.admin, map[string]string{"percentage": "20"}), http.StatusOK, &updated)
	if updated.PricesUpdated != 2 {
		t.Errorf("Expected 2 prices updated, got %d", updated.PricesUpdated)
	}
	s.expect(s.do(http.MethodGet, "/api/v1/credits/prices/filter?services=wa&country=73", "", nil), http.StatusOK, &filtered)
	if len(filtered.Data) != 1 || !filtered.Data[0].PriceBrl.Equal(decimal.RequireFromString("9.90")) {
		t.Errorf("Expected wa/73 at 9.90 after markup, got %+v", filtered.Data)
	}

	if w := s.do(http.MethodPost, "/api/v1/credits/update-markup", s.admin, map[string]string{"percentage": "1001"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out of range markup, got %d", w.Code)
	}
}

func TestCancelOtherUsersActivationIsForbidden(t *testing.T) {
	s := newTestServer(t)
	ownerID, owner := s.register("Owner", "owner@example.com")
	_, other := s.register("Other", "other@example.com")
	s.expect(s.do(http.MethodPost, "/api/v1/admin/users/balance/add", s.admin, map[string]interface{}{
		"userId": ownerID, "amount": "50",
	}), http.StatusOK, nil)

	var a models.SmsActivation
	s.expect(s.do(http.MethodPost, "/api/v1/sms/buy", owner, map[string]string{"service": "wa", "country": "73"}), http.StatusCreated, &a)

	w := s.do(http.MethodPost, "/api/v1/sms/activations/"+a.ActivationID+"/cancel", other, nil)
	if w.Code != http.StatusForbidden && w.Code != http.StatusNotFound {
		t.Errorf("Expected 403 or 404 for a foreign activation, got %d", w.Code)
	}
}

func TestDepositWebhookFlow(t *testing.T) {
	s := newTestServer(t)
	_, user := s.register("Payer", "payer@example.com")

	if w := s.do(http.MethodPost, "/api/v1/payments/create", user, map[string]string{"amount": "0.50"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 below minimum deposit, got %d", w.Code)
	}

	var checkout struct {
		TransactionID uint   `json:"transactionId"`
		ExternalID    string `json:"externalId"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/payments/create", user, map[string]string{"amount": "25.00"}), http.StatusCreated, &checkout)
	if checkout.ExternalID == "" {
		t.Fatalf("Expected external id on checkout")
	}

	// An unsigned webhook claiming payment is ignored while the charge is still open.
	var early struct {
		Status string `json:"status"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/payments/webhook", "", map[string]string{
		"id": checkout.ExternalID, "status": "paid",
	}), http.StatusOK, &early)
	if early.Status != domain.TxStatusPending {
		t.Errorf("Expected deposit to stay PENDING, got %s", early.Status)
	}
	if got := s.me(user).Balance; !got.IsZero() {
		t.Fatalf("Expected no credit before payment, got %s", got)
	}

	s.stub.SetStatus(checkout.ExternalID, payment.StatusPaid)
	var done struct {
		Status string `json:"status"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/payments/webhook", "", map[string]string{
		"id": checkout.ExternalID, "status": "paid",
	}), http.StatusOK, &done)
	if done.Status != domain.TxStatusCompleted {
		t.Errorf("Expected COMPLETED, got %s", done.Status)
	}

	var again struct {
		Message string `json:"message"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/payments/webhook", "", map[string]string{
		"id": checkout.ExternalID, "status": "paid",
	}), http.StatusOK, &again)
	if again.Message != "already processed" {
		t.Errorf("Expected replay to be acknowledged as already processed, got %q", again.Message)
	}
	if got := s.me(user).Balance; !got.Equal(decimal.RequireFromString("25")) {
		t.Errorf("Expected balance 25.00 credited once, got %s", got)
	}

	var status struct {
		Status string `json:"status"`
	}
	s.expect(s.do(http.MethodGet, "/api/v1/payments/"+strconv.FormatUint(uint64(checkout.TransactionID), 10)+"/status", user, nil), http.StatusOK, &status)
	if status.Status != domain.TxStatusCompleted {
		t.Errorf("Expected status route to report COMPLETED, got %s", status.Status)
	}
}

func TestAffiliateWithdrawalRoutes(t *testing.T) {
	s := newTestServer(t)
	userID, user := s.register("Affiliate", "aff@example.com")

	var link struct {
		Code string `json:"code"`
		URL  string `json:"url"`
	}
	s.expect(s.do(http.MethodGet, "/api/v1/affiliate/link", user, nil), http.StatusOK, &link)
	if link.Code == "" || link.URL != "http://app.test/register?ref="+link.Code {
		t.Errorf("Unexpected affiliate link %+v", link)
	}

	if w := s.do(http.MethodPost, "/api/v1/affiliate/withdrawal", user, map[string]string{"amount": "60", "pix_key": "key"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 with empty affiliate balance, got %d", w.Code)
	}

	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Update("affiliate_balance", decimal.NewFromInt(100)).Error; err != nil {
		t.Fatalf("Failed to seed affiliate balance: %v", err)
	}
	var w models.WithdrawalRequest
	s.expect(s.do(http.MethodPost, "/api/v1/affiliate/withdrawal", user, map[string]string{"amount": "60", "pix_key": "key"}), http.StatusCreated, &w)

	if resp := s.do(http.MethodPatch, "/api/v1/affiliate/withdrawals/"+strconv.FormatUint(uint64(w.ID), 10), user, map[string]string{"status": "APPROVED"}); resp.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin approval, got %d", resp.Code)
	}
	var cancelled models.WithdrawalRequest
	s.expect(s.do(http.MethodPatch, "/api/v1/affiliate/withdrawals/"+strconv.FormatUint(uint64(w.ID), 10), s.admin, map[string]string{"status": "cancelled"}), http.StatusOK, &cancelled)
	if cancelled.Status != domain.WithdrawalCancelled {
		t.Errorf("Expected CANCELLED, got %s", cancelled.Status)
	}
	if got := s.me(user).AffiliateBalance; !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected cancelled withdrawal to be refunded, got %s", got)
	}

	var trail struct {
		Data []models.AuditLog `json:"data"`
	}
	s.expect(s.do(http.MethodGet, "/api/v1/admin/audit?resource=withdrawal&resource_id="+strconv.FormatUint(uint64(w.ID), 10), s.admin, nil), http.StatusOK, &trail)
	if len(trail.Data) != 1 {
		t.Errorf("Expected one audit entry for the withdrawal, got %d", len(trail.Data))
	}
}

func TestSMSWebhookRequiresKnownActivation(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(http.MethodPost, "/api/v1/sms/webhook", "", map[string]string{"activationId": "missing", "status": "6"}); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown activation, got %d: %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPost, "/api/v1/sms/webhook", "", map[string]string{"status": "6"}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without activation id, got %d", w.Code)
	}
}

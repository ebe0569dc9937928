package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPushinPayCreateCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/pix/cashIn" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Missing bearer token")
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["value"].(float64) != 2550 {
			t.Errorf("Expected 2550 cents, got %v", body["value"])
		}
		w.Write([]byte(`{"id":"9c1d","qr_code":"000201","qr_code_base64":"data:image/png;base64,AAA","status":"created","value":2550}`))
	}))
	defer srv.Close()

	p := NewPushinPayProvider(srv.URL, "secret", 5*time.Second)
	c, err := p.CreateCharge(context.Background(), ChargeRequest{UserID: 1, Amount: decimal.RequireFromString("25.50")})
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}
	if c.ID != "9c1d" || c.Status != StatusCreated || c.QRCode != "000201" {
		t.Errorf("Unexpected charge %+v", c)
	}
	if !c.Amount.Equal(decimal.RequireFromString("25.50")) {
		t.Errorf("Expected amount 25.50, got %s", c.Amount)
	}
}

func TestPushinPayGetCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transactions/paid-one":
			w.Write([]byte(`{"id":"paid-one","status":"PAID","value":1000}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewPushinPayProvider(srv.URL, "secret", 5*time.Second)
	c, err := p.GetCharge(context.Background(), "paid-one")
	if err != nil {
		t.Fatalf("GetCharge failed: %v", err)
	}
	if c.Status != StatusPaid {
		t.Errorf("Expected paid, got %s", c.Status)
	}
	if _, err := p.GetCharge(context.Background(), "missing"); !errors.Is(err, ErrChargeNotFound) {
		t.Errorf("Expected ErrChargeNotFound, got %v", err)
	}
}

func TestPushinPayUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	p := NewPushinPayProvider(srv.URL, "secret", 5*time.Second)
	if _, err := p.CreateCharge(context.Background(), ChargeRequest{Amount: decimal.NewFromInt(10)}); err == nil {
		t.Fatal("Expected error on 500")
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":"x","status":"paid"}`)
	mac := hmac.New(sha256.New, []byte("k"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature("k", body, sig) {
		t.Error("Expected valid signature")
	}
	if VerifySignature("k", body, "deadbeef") {
		t.Error("Expected invalid signature")
	}
	if VerifySignature("other", body, sig) {
		t.Error("Expected signature from another secret to fail")
	}
}

func TestStubProvider(t *testing.T) {
	s := NewStubProvider()
	c, err := s.CreateCharge(context.Background(), ChargeRequest{Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}
	if !s.SetStatus(c.ID, StatusPaid) {
		t.Fatal("SetStatus should find the charge")
	}
	got, err := s.GetCharge(context.Background(), c.ID)
	if err != nil || got.Status != StatusPaid {
		t.Fatalf("Expected paid charge, got %+v %v", got, err)
	}
	if _, err := s.GetCharge(context.Background(), "nope"); !errors.Is(err, ErrChargeNotFound) {
		t.Errorf("Expected ErrChargeNotFound, got %v", err)
	}
}

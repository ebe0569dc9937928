package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smsgateway/config"

	"github.com/gin-gonic/gin"
)

func postWebhook(h gin.HandlerFunc, body, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/hook", h)
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhooksRejectBadSignature(t *testing.T) {
	pay := NewPaymentWebhookHandler(nil, &config.PaymentConfig{WebhookSecret: "secret"})
	if w := postWebhook(pay.Handle, `{"id":"x","status":"paid"}`, "deadbeef"); w.Code != http.StatusUnauthorized {
		t.Errorf("Payment webhook: expected 401, got %d", w.Code)
	}
	if w := postWebhook(pay.Handle, `{"id":"x","status":"paid"}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Payment webhook without signature: expected 401, got %d", w.Code)
	}

	sms := NewSMSHandler(nil, "secret")
	if w := postWebhook(sms.Webhook, `{"activationId":"1","status":"8"}`, "deadbeef"); w.Code != http.StatusUnauthorized {
		t.Errorf("SMS webhook: expected 401, got %d", w.Code)
	}
}

func TestSMSWebhookRejectsMalformedBody(t *testing.T) {
	sms := NewSMSHandler(nil, "")
	if w := postWebhook(sms.Webhook, `not json`, ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"smsgateway/config"
	"smsgateway/internal/service"
	"smsgateway/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type PaymentWebhookHandler struct {
	payments *service.PaymentService
	cfg      *config.PaymentConfig
}

func NewPaymentWebhookHandler(payments *service.PaymentService, cfg *config.PaymentConfig) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{payments: payments, cfg: cfg}
}

// Handle receives {id, status, value, userId} from the PIX provider. With a
// configured secret the body must carry a valid X-Webhook-Signature; without
// one the status is confirmed against the provider.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	signed := false
	if h.cfg.WebhookSecret != "" {
		if !payment.VerifySignature(h.cfg.WebhookSecret, body, c.GetHeader("X-Webhook-Signature")) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		signed = true
	}
	var payload service.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	t, err := h.payments.HandleWebhook(c.Request.Context(), payload, signed)
	if errors.Is(err, service.ErrAlreadyProcessed) {
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "already processed"})
		return
	}
	if err != nil {
		respondError(c, err, "failed to process webhook")
		return
	}
	zap.L().Info("Payment webhook processed",
		zap.String("external_id", payload.ID), zap.String("status", t.Status), zap.Bool("signed", signed))
	c.JSON(http.StatusOK, gin.H{"received": true, "status": t.Status})
}

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"smsgateway/internal/middleware"
	"smsgateway/internal/service"
	"smsgateway/pkg/payment"

	"github.com/gin-gonic/gin"
)

type SMSHandler struct {
	activations   *service.ActivationService
	webhookSecret string
}

func NewSMSHandler(activations *service.ActivationService, webhookSecret string) *SMSHandler {
	return &SMSHandler{activations: activations, webhookSecret: webhookSecret}
}

type BuyRequest struct {
	Service string `json:"service" binding:"required"`
	Country string `json:"country" binding:"required"`
}

// Buy handles POST /sms/buy.
func (h *SMSHandler) Buy(c *gin.Context) {
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.activations.Buy(c.Request.Context(), middleware.GetUserID(c), req.Service, req.Country)
	if err != nil {
		respondError(c, err, "failed to buy number")
		return
	}
	c.JSON(http.StatusCreated, a)
}

// Status handles GET /sms/status/:activationId.
func (h *SMSHandler) Status(c *gin.Context) {
	a, err := h.activations.Poll(c.Request.Context(), middleware.GetUserID(c), c.Param("activationId"))
	if err != nil {
		respondError(c, err, "failed to get activation status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": a.Status, "code": a.Code, "activation": a})
}

// Cancel handles POST /sms/activations/:id/cancel. The id is the provider activation id.
func (h *SMSHandler) Cancel(c *gin.Context) {
	a, err := h.activations.Cancel(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to cancel activation")
		return
	}
	c.JSON(http.StatusOK, a)
}

// Recent handles GET /sms/activations?limit=10.
func (h *SMSHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	list, err := h.activations.ListRecent(middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err, "failed to list activations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *SMSHandler) NumbersStatus(c *gin.Context) {
	out, err := h.activations.NumbersStatus(c.Request.Context(), c.Query("country"), c.Query("operator"))
	if err != nil {
		respondError(c, err, "failed to get numbers status")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

func (h *SMSHandler) Countries(c *gin.Context) {
	out, err := h.activations.Countries(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list countries")
		return
	}
	c.JSON(http.StatusOK, out)
}

type smsWebhookPayload struct {
	ActivationID string `json:"activationId"`
	Status       string `json:"status"`
	Code         string `json:"code"`
}

// Webhook handles POST /sms/webhook from the SMS provider.
func (h *SMSHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	signed := false
	if h.webhookSecret != "" {
		if !payment.VerifySignature(h.webhookSecret, body, c.GetHeader("X-Webhook-Signature")) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		signed = true
	}
	var p smsWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil || p.ActivationID == "" || p.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "activationId and status are required"})
		return
	}
	a, err := h.activations.HandleWebhook(c.Request.Context(), p.ActivationID, p.Status, p.Code, signed)
	if err != nil {
		respondError(c, err, "failed to process webhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "activation_status": a.Status})
}

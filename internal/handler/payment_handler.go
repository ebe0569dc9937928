package handler

import (
	"errors"
	"net/http"

	"smsgateway/internal/middleware"
	"smsgateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type CreatePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	AffiliateCode string          `json:"affiliate_code"`
}

// Create handles POST /payments/create.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.payments.CreateCheckout(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.AffiliateCode)
	if err != nil {
		respondError(c, err, "failed to create payment")
		return
	}
	c.JSON(http.StatusCreated, out)
}

// Status handles GET /payments/:id/status. Pending deposits are re-checked upstream.
func (h *PaymentHandler) Status(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.payments.Verify(c.Request.Context(), middleware.GetUserID(c), id)
	if errors.Is(err, service.ErrAlreadyProcessed) {
		err = nil
	}
	if err != nil {
		respondError(c, err, "failed to check payment")
		return
	}
	c.JSON(http.StatusOK, t)
}

// Transactions handles GET /payments/transactions?type=DEPOSIT.
func (h *PaymentHandler) Transactions(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.payments.History(middleware.GetUserID(c), c.Query("type"), limit, (page-1)*limit)
	if err != nil {
		respondError(c, err, "failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

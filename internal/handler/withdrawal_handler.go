package handler

import (
	"net/http"
	"strconv"

	"smsgateway/internal/middleware"
	"smsgateway/internal/repository"
	"smsgateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AffiliateHandler struct {
	affiliates *service.AffiliateService
	audit      *repository.AuditLogRepository
}

func NewAffiliateHandler(affiliates *service.AffiliateService, audit *repository.AuditLogRepository) *AffiliateHandler {
	return &AffiliateHandler{affiliates: affiliates, audit: audit}
}

// Link handles GET /affiliate/link, creating the caller's code on first use.
func (h *AffiliateHandler) Link(c *gin.Context) {
	link, err := h.affiliates.GetOrCreateLink(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to load affiliate link")
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *AffiliateHandler) Stats(c *gin.Context) {
	stats, err := h.affiliates.Stats(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to load affiliate stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AffiliateHandler) GetCommission(c *gin.Context) {
	p, err := h.affiliates.GetCommission()
	if err != nil {
		respondError(c, err, "failed to load commission")
		return
	}
	c.JSON(http.StatusOK, gin.H{"percentage": p})
}

type CommissionRequest struct {
	Percentage decimal.Decimal `json:"percentage"`
}

func (h *AffiliateHandler) SetCommission(c *gin.Context) {
	var req CommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.affiliates.SetCommission(req.Percentage); err != nil {
		respondError(c, err, "failed to set commission")
		return
	}
	auditLog(h.audit, c, "commission_set", "affiliate_commission", "1", req)
	c.JSON(http.StatusOK, gin.H{"percentage": req.Percentage})
}

type WithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PixKey string          `json:"pix_key" binding:"required"`
}

// RequestWithdrawal handles POST /affiliate/withdrawal.
func (h *AffiliateHandler) RequestWithdrawal(c *gin.Context) {
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.affiliates.RequestWithdrawal(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.PixKey)
	if err != nil {
		respondError(c, err, "failed to request withdrawal")
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *AffiliateHandler) MyWithdrawals(c *gin.Context) {
	list, err := h.affiliates.MyWithdrawals(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to list withdrawals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// ListWithdrawals handles GET /affiliate/withdrawals?status=PENDING (admin).
func (h *AffiliateHandler) ListWithdrawals(c *gin.Context) {
	list, err := h.affiliates.ListWithdrawals(c.Query("status"))
	if err != nil {
		respondError(c, err, "failed to list withdrawals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

type UpdateWithdrawalRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateWithdrawal handles PATCH /affiliate/withdrawals/:id (admin).
func (h *AffiliateHandler) UpdateWithdrawal(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, err := h.affiliates.UpdateWithdrawal(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "failed to update withdrawal")
		return
	}
	auditLog(h.audit, c, "withdrawal_"+w.Status, "withdrawal", strconv.FormatUint(uint64(id), 10),
		gin.H{"amount": w.Amount, "user_id": w.UserID})
	c.JSON(http.StatusOK, w)
}

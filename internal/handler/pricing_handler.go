package handler

import (
	"net/http"
	"strings"

	"smsgateway/internal/repository"
	"smsgateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PricingHandler struct {
	pricing *service.PricingService
	audit   *repository.AuditLogRepository
}

func NewPricingHandler(pricing *service.PricingService, audit *repository.AuditLogRepository) *PricingHandler {
	return &PricingHandler{pricing: pricing, audit: audit}
}

// List handles GET /credits/prices.
func (h *PricingHandler) List(c *gin.Context) {
	prices, err := h.pricing.ListPrices()
	if err != nil {
		respondError(c, err, "failed to list prices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices})
}

// Filter handles GET /credits/prices/filter?services=wa,tg&country=73.
func (h *PricingHandler) Filter(c *gin.Context) {
	var services []string
	for _, s := range strings.Split(c.Query("services"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	page, limit := parsePagination(c)
	prices, total, err := h.pricing.FilterPrices(services, c.Query("country"), limit, (page-1)*limit)
	if err != nil {
		respondError(c, err, "failed to filter prices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices, "total": total, "page": page, "limit": limit})
}

type MarkupRequest struct {
	Percentage decimal.Decimal `json:"percentage"`
}

func (h *PricingHandler) GetMarkup(c *gin.Context) {
	p, err := h.pricing.GetMarkup()
	if err != nil {
		respondError(c, err, "failed to load markup")
		return
	}
	c.JSON(http.StatusOK, gin.H{"percentage": p})
}

// SetMarkup stores the markup without repricing.
func (h *PricingHandler) SetMarkup(c *gin.Context) {
	var req MarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.pricing.SetMarkup(req.Percentage); err != nil {
		respondError(c, err, "failed to set markup")
		return
	}
	auditLog(h.audit, c, "markup_set", "markup", "1", req)
	c.JSON(http.StatusOK, gin.H{"percentage": req.Percentage})
}

// UpdateMarkup stores the markup and rebuilds the price table.
func (h *PricingHandler) UpdateMarkup(c *gin.Context) {
	var req MarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.pricing.UpdateMarkup(c.Request.Context(), req.Percentage)
	if err != nil {
		respondError(c, err, "failed to update markup")
		return
	}
	auditLog(h.audit, c, "markup_update", "markup", "1", gin.H{"percentage": req.Percentage, "prices": n})
	c.JSON(http.StatusOK, gin.H{"percentage": req.Percentage, "prices_updated": n})
}

func (h *PricingHandler) Refresh(c *gin.Context) {
	n, err := h.pricing.RefreshPrices(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to refresh prices")
		return
	}
	auditLog(h.audit, c, "prices_refresh", "service_prices", "", gin.H{"prices": n})
	c.JSON(http.StatusOK, gin.H{"prices_updated": n})
}

type UpsertPriceRequest struct {
	Service  string          `json:"service" binding:"required"`
	Country  string          `json:"country" binding:"required"`
	PriceUsd decimal.Decimal `json:"price_usd"`
	PriceBrl decimal.Decimal `json:"price_brl"`
}

// Upsert handles PUT /credits/prices. The override lasts until the next refresh.
func (h *PricingHandler) Upsert(c *gin.Context) {
	var req UpsertPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.pricing.UpsertPrice(req.Service, req.Country, req.PriceUsd, req.PriceBrl)
	if err != nil {
		respondError(c, err, "failed to save price")
		return
	}
	auditLog(h.audit, c, "price_override", "service_prices", p.Service+"/"+p.Country, req)
	c.JSON(http.StatusOK, p)
}

package handler

import (
	"net/http"
	"strconv"

	"smsgateway/internal/domain"
	"smsgateway/internal/middleware"
	"smsgateway/internal/repository"
	"smsgateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AdminHandler struct {
	users   *service.UserService
	ledger  *service.LedgerService
	authSvc *service.AuthService
	audit   *repository.AuditLogRepository
}

func NewAdminHandler(
	users *service.UserService,
	ledger *service.LedgerService,
	authSvc *service.AuthService,
	audit *repository.AuditLogRepository,
) *AdminHandler {
	return &AdminHandler{
		users:   users,
		ledger:  ledger,
		authSvc: authSvc,
		audit:   audit,
	}
}

// AdminLogin handles POST /admin/login, rejecting non-admin accounts.
func (h *AdminHandler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, access, refresh, err := h.authSvc.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err, "login failed")
		return
	}
	if u.Role != domain.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          u,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.users.DashboardStats()
	if err != nil {
		respondError(c, err, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /admin/users?search=&role=&page=&limit=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, limit := parsePagination(c)
	users, total, err := h.users.ListUsers(c.Query("search"), c.Query("role"), page, limit)
	if err != nil {
		respondError(c, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users, "total": total, "page": page, "limit": limit})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	u, err := h.users.Me(id)
	if err != nil {
		respondError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, u)
}

// ListTransactions handles GET /admin/transactions?type=&status=.
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.users.ListTransactions(c.Query("type"), c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err, "failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

type BalanceRequest struct {
	UserID uint            `json:"userId" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// AddBalance handles POST /admin/users/balance/add.
func (h *AdminHandler) AddBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := req.UserID
	u, err := h.ledger.AddBalance(c.Request.Context(), id, req.Amount, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to add balance")
		return
	}
	auditLog(h.audit, c, "balance_add", "user", strconv.FormatUint(uint64(id), 10), req)
	c.JSON(http.StatusOK, u)
}

// SetBalance handles PUT /admin/users/balance with an absolute value.
func (h *AdminHandler) SetBalance(c *gin.Context) {
	var req BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := req.UserID
	u, err := h.ledger.SetBalance(c.Request.Context(), id, req.Amount, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to set balance")
		return
	}
	auditLog(h.audit, c, "balance_set", "user", strconv.FormatUint(uint64(id), 10), req)
	c.JSON(http.StatusOK, u)
}

// Reconcile handles GET /admin/users/:id/reconcile.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rec, err := h.ledger.Reconcile(id)
	if err != nil {
		respondError(c, err, "failed to reconcile ledger")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// AuditTrail handles GET /admin/audit?resource=user&resource_id=7.
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	resource := c.Query("resource")
	if resource == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource is required"})
		return
	}
	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"data": []interface{}{}})
		return
	}
	list, err := h.audit.ListByResource(resource, c.Query("resource_id"))
	if err != nil {
		respondError(c, err, "failed to load audit trail")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

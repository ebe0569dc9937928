package handler

import (
	"encoding/json"

	"smsgateway/internal/middleware"
	"smsgateway/internal/models"
	"smsgateway/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// auditLog records an admin mutation. Failures are logged, never returned.
func auditLog(repo *repository.AuditLogRepository, c *gin.Context, action, resource, resourceID string, meta interface{}) {
	if repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if id := middleware.GetUserID(c); id != 0 {
		entry.UserID = &id
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = string(b)
		}
	}
	if err := repo.Create(entry); err != nil {
		zap.L().Error("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

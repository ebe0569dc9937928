package handler

import (
	"net/http"

	"smsgateway/internal/middleware"
	"smsgateway/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	users *service.UserService
}

func NewMeHandler(users *service.UserService) *MeHandler {
	return &MeHandler{users: users}
}

// GetMe handles GET /users/me.
func (h *MeHandler) GetMe(c *gin.Context) {
	u, err := h.users.Me(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, u)
}

type UpdateMeRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	PixKey   *string `json:"pix_key"`
}

// UpdateMe handles PATCH /users/me. Only the fields present are changed.
func (h *MeHandler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.users.UpdateMe(middleware.GetUserID(c), service.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		PixKey:   req.PixKey,
	})
	if err != nil {
		respondError(c, err, "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, u)
}

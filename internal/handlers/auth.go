package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/k-lamby/taskTEST-sub000/internal/config"
	"github.com/k-lamby/taskTEST-sub000/internal/middleware"
	"github.com/k-lamby/taskTEST-sub000/internal/services"
	"github.com/k-lamby/taskTEST-sub000/internal/store"
	"github.com/k-lamby/taskTEST-sub000/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(st store.Client, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(st, &cfg.JWT),
	}
}

// Register creates a new account
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Created(c, user)
}

// Login authenticates a user and returns a token
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Unauthorized(c, err.Error())
			return
		}
		serviceError(c, err)
		return
	}

	response.Success(c, resp)
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, user)
}

// UpdatePushToken stores the device push token for the current user
// PUT /api/users/me/push-token
func (h *AuthHandler) UpdatePushToken(c *gin.Context) {
	var req struct {
		PushToken string `json:"pushToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	err := h.authService.UpdatePushToken(c.Request.Context(), middleware.GetUserID(c), req.PushToken)
	if err != nil {
		serviceError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "push token updated"})
}

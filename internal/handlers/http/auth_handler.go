package http

import (
	"net/http"
	"strings"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/internal/core/services"
	"livecart/pkg/errors"
	"livecart/pkg/validation"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService services.AuthService
	userRepo    ports.UserRepository
	tokenTTL    time.Duration
}

func NewAuthHandler(authService services.AuthService, userRepo ports.UserRepository, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userRepo:    userRepo,
		tokenTTL:    tokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/login", h.Login)
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
}

// Login issues a token for the given username, creating the account on first
// sight. There is no password yet; sellers run behind a trusted frontend.
// TODO: add credential storage before exposing this outside the demo stack.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	user, err := h.userRepo.GetByUsername(c.Request.Context(), req.Username)
	if err == domain.ErrUserNotFound {
		user = &domain.User{
			Username:  req.Username,
			CreatedAt: time.Now(),
		}
		if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
			c.Error(errors.NewInternalError("failed to create user"))
			return
		}
	} else if err != nil {
		c.Error(errors.NewInternalError("failed to look up user"))
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.ID,
		"username":     user.Username,
		"access_token": token,
		"expires_in":   int(h.tokenTTL / time.Second),
	})
}

package handlers

import (
	"errors"
	"net/http"

	"crm-messaging-server/internal/config"
	"crm-messaging-server/internal/models"
	"crm-messaging-server/internal/services"
	"crm-messaging-server/pkg/logger"
	"crm-messaging-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	config      *config.Config
	userService UserServiceInterface
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, userService UserServiceInterface) *AuthHandler {
	return &AuthHandler{config: cfg, userService: userService}
}

// Login authenticates a user and returns a JWT carrying the role's
// permission list.
func (h *AuthHandler) Login(c *gin.Context) {
	logger.Info("Auth login endpoint called")

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, err := h.userService.Authenticate(req.Username, req.Password, req.TOTPCode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountLocked):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is temporarily locked"})
		case errors.Is(err, services.ErrAccountInactive):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is inactive"})
		case errors.Is(err, services.ErrTOTPRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "TOTP code is required"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		}
		logger.Warn("Login failed", zap.String("username", req.Username), zap.Error(err))
		return
	}

	token, err := middleware.GenerateTokenWithPermissions(user.ID, models.PermissionsForRole(user.Role), h.config)
	if err != nil {
		logger.Error("Failed to generate token", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logger.Info("User logged in", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user.ToResponse(),
	})
}

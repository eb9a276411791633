package handler

import (
	"net/http"
	"time"

	"minimart/internal/logging"
	"minimart/internal/middleware"
	"minimart/internal/service"

	"github.com/gin-gonic/gin"
)

// TokenCookie holds the session token for SPA page navigations.
const TokenCookie = "token"

// AuthHandler handles authentication requests
type AuthHandler struct {
	service  service.AuthService
	tokenTTL time.Duration
	log      logging.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, tokenTTL time.Duration, log logging.Logger) *AuthHandler {
	return &AuthHandler{service: s, tokenTTL: tokenTTL, log: log}
}

type phoneRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req phoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.service.SendOTP(c.Request.Context(), req.PhoneNumber); err != nil {
		respondError(c, h.log, err, "Failed to send verification code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required,min=6"`
		PhoneNumber string `json:"phoneNumber" binding:"required"`
		Role        string `json:"role"`
		Name        string `json:"name"`
		OTP         string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.service.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
		Name:        req.Name,
		OTP:         req.OTP,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "Failed to login")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, token, int(h.tokenTTL.Seconds()), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"role":    user.Role,
		"user":    user,
	})
}

// Logout clears the session cookie. Bearer tokens stay valid until expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) SendPasswordResetOTP(c *gin.Context) {
	var req phoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.service.SendPasswordResetOTP(c.Request.Context(), req.PhoneNumber); err != nil {
		respondError(c, h.log, err, "Failed to send verification code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If an account uses this number, a verification code has been sent"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		PhoneNumber     string `json:"phoneNumber" binding:"required"`
		OTP             string `json:"otp" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
		Email           string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	err := h.service.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		PhoneNumber:     req.PhoneNumber,
		OTP:             req.OTP,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
		Email:           req.Email,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (h *AuthHandler) AcceptInvitation(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
		OTP             string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.service.AcceptInvitation(c.Request.Context(), service.AcceptInvitationInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		OTP:             req.OTP,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to accept invitation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation accepted", "user": user})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.CurrentUser(c.Request.Context(), middleware.AuthEmail(c))
	if err != nil {
		respondError(c, h.log, err, "Failed to load current user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterAuthRoutes registers auth routes. authMW guards /auth/me.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, authMW ...gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/send-otp", h.SendOTP)
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/reset-password/send-otp", h.SendPasswordResetOTP)
		authGroup.POST("/reset-password/verify", h.ResetPassword)
		authGroup.POST("/accept-invitation", h.AcceptInvitation)
		authGroup.Group("", authMW...).GET("/me", h.Me)
	}
}

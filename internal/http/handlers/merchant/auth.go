package merchant

import (
	"errors"
	"time"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest is the merchant login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the merchant signup payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Document string `json:"document"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates a merchant account.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	merchant, token, expiresAt, err := h.AuthService.MerchantLogin(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "invalid credentials", nil)
		case errors.Is(err, service.ErrMerchantInactive):
			respondError(c, response.CodeForbidden, "merchant suspended", nil)
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	requestLog(c).Infow("merchant_login", "merchant_id", merchant.ID)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"merchant":   merchant,
	})
}

// Register creates a merchant account.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	merchant, err := h.AuthService.RegisterMerchant(req.Email, req.Name, req.Document, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeBadRequest, "email already registered or invalid", nil)
		default:
			respondError(c, response.CodeInternal, "registration failed", err)
		}
		return
	}

	requestLog(c).Infow("merchant_registered", "merchant_id", merchant.ID)
	response.Success(c, merchant)
}

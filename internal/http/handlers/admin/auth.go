package admin

import (
	"errors"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest is the operator login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a back-office operator.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	operator, token, expiresAt, err := h.AuthService.OperatorLogin(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, response.CodeUnauthorized, "invalid credentials", nil)
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	requestLog(c).Infow("operator_login", "operator_id", operator.ID)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"operator":   operator,
	})
}

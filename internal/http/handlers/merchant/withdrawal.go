package merchant

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// WithdrawalRequest is the cash-out request payload. Amount is in
// major units ("200.00").
type WithdrawalRequest struct {
	Amount      models.Money `json:"amount" binding:"required"`
	BankDetails models.JSON  `json:"bank_details" binding:"required"`
}

// RequestWithdrawal creates a pending withdrawal and holds the funds.
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	withdrawal, err := h.WithdrawalService.Request(service.WithdrawalRequestInput{
		MerchantID:  merchantID,
		Amount:      req.Amount,
		BankDetails: req.BankDetails,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, response.CodeBadRequest, "invalid amount", nil)
		case errors.Is(err, service.ErrInsufficientBalance):
			respondError(c, response.CodeBadRequest, "insufficient balance", nil)
		case errors.Is(err, service.ErrMerchantInactive):
			respondError(c, response.CodeForbidden, "merchant suspended", nil)
		default:
			respondError(c, response.CodeInternal, "withdrawal request failed", err)
		}
		return
	}
	response.Success(c, withdrawal)
}

// GetWithdrawals pages through the merchant's withdrawals.
func (h *Handler) GetWithdrawals(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	withdrawals, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:       page,
		PageSize:   pageSize,
		MerchantID: merchantID,
		Status:     strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "withdrawal fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, withdrawals, pagination)
}

// GetWithdrawal fetches one of the merchant's withdrawals.
func (h *Handler) GetWithdrawal(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid withdrawal id", nil)
		return
	}

	withdrawal, err := h.WithdrawalService.Get(uint(id), merchantID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWithdrawalNotFound):
			respondError(c, response.CodeNotFound, "withdrawal not found", nil)
		default:
			respondError(c, response.CodeInternal, "withdrawal fetch failed", err)
		}
		return
	}
	response.Success(c, withdrawal)
}

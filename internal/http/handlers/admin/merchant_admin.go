package admin

import (
	"strconv"
	"strings"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/gin-gonic/gin"
)

// MerchantStatusRequest changes a merchant's status.
type MerchantStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GetMerchants pages through merchants.
func (h *Handler) GetMerchants(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	merchants, total, err := h.MerchantRepo.List(repository.MerchantListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("search")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "merchant fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, merchants, pagination)
}

// GetMerchant fetches one merchant with its balance.
func (h *Handler) GetMerchant(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid merchant id", nil)
		return
	}

	merchant, err := h.MerchantRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "merchant fetch failed", err)
		return
	}
	if merchant == nil {
		respondError(c, response.CodeNotFound, "merchant not found", nil)
		return
	}

	balance, err := h.LedgerService.BalanceOf(merchant.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "balance fetch failed", err)
		return
	}

	response.Success(c, gin.H{
		"merchant": merchant,
		"balance":  balance,
	})
}

// UpdateMerchantStatus suspends or reactivates a merchant. Suspension
// blocks new settlements and withdrawal requests; it never touches the
// ledger.
func (h *Handler) UpdateMerchantStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid merchant id", nil)
		return
	}
	var req MerchantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	status := strings.TrimSpace(req.Status)
	if status != constants.MerchantStatusActive && status != constants.MerchantStatusInactive {
		respondError(c, response.CodeBadRequest, "invalid status", nil)
		return
	}

	merchant, err := h.MerchantRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "merchant fetch failed", err)
		return
	}
	if merchant == nil {
		respondError(c, response.CodeNotFound, "merchant not found", nil)
		return
	}

	merchant.Status = status
	if err := h.MerchantRepo.Update(merchant); err != nil {
		respondError(c, response.CodeInternal, "merchant update failed", err)
		return
	}

	requestLog(c).Infow("merchant_status_updated", "merchant_id", merchant.ID, "status", status)
	response.Success(c, merchant)
}

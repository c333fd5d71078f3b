package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/repository"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// WithdrawalRejectRequest carries the operator's rejection reason.
type WithdrawalRejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// GetWithdrawals pages through withdrawals across merchants.
func (h *Handler) GetWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	merchantID, _ := strconv.ParseUint(c.Query("merchant_id"), 10, 64)
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	withdrawals, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:        page,
		PageSize:    pageSize,
		MerchantID:  uint(merchantID),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "withdrawal fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, withdrawals, pagination)
}

// GetWithdrawal fetches one withdrawal by ID.
func (h *Handler) GetWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid withdrawal id", nil)
		return
	}

	withdrawal, err := h.WithdrawalService.GetAdmin(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "withdrawal fetch failed", err)
		return
	}
	if withdrawal == nil {
		respondError(c, response.CodeNotFound, "withdrawal not found", nil)
		return
	}
	response.Success(c, withdrawal)
}

// ApproveWithdrawal marks a pending withdrawal as approved. Funds stay
// held until the operator records the bank transfer.
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid withdrawal id", nil)
		return
	}

	withdrawal, err := h.WithdrawalService.Approve(uint(id), operatorID)
	if err != nil {
		h.respondWithdrawalError(c, err)
		return
	}

	requestLog(c).Infow("withdrawal_approved", "withdrawal_id", withdrawal.ID, "operator_id", operatorID)
	response.Success(c, withdrawal)
}

// CompleteWithdrawal records that the bank transfer was executed.
func (h *Handler) CompleteWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid withdrawal id", nil)
		return
	}

	withdrawal, err := h.WithdrawalService.Complete(uint(id))
	if err != nil {
		h.respondWithdrawalError(c, err)
		return
	}

	requestLog(c).Infow("withdrawal_completed", "withdrawal_id", withdrawal.ID)
	response.Success(c, withdrawal)
}

// RejectWithdrawal rejects a pending withdrawal and releases the held
// funds back to the merchant.
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid withdrawal id", nil)
		return
	}
	var req WithdrawalRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	withdrawal, err := h.WithdrawalService.Reject(uint(id), strings.TrimSpace(req.Reason))
	if err != nil {
		h.respondWithdrawalError(c, err)
		return
	}

	requestLog(c).Infow("withdrawal_rejected", "withdrawal_id", withdrawal.ID)
	response.Success(c, withdrawal)
}

func (h *Handler) respondWithdrawalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWithdrawalNotFound):
		respondError(c, response.CodeNotFound, "withdrawal not found", nil)
	case errors.Is(err, service.ErrWithdrawalStateConflict):
		respondError(c, response.CodeConflict, "withdrawal state conflict", nil)
	default:
		respondError(c, response.CodeInternal, "withdrawal update failed", err)
	}
}

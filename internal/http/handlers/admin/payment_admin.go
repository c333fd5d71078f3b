package admin

import (
	"strconv"
	"strings"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetPayments pages through settled payments across merchants.
func (h *Handler) GetPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	merchantID, _ := strconv.ParseUint(c.Query("merchant_id"), 10, 64)
	confirmedFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("confirmed_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	confirmedTo, err := parseTimeNullable(strings.TrimSpace(c.Query("confirmed_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	payments, total, err := h.SettlementService.ListPayments(repository.PaymentListFilter{
		Page:          page,
		PageSize:      pageSize,
		MerchantID:    uint(merchantID),
		PaymentNo:     strings.TrimSpace(c.Query("payment_no")),
		BillingType:   strings.TrimSpace(c.Query("billing_type")),
		Status:        strings.TrimSpace(c.Query("status")),
		ConfirmedFrom: confirmedFrom,
		ConfirmedTo:   confirmedTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, payments, pagination)
}

// GetPayment fetches one payment by ID.
func (h *Handler) GetPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid payment id", nil)
		return
	}

	payment, err := h.PaymentRepo.GetByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}
	if payment == nil {
		respondError(c, response.CodeNotFound, "payment not found", nil)
		return
	}
	response.Success(c, payment)
}

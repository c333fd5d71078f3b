package merchant

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/repository"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// GetPayments pages through the merchant's settled payments.
func (h *Handler) GetPayments(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

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

	payments, total, err := h.SettlementService.ListPayments(repository.PaymentListFilter{
		Page:        page,
		PageSize:    pageSize,
		MerchantID:  merchantID,
		PaymentNo:   strings.TrimSpace(c.Query("payment_no")),
		BillingType: strings.TrimSpace(c.Query("billing_type")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "payment fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, payments, pagination)
}

// GetPayment fetches one payment by number, scoped to the merchant.
func (h *Handler) GetPayment(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	paymentNo := strings.TrimSpace(c.Param("payment_no"))
	if paymentNo == "" {
		respondError(c, response.CodeBadRequest, "payment number required", nil)
		return
	}

	payment, err := h.SettlementService.GetPayment(paymentNo)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		default:
			respondError(c, response.CodeInternal, "payment fetch failed", err)
		}
		return
	}
	if payment.MerchantID != merchantID {
		respondError(c, response.CodeNotFound, "payment not found", nil)
		return
	}
	response.Success(c, payment)
}

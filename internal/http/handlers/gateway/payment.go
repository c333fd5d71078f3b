package gateway

import (
	"errors"
	"time"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentConfirmedRequest is the gateway's confirmed-payment callback.
type PaymentConfirmedRequest struct {
	PaymentNo       string       `json:"payment_no" binding:"required"`
	MerchantID      uint         `json:"merchant_id" binding:"required"`
	GrossValue      models.Money `json:"gross_value" binding:"required"`
	BillingType     string       `json:"billing_type" binding:"required"`
	Installments    int          `json:"installments"`
	AffiliateLinkID *uint        `json:"affiliate_link_id"`
	ConfirmedAt     *time.Time   `json:"confirmed_at"`
}

// ConfirmPayment settles one confirmed payment. The endpoint is
// idempotent on payment_no, so the gateway may retry freely.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req PaymentConfirmedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	confirmedAt := time.Now()
	if req.ConfirmedAt != nil {
		confirmedAt = *req.ConfirmedAt
	}

	payment, err := h.SettlementService.Settle(service.SettlementInput{
		PaymentNo:       req.PaymentNo,
		MerchantID:      req.MerchantID,
		GrossValue:      req.GrossValue,
		BillingType:     req.BillingType,
		Installments:    req.Installments,
		AffiliateLinkID: req.AffiliateLinkID,
		ConfirmedAt:     confirmedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeBadRequest, "payment_no is required", nil)
		case errors.Is(err, service.ErrMerchantNotFound):
			respondError(c, response.CodeNotFound, "merchant not found", nil)
		case errors.Is(err, service.ErrMerchantInactive):
			respondError(c, response.CodeForbidden, "merchant suspended", nil)
		case errors.Is(err, service.ErrInvalidAmount),
			errors.Is(err, service.ErrUnsupportedBillingType),
			errors.Is(err, service.ErrAffiliateLinkInvalid),
			errors.Is(err, service.ErrAffiliateLinkNotFound):
			// Recorded as a rejected payment; not retryable.
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "settlement failed", err)
		}
		return
	}

	requestLog(c).Infow("payment_settled",
		"payment_no", payment.PaymentNo,
		"merchant_id", payment.MerchantID,
		"status", payment.Status,
	)
	response.Success(c, payment)
}

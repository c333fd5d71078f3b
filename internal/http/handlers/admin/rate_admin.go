package admin

import (
	"errors"
	"strconv"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// RateSetRequest is a new fee schedule version.
type RateSetRequest struct {
	PixRate       models.Percent `json:"pix_rate"`
	CardRate      models.Percent `json:"card_rate"`
	BoletoRate    models.Percent `json:"boleto_rate"`
	FixedFee      models.Money   `json:"fixed_fee"`
	WithdrawalFee models.Money   `json:"withdrawal_fee"`
}

// SetDefaultRates publishes a new platform-wide fee schedule.
func (h *Handler) SetDefaultRates(c *gin.Context) {
	h.setRates(c, nil)
}

// SetMerchantRates publishes a merchant override schedule.
func (h *Handler) SetMerchantRates(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid merchant id", nil)
		return
	}
	merchantID := uint(id)
	h.setRates(c, &merchantID)
}

func (h *Handler) setRates(c *gin.Context, merchantID *uint) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	var req RateSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	rateSet, err := h.RateService.SetRates(service.RateSetInput{
		MerchantID:    merchantID,
		PixRate:       req.PixRate,
		CardRate:      req.CardRate,
		BoletoRate:    req.BoletoRate,
		FixedFee:      req.FixedFee,
		WithdrawalFee: req.WithdrawalFee,
		CreatedByID:   &operatorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRate):
			respondError(c, response.CodeBadRequest, "rates must not be negative", nil)
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, response.CodeBadRequest, "fees must not be negative", nil)
		case errors.Is(err, service.ErrMerchantNotFound):
			respondError(c, response.CodeNotFound, "merchant not found", nil)
		default:
			respondError(c, response.CodeInternal, "rate update failed", err)
		}
		return
	}

	requestLog(c).Infow("rate_set_published",
		"rate_set_id", rateSet.ID,
		"operator_id", operatorID,
		"merchant_id", merchantID,
	)
	response.Success(c, rateSet)
}

// GetMerchantRates resolves the schedule in effect for a merchant.
func (h *Handler) GetMerchantRates(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid merchant id", nil)
		return
	}

	rateSet, err := h.RateService.Resolve(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "rate fetch failed", err)
		return
	}
	response.Success(c, rateSet)
}

// ClearMerchantRates drops a merchant override so the platform
// defaults apply again.
func (h *Handler) ClearMerchantRates(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid merchant id", nil)
		return
	}

	if err := h.RateService.ClearMerchantOverride(uint(id)); err != nil {
		switch {
		case errors.Is(err, service.ErrRateSetNotFound):
			respondError(c, response.CodeNotFound, "no active override for merchant", nil)
		case errors.Is(err, service.ErrMerchantNotFound):
			respondError(c, response.CodeNotFound, "merchant not found", nil)
		default:
			respondError(c, response.CodeInternal, "rate update failed", err)
		}
		return
	}

	requestLog(c).Infow("rate_override_cleared", "merchant_id", id)
	response.Success(c, nil)
}

// GetRateVersions pages through schedule versions.
func (h *Handler) GetRateVersions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.RateSetListFilter{
		Page:       page,
		PageSize:   pageSize,
		OnlyActive: c.Query("only_active") == "true",
	}
	if raw := c.Query("merchant_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid merchant id", nil)
			return
		}
		merchantID := uint(id)
		filter.MerchantID = &merchantID
	}

	versions, total, err := h.RateService.ListVersions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "rate fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, versions, pagination)
}

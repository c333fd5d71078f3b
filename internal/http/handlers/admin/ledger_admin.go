package admin

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

// AdjustmentRequest is a signed manual ledger correction.
type AdjustmentRequest struct {
	Delta  models.Money `json:"delta"`
	Remark string       `json:"remark"`
}

// CreateAdjustment appends a manual adjustment to a merchant's ledger.
// Positive delta credits the merchant, negative debits it.
func (h *Handler) CreateAdjustment(c *gin.Context) {
	operatorID, ok := getOperatorID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid merchant id", nil)
		return
	}
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	entry, err := h.LedgerService.AdminAdjust(service.LedgerAdjustInput{
		MerchantID: uint(id),
		Delta:      req.Delta,
		Remark:     req.Remark,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, response.CodeBadRequest, "delta must not be zero", nil)
		case errors.Is(err, service.ErrMerchantNotFound):
			respondError(c, response.CodeNotFound, "merchant not found", nil)
		default:
			respondError(c, response.CodeInternal, "adjustment failed", err)
		}
		return
	}

	requestLog(c).Infow("ledger_adjusted",
		"merchant_id", id,
		"entry_id", entry.ID,
		"delta", entry.Amount,
		"operator_id", operatorID,
	)
	response.Success(c, entry)
}

// GetLedger pages through ledger entries across merchants.
func (h *Handler) GetLedger(c *gin.Context) {
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

	entries, total, err := h.LedgerService.History(repository.LedgerListFilter{
		Page:        page,
		PageSize:    pageSize,
		MerchantID:  uint(merchantID),
		Kind:        strings.TrimSpace(c.Query("kind")),
		Reference:   strings.TrimSpace(c.Query("reference")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "ledger fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, entries, pagination)
}

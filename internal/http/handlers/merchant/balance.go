package merchant

import (
	"strconv"
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetBalance returns the derived balance view.
func (h *Handler) GetBalance(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	balance, err := h.LedgerService.BalanceOf(merchantID)
	if err != nil {
		respondError(c, response.CodeInternal, "balance fetch failed", err)
		return
	}
	response.Success(c, balance)
}

// GetLedgerHistory pages through the merchant's ledger entries.
func (h *Handler) GetLedgerHistory(c *gin.Context) {
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

	entries, total, err := h.LedgerService.History(repository.LedgerListFilter{
		Page:        page,
		PageSize:    pageSize,
		MerchantID:  merchantID,
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

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

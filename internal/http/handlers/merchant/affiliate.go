package merchant

import (
	"errors"
	"strconv"

	"github.com/nexpag/nexpag/internal/http/response"
	"github.com/nexpag/nexpag/internal/repository"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateRequest links the merchant to another merchant's product.
type AffiliateRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// CreateAffiliation links the authenticated merchant as an affiliate.
// The commission percentage is frozen at this moment.
func (h *Handler) CreateAffiliation(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	var req AffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	link, err := h.AffiliateService.Affiliate(service.AffiliateInput{
		ProductID:           req.ProductID,
		AffiliateMerchantID: merchantID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			respondError(c, response.CodeNotFound, "product not found", nil)
		case errors.Is(err, service.ErrProductInactive):
			respondError(c, response.CodeBadRequest, "product inactive", nil)
		case errors.Is(err, service.ErrSelfAffiliation):
			respondError(c, response.CodeBadRequest, "cannot affiliate with own product", nil)
		case errors.Is(err, service.ErrDuplicateAffiliation):
			respondError(c, response.CodeConflict, "already affiliated", nil)
		case errors.Is(err, service.ErrMerchantNotFound):
			respondError(c, response.CodeNotFound, "merchant not found", nil)
		default:
			respondError(c, response.CodeInternal, "affiliation failed", err)
		}
		return
	}
	response.Success(c, link)
}

// DeactivateAffiliation disables one of the merchant's links.
func (h *Handler) DeactivateAffiliation(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid link id", nil)
		return
	}

	link, err := h.AffiliateService.Deactivate(uint(id), merchantID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateLinkNotFound):
			respondError(c, response.CodeNotFound, "affiliate link not found", nil)
		default:
			respondError(c, response.CodeInternal, "affiliation update failed", err)
		}
		return
	}
	response.Success(c, link)
}

// GetAffiliations pages through the merchant's links.
func (h *Handler) GetAffiliations(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	productID, _ := strconv.ParseUint(c.Query("product_id"), 10, 64)

	links, total, err := h.AffiliateService.List(repository.AffiliateLinkListFilter{
		Page:                page,
		PageSize:            pageSize,
		ProductID:           uint(productID),
		AffiliateMerchantID: merchantID,
		OnlyActive:          c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "affiliation fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, links, pagination)
}

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

// ProductRequest creates or updates a product.
type ProductRequest struct {
	Name              string         `json:"name"`
	Price             models.Money   `json:"price"`
	FeeBearer         string         `json:"fee_bearer"`
	CommissionPercent models.Percent `json:"commission_percent"`
	Active            *bool          `json:"active"`
}

// CreateProduct adds a product.
func (h *Handler) CreateProduct(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	product, err := h.ProductService.Create(service.ProductInput{
		MerchantID:        merchantID,
		Name:              req.Name,
		Price:             req.Price,
		FeeBearer:         strings.TrimSpace(req.FeeBearer),
		CommissionPercent: req.CommissionPercent,
	})
	if err != nil {
		respondProductError(c, err)
		return
	}
	response.Success(c, product)
}

// UpdateProduct mutates a product owned by the merchant.
func (h *Handler) UpdateProduct(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	product, err := h.ProductService.Update(uint(id), service.ProductInput{
		MerchantID:        merchantID,
		Name:              req.Name,
		Price:             req.Price,
		FeeBearer:         strings.TrimSpace(req.FeeBearer),
		CommissionPercent: req.CommissionPercent,
		Active:            req.Active,
	})
	if err != nil {
		respondProductError(c, err)
		return
	}
	response.Success(c, product)
}

// GetProduct fetches a product owned by the merchant.
func (h *Handler) GetProduct(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid product id", nil)
		return
	}

	product, err := h.ProductService.Get(uint(id), merchantID)
	if err != nil {
		respondProductError(c, err)
		return
	}
	response.Success(c, product)
}

// GetProducts pages through the merchant's products.
func (h *Handler) GetProducts(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductService.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		MerchantID: merchantID,
		Search:     strings.TrimSpace(c.Query("search")),
		OnlyActive: c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "product fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, products, pagination)
}

func respondProductError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeNotFound, "product not found", nil)
	case errors.Is(err, service.ErrProductInactive):
		respondError(c, response.CodeBadRequest, "product inactive", nil)
	case errors.Is(err, service.ErrInvalidAmount):
		respondError(c, response.CodeBadRequest, "invalid price", nil)
	case errors.Is(err, service.ErrInvalidRate):
		respondError(c, response.CodeBadRequest, "invalid commission", nil)
	case errors.Is(err, service.ErrMerchantNotFound):
		respondError(c, response.CodeNotFound, "merchant not found", nil)
	default:
		respondError(c, response.CodeInternal, "product operation failed", err)
	}
}

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

// WebhookRegisterRequest registers an endpoint. Empty events means
// every event.
type WebhookRegisterRequest struct {
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events"`
}

// WebhookUpdateRequest mutates an endpoint.
type WebhookUpdateRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Status string   `json:"status"`
}

// RegisterWebhook creates an endpoint. The signing secret is returned
// once and never readable again.
func (h *Handler) RegisterWebhook(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	var req WebhookRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	webhook, secret, err := h.WebhookService.Register(service.WebhookRegisterInput{
		MerchantID: merchantID,
		URL:        req.URL,
		Events:     req.Events,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookInvalidURL):
			respondError(c, response.CodeBadRequest, "invalid webhook url", nil)
		default:
			respondError(c, response.CodeInternal, "webhook register failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"webhook": webhook,
		"secret":  secret,
	})
}

// UpdateWebhook mutates an endpoint.
func (h *Handler) UpdateWebhook(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid webhook id", nil)
		return
	}
	var req WebhookUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	webhook, err := h.WebhookService.Update(service.WebhookUpdateInput{
		MerchantID: merchantID,
		WebhookID:  uint(id),
		URL:        req.URL,
		Events:     req.Events,
		Status:     strings.TrimSpace(req.Status),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookNotFound):
			respondError(c, response.CodeNotFound, "webhook not found", nil)
		case errors.Is(err, service.ErrWebhookInvalidURL):
			respondError(c, response.CodeBadRequest, "invalid webhook url", nil)
		default:
			respondError(c, response.CodeInternal, "webhook update failed", err)
		}
		return
	}
	response.Success(c, webhook)
}

// DeleteWebhook removes an endpoint.
func (h *Handler) DeleteWebhook(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid webhook id", nil)
		return
	}

	if err := h.WebhookService.Delete(uint(id), merchantID); err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookNotFound):
			respondError(c, response.CodeNotFound, "webhook not found", nil)
		default:
			respondError(c, response.CodeInternal, "webhook delete failed", err)
		}
		return
	}
	response.Success(c, nil)
}

// GetWebhooks lists the merchant's endpoints.
func (h *Handler) GetWebhooks(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	webhooks, err := h.WebhookService.ListForMerchant(merchantID)
	if err != nil {
		respondError(c, response.CodeInternal, "webhook fetch failed", err)
		return
	}
	response.Success(c, webhooks)
}

// GetWebhookDeliveries pages through delivery attempts.
func (h *Handler) GetWebhookDeliveries(c *gin.Context) {
	merchantID, ok := getMerchantID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	webhookID, _ := strconv.ParseUint(c.Query("webhook_id"), 10, 64)

	deliveries, total, err := h.WebhookService.ListDeliveries(repository.WebhookDeliveryListFilter{
		Page:       page,
		PageSize:   pageSize,
		MerchantID: merchantID,
		WebhookID:  uint(webhookID),
		Event:      strings.TrimSpace(c.Query("event")),
		OnlyFailed: c.Query("only_failed") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "delivery fetch failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, deliveries, pagination)
}

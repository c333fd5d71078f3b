package repository

import (
	"errors"

	"github.com/nexpag/nexpag/internal/models"

	"gorm.io/gorm"
)

// WebhookRepository is the webhook data access interface.
type WebhookRepository interface {
	GetByID(id uint) (*models.Webhook, error)
	GetByIDAndMerchant(id, merchantID uint) (*models.Webhook, error)
	ListActiveByMerchant(merchantID uint) ([]models.Webhook, error)
	ListByMerchant(merchantID uint) ([]models.Webhook, error)
	Create(webhook *models.Webhook) error
	Update(webhook *models.Webhook) error
	Delete(webhook *models.Webhook) error
	CreateDelivery(delivery *models.WebhookDelivery) error
	ListDeliveries(filter WebhookDeliveryListFilter) ([]models.WebhookDelivery, int64, error)
	WithTx(tx *gorm.DB) *GormWebhookRepository
}

// GormWebhookRepository is the GORM webhook repository.
type GormWebhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates the webhook repository.
func NewWebhookRepository(db *gorm.DB) *GormWebhookRepository {
	return &GormWebhookRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormWebhookRepository) WithTx(tx *gorm.DB) *GormWebhookRepository {
	if tx == nil {
		return r
	}
	return &GormWebhookRepository{db: tx}
}

// GetByID fetches a webhook by ID.
func (r *GormWebhookRepository) GetByID(id uint) (*models.Webhook, error) {
	if id == 0 {
		return nil, nil
	}
	var webhook models.Webhook
	if err := r.db.First(&webhook, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &webhook, nil
}

// GetByIDAndMerchant fetches a webhook scoped to a merchant.
func (r *GormWebhookRepository) GetByIDAndMerchant(id, merchantID uint) (*models.Webhook, error) {
	if id == 0 || merchantID == 0 {
		return nil, nil
	}
	var webhook models.Webhook
	if err := r.db.Where("id = ? AND merchant_id = ?", id, merchantID).First(&webhook).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &webhook, nil
}

// ListActiveByMerchant returns the merchant's active endpoints.
func (r *GormWebhookRepository) ListActiveByMerchant(merchantID uint) ([]models.Webhook, error) {
	if merchantID == 0 {
		return []models.Webhook{}, nil
	}
	var webhooks []models.Webhook
	if err := r.db.Where("merchant_id = ? AND status = ?", merchantID, "active").
		Find(&webhooks).Error; err != nil {
		return nil, err
	}
	return webhooks, nil
}

// ListByMerchant returns all of the merchant's endpoints.
func (r *GormWebhookRepository) ListByMerchant(merchantID uint) ([]models.Webhook, error) {
	if merchantID == 0 {
		return []models.Webhook{}, nil
	}
	var webhooks []models.Webhook
	if err := r.db.Where("merchant_id = ?", merchantID).
		Order("id desc").
		Find(&webhooks).Error; err != nil {
		return nil, err
	}
	return webhooks, nil
}

// Create inserts a webhook.
func (r *GormWebhookRepository) Create(webhook *models.Webhook) error {
	return r.db.Create(webhook).Error
}

// Update saves a webhook.
func (r *GormWebhookRepository) Update(webhook *models.Webhook) error {
	return r.db.Save(webhook).Error
}

// Delete soft-deletes a webhook.
func (r *GormWebhookRepository) Delete(webhook *models.Webhook) error {
	if webhook == nil || webhook.ID == 0 {
		return nil
	}
	return r.db.Delete(webhook).Error
}

// CreateDelivery records a delivery attempt.
func (r *GormWebhookRepository) CreateDelivery(delivery *models.WebhookDelivery) error {
	return r.db.Create(delivery).Error
}

// ListDeliveries pages through delivery attempts.
func (r *GormWebhookRepository) ListDeliveries(filter WebhookDeliveryListFilter) ([]models.WebhookDelivery, int64, error) {
	query := r.db.Model(&models.WebhookDelivery{})
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.WebhookID != 0 {
		query = query.Where("webhook_id = ?", filter.WebhookID)
	}
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if filter.OnlyFailed {
		query = query.Where("success = ?", false)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var deliveries []models.WebhookDelivery
	if err := query.Order("id desc").Find(&deliveries).Error; err != nil {
		return nil, 0, err
	}
	return deliveries, total, nil
}

package repository

import (
	"errors"
	"strings"

	"github.com/nexpag/nexpag/internal/models"

	"gorm.io/gorm"
)

// AffiliateRepository is the affiliate link data access interface.
type AffiliateRepository interface {
	GetByID(id uint) (*models.AffiliateLink, error)
	GetByCode(code string) (*models.AffiliateLink, error)
	GetByProductAndAffiliate(productID, affiliateMerchantID uint) (*models.AffiliateLink, error)
	Create(link *models.AffiliateLink) error
	Update(link *models.AffiliateLink) error
	List(filter AffiliateLinkListFilter) ([]models.AffiliateLink, int64, error)
	WithTx(tx *gorm.DB) *GormAffiliateRepository
}

// GormAffiliateRepository is the GORM affiliate repository.
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository creates the affiliate repository.
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) *GormAffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// GetByID fetches an affiliate link by ID.
func (r *GormAffiliateRepository) GetByID(id uint) (*models.AffiliateLink, error) {
	if id == 0 {
		return nil, nil
	}
	var link models.AffiliateLink
	if err := r.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetByCode fetches an affiliate link by its referral code.
func (r *GormAffiliateRepository) GetByCode(code string) (*models.AffiliateLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var link models.AffiliateLink
	if err := r.db.Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetByProductAndAffiliate fetches the link binding a product and an
// affiliate merchant.
func (r *GormAffiliateRepository) GetByProductAndAffiliate(productID, affiliateMerchantID uint) (*models.AffiliateLink, error) {
	if productID == 0 || affiliateMerchantID == 0 {
		return nil, nil
	}
	var link models.AffiliateLink
	if err := r.db.Where("product_id = ? AND affiliate_merchant_id = ?", productID, affiliateMerchantID).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// Create inserts an affiliate link.
func (r *GormAffiliateRepository) Create(link *models.AffiliateLink) error {
	return r.db.Create(link).Error
}

// Update saves an affiliate link.
func (r *GormAffiliateRepository) Update(link *models.AffiliateLink) error {
	return r.db.Save(link).Error
}

// List pages through affiliate links.
func (r *GormAffiliateRepository) List(filter AffiliateLinkListFilter) ([]models.AffiliateLink, int64, error) {
	query := r.db.Model(&models.AffiliateLink{})
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.AffiliateMerchantID != 0 {
		query = query.Where("affiliate_merchant_id = ?", filter.AffiliateMerchantID)
	}
	if filter.OnlyActive {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var links []models.AffiliateLink
	if err := query.Order("id desc").Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

package repository

import (
	"errors"
	"strings"

	"github.com/nexpag/nexpag/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MerchantRepository is the merchant data access interface.
type MerchantRepository interface {
	GetByID(id uint) (*models.Merchant, error)
	GetByIDForUpdate(id uint) (*models.Merchant, error)
	GetByEmail(email string) (*models.Merchant, error)
	Create(merchant *models.Merchant) error
	Update(merchant *models.Merchant) error
	List(filter MerchantListFilter) ([]models.Merchant, int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormMerchantRepository
}

// GormMerchantRepository is the GORM merchant repository.
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates the merchant repository.
func NewMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormMerchantRepository) WithTx(tx *gorm.DB) *GormMerchantRepository {
	if tx == nil {
		return r
	}
	return &GormMerchantRepository{db: tx}
}

// Transaction runs fn inside a database transaction.
func (r *GormMerchantRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID fetches a merchant by ID.
func (r *GormMerchantRepository) GetByID(id uint) (*models.Merchant, error) {
	if id == 0 {
		return nil, nil
	}
	var merchant models.Merchant
	if err := r.db.First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

// GetByIDForUpdate fetches a merchant by ID with a row lock. The
// merchant row serializes concurrent balance mutations.
func (r *GormMerchantRepository) GetByIDForUpdate(id uint) (*models.Merchant, error) {
	if id == 0 {
		return nil, nil
	}
	var merchant models.Merchant
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

// GetByEmail fetches a merchant by email.
func (r *GormMerchantRepository) GetByEmail(email string) (*models.Merchant, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil
	}
	var merchant models.Merchant
	if err := r.db.Where("email = ?", email).First(&merchant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

// Create inserts a merchant.
func (r *GormMerchantRepository) Create(merchant *models.Merchant) error {
	return r.db.Create(merchant).Error
}

// Update saves a merchant.
func (r *GormMerchantRepository) Update(merchant *models.Merchant) error {
	return r.db.Save(merchant).Error
}

// List pages through merchants.
func (r *GormMerchantRepository) List(filter MerchantListFilter) ([]models.Merchant, int64, error) {
	query := r.db.Model(&models.Merchant{})
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("(email LIKE ? OR name LIKE ? OR document LIKE ?)", like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var merchants []models.Merchant
	if err := query.Order("id desc").Find(&merchants).Error; err != nil {
		return nil, 0, err
	}
	return merchants, total, nil
}

package repository

import (
	"errors"

	"github.com/nexpag/nexpag/internal/models"

	"gorm.io/gorm"
)

// RateSetRepository is the fee schedule data access interface.
type RateSetRepository interface {
	GetByID(id uint) (*models.RateSet, error)
	GetActiveByMerchantID(merchantID uint) (*models.RateSet, error)
	GetActiveDefaults() (*models.RateSet, error)
	Create(rateSet *models.RateSet) error
	DeactivateForMerchant(merchantID *uint) error
	List(filter RateSetListFilter) ([]models.RateSet, int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormRateSetRepository
}

// GormRateSetRepository is the GORM rate set repository.
type GormRateSetRepository struct {
	db *gorm.DB
}

// NewRateSetRepository creates the rate set repository.
func NewRateSetRepository(db *gorm.DB) *GormRateSetRepository {
	return &GormRateSetRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormRateSetRepository) WithTx(tx *gorm.DB) *GormRateSetRepository {
	if tx == nil {
		return r
	}
	return &GormRateSetRepository{db: tx}
}

// Transaction runs fn inside a database transaction.
func (r *GormRateSetRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID fetches a rate set by ID.
func (r *GormRateSetRepository) GetByID(id uint) (*models.RateSet, error) {
	if id == 0 {
		return nil, nil
	}
	var rateSet models.RateSet
	if err := r.db.First(&rateSet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rateSet, nil
}

// GetActiveByMerchantID fetches the active override for a merchant.
func (r *GormRateSetRepository) GetActiveByMerchantID(merchantID uint) (*models.RateSet, error) {
	if merchantID == 0 {
		return nil, nil
	}
	var rateSet models.RateSet
	if err := r.db.Where("merchant_id = ? AND active = ?", merchantID, true).
		Order("id desc").
		First(&rateSet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rateSet, nil
}

// GetActiveDefaults fetches the active platform default schedule.
func (r *GormRateSetRepository) GetActiveDefaults() (*models.RateSet, error) {
	var rateSet models.RateSet
	if err := r.db.Where("merchant_id IS NULL AND active = ?", true).
		Order("id desc").
		First(&rateSet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rateSet, nil
}

// Create inserts a rate set version.
func (r *GormRateSetRepository) Create(rateSet *models.RateSet) error {
	return r.db.Create(rateSet).Error
}

// DeactivateForMerchant retires the active schedule for a merchant, or
// the platform defaults when merchantID is nil.
func (r *GormRateSetRepository) DeactivateForMerchant(merchantID *uint) error {
	query := r.db.Model(&models.RateSet{}).Where("active = ?", true)
	if merchantID == nil {
		query = query.Where("merchant_id IS NULL")
	} else {
		query = query.Where("merchant_id = ?", *merchantID)
	}
	return query.Update("active", false).Error
}

// List pages through rate set versions.
func (r *GormRateSetRepository) List(filter RateSetListFilter) ([]models.RateSet, int64, error) {
	query := r.db.Model(&models.RateSet{})
	if filter.MerchantID != nil {
		if *filter.MerchantID == 0 {
			query = query.Where("merchant_id IS NULL")
		} else {
			query = query.Where("merchant_id = ?", *filter.MerchantID)
		}
	}
	if filter.OnlyActive {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rateSets []models.RateSet
	if err := query.Order("id desc").Find(&rateSets).Error; err != nil {
		return nil, 0, err
	}
	return rateSets, total, nil
}

package repository

import (
	"errors"
	"strings"

	"github.com/nexpag/nexpag/internal/models"

	"gorm.io/gorm"
)

// OperatorRepository is the back-office account data access interface.
type OperatorRepository interface {
	GetByID(id uint) (*models.Operator, error)
	GetByUsername(username string) (*models.Operator, error)
	Create(operator *models.Operator) error
	Update(operator *models.Operator) error
	List(filter OperatorListFilter) ([]models.Operator, int64, error)
	WithTx(tx *gorm.DB) *GormOperatorRepository
}

// GormOperatorRepository is the GORM operator repository.
type GormOperatorRepository struct {
	db *gorm.DB
}

// NewOperatorRepository creates the operator repository.
func NewOperatorRepository(db *gorm.DB) *GormOperatorRepository {
	return &GormOperatorRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormOperatorRepository) WithTx(tx *gorm.DB) *GormOperatorRepository {
	if tx == nil {
		return r
	}
	return &GormOperatorRepository{db: tx}
}

// GetByID fetches an operator by ID.
func (r *GormOperatorRepository) GetByID(id uint) (*models.Operator, error) {
	if id == 0 {
		return nil, nil
	}
	var operator models.Operator
	if err := r.db.First(&operator, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// GetByUsername fetches an operator by username.
func (r *GormOperatorRepository) GetByUsername(username string) (*models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var operator models.Operator
	if err := r.db.Where("username = ?", username).First(&operator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

// Create inserts an operator.
func (r *GormOperatorRepository) Create(operator *models.Operator) error {
	return r.db.Create(operator).Error
}

// Update saves an operator.
func (r *GormOperatorRepository) Update(operator *models.Operator) error {
	return r.db.Save(operator).Error
}

// List pages through operators.
func (r *GormOperatorRepository) List(filter OperatorListFilter) ([]models.Operator, int64, error) {
	query := r.db.Model(&models.Operator{})
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		query = query.Where("username LIKE ?", "%"+keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var operators []models.Operator
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("id ASC").
		Find(&operators).Error; err != nil {
		return nil, 0, err
	}
	return operators, total, nil
}

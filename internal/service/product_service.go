package service

import (
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"
)

// ProductService manages the sellable items merchants expose through
// checkout links. Only the settlement-relevant attributes live here.
type ProductService struct {
	productRepo  repository.ProductRepository
	merchantRepo repository.MerchantRepository
}

// ProductInput creates or updates a product.
type ProductInput struct {
	MerchantID        uint
	Name              string
	Price             models.Money
	FeeBearer         string
	CommissionPercent models.Percent
	Active            *bool
}

// NewProductService creates the product service.
func NewProductService(
	productRepo repository.ProductRepository,
	merchantRepo repository.MerchantRepository,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		merchantRepo: merchantRepo,
	}
}

// Create adds a product for a merchant.
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProductNotFound
	}
	if !input.Price.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if input.CommissionPercent.IsNegative() {
		return nil, ErrInvalidRate
	}
	feeBearer := input.FeeBearer
	if feeBearer != constants.FeeBearerBuyer {
		feeBearer = constants.FeeBearerSeller
	}

	merchant, err := s.merchantRepo.GetByID(input.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}

	now := time.Now()
	product := &models.Product{
		MerchantID:        input.MerchantID,
		Name:              name,
		Price:             input.Price,
		FeeBearer:         feeBearer,
		CommissionPercent: input.CommissionPercent,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update mutates a product owned by the merchant. Changing the
// commission percentage never touches existing affiliate links; they
// keep the percentage captured at affiliation time.
func (s *ProductService) Update(productID uint, input ProductInput) (*models.Product, error) {
	product, err := s.productRepo.GetByIDAndMerchant(productID, input.MerchantID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		product.Name = name
	}
	if input.Price.IsPositive() {
		product.Price = input.Price
	}
	if input.FeeBearer == constants.FeeBearerBuyer || input.FeeBearer == constants.FeeBearerSeller {
		product.FeeBearer = input.FeeBearer
	}
	if !input.CommissionPercent.IsNegative() && !input.CommissionPercent.IsZero() {
		product.CommissionPercent = input.CommissionPercent
	}
	if input.Active != nil {
		product.Active = *input.Active
	}
	product.UpdatedAt = time.Now()
	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Get fetches a product owned by the merchant.
func (s *ProductService) Get(productID, merchantID uint) (*models.Product, error) {
	product, err := s.productRepo.GetByIDAndMerchant(productID, merchantID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// List pages through products.
func (s *ProductService) List(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.productRepo.List(filter)
}

package service

import (
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/google/uuid"
)

// AffiliateService manages affiliate links. The commission
// percentage is captured from the product at affiliation time and
// never re-read, so settlements over old sales replay exactly.
type AffiliateService struct {
	affiliateRepo repository.AffiliateRepository
	productRepo   repository.ProductRepository
	merchantRepo  repository.MerchantRepository
}

// AffiliateInput creates a link.
type AffiliateInput struct {
	ProductID           uint
	AffiliateMerchantID uint
}

// NewAffiliateService creates the affiliate service.
func NewAffiliateService(
	affiliateRepo repository.AffiliateRepository,
	productRepo repository.ProductRepository,
	merchantRepo repository.MerchantRepository,
) *AffiliateService {
	return &AffiliateService{
		affiliateRepo: affiliateRepo,
		productRepo:   productRepo,
		merchantRepo:  merchantRepo,
	}
}

// Affiliate creates a link between a merchant and another merchant's
// product.
func (s *AffiliateService) Affiliate(input AffiliateInput) (*models.AffiliateLink, error) {
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.Active {
		return nil, ErrProductInactive
	}
	if product.MerchantID == input.AffiliateMerchantID {
		return nil, ErrSelfAffiliation
	}

	affiliate, err := s.merchantRepo.GetByID(input.AffiliateMerchantID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrMerchantNotFound
	}

	existing, err := s.affiliateRepo.GetByProductAndAffiliate(input.ProductID, input.AffiliateMerchantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateAffiliation
	}

	now := time.Now()
	link := &models.AffiliateLink{
		Code:                newAffiliateCode(),
		ProductID:           input.ProductID,
		AffiliateMerchantID: input.AffiliateMerchantID,
		CommissionPercent:   product.CommissionPercent,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.affiliateRepo.Create(link); err != nil {
		return nil, err
	}
	return link, nil
}

// Deactivate disables a link owned by the affiliate merchant.
func (s *AffiliateService) Deactivate(linkID, affiliateMerchantID uint) (*models.AffiliateLink, error) {
	link, err := s.affiliateRepo.GetByID(linkID)
	if err != nil {
		return nil, err
	}
	if link == nil || link.AffiliateMerchantID != affiliateMerchantID {
		return nil, ErrAffiliateLinkNotFound
	}
	if !link.Active {
		return link, nil
	}
	link.Active = false
	link.UpdatedAt = time.Now()
	if err := s.affiliateRepo.Update(link); err != nil {
		return nil, err
	}
	return link, nil
}

// GetByCode resolves a link by referral code.
func (s *AffiliateService) GetByCode(code string) (*models.AffiliateLink, error) {
	link, err := s.affiliateRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrAffiliateLinkNotFound
	}
	return link, nil
}

// List pages through links.
func (s *AffiliateService) List(filter repository.AffiliateLinkListFilter) ([]models.AffiliateLink, int64, error) {
	return s.affiliateRepo.List(filter)
}

func newAffiliateCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

package service

import (
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateService resolves the fee schedule that applies to a merchant
// and manages schedule versions. Resolution order: active merchant
// override, then the active platform default row, then the configured
// fallback so settlement never runs without a schedule.
type RateService struct {
	rateRepo     repository.RateSetRepository
	merchantRepo repository.MerchantRepository
	fallback     config.SettlementConfig
}

// RateSetInput is a new fee schedule version.
type RateSetInput struct {
	MerchantID    *uint // nil targets the platform defaults
	PixRate       models.Percent
	CardRate      models.Percent
	BoletoRate    models.Percent
	FixedFee      models.Money
	WithdrawalFee models.Money
	CreatedByID   *uint
}

// NewRateService creates the rate service.
func NewRateService(
	rateRepo repository.RateSetRepository,
	merchantRepo repository.MerchantRepository,
	fallback config.SettlementConfig,
) *RateService {
	return &RateService{
		rateRepo:     rateRepo,
		merchantRepo: merchantRepo,
		fallback:     fallback,
	}
}

// Resolve returns the fee schedule in effect for a merchant.
func (s *RateService) Resolve(merchantID uint) (*models.RateSet, error) {
	if merchantID != 0 {
		override, err := s.rateRepo.GetActiveByMerchantID(merchantID)
		if err != nil {
			return nil, err
		}
		if override != nil {
			return override, nil
		}
	}
	defaults, err := s.rateRepo.GetActiveDefaults()
	if err != nil {
		return nil, err
	}
	if defaults != nil {
		return defaults, nil
	}
	return s.configFallback(), nil
}

// SetRates replaces the active schedule with a new version. The old
// row is deactivated, never edited, so historical settlements keep
// their audit trail.
func (s *RateService) SetRates(input RateSetInput) (*models.RateSet, error) {
	if input.PixRate.IsNegative() || input.CardRate.IsNegative() || input.BoletoRate.IsNegative() {
		return nil, ErrInvalidRate
	}
	if input.FixedFee.IsNegative() || input.WithdrawalFee.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if input.MerchantID != nil {
		merchant, err := s.merchantRepo.GetByID(*input.MerchantID)
		if err != nil {
			return nil, err
		}
		if merchant == nil {
			return nil, ErrMerchantNotFound
		}
	}

	rateSet := &models.RateSet{
		MerchantID:    input.MerchantID,
		PixRate:       input.PixRate,
		CardRate:      input.CardRate,
		BoletoRate:    input.BoletoRate,
		FixedFee:      input.FixedFee,
		WithdrawalFee: input.WithdrawalFee,
		Active:        true,
		CreatedByID:   input.CreatedByID,
		CreatedAt:     time.Now(),
	}
	if err := s.rateRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.rateRepo.WithTx(tx)
		if err := repo.DeactivateForMerchant(input.MerchantID); err != nil {
			return err
		}
		return repo.Create(rateSet)
	}); err != nil {
		return nil, err
	}
	return rateSet, nil
}

// ClearMerchantOverride deactivates a merchant's override so the
// platform defaults apply again.
func (s *RateService) ClearMerchantOverride(merchantID uint) error {
	if merchantID == 0 {
		return ErrMerchantNotFound
	}
	override, err := s.rateRepo.GetActiveByMerchantID(merchantID)
	if err != nil {
		return err
	}
	if override == nil {
		return ErrRateSetNotFound
	}
	return s.rateRepo.DeactivateForMerchant(&merchantID)
}

// ListVersions pages through schedule versions.
func (s *RateService) ListVersions(filter repository.RateSetListFilter) ([]models.RateSet, int64, error) {
	return s.rateRepo.List(filter)
}

func (s *RateService) configFallback() *models.RateSet {
	return &models.RateSet{
		PixRate:       models.NewPercentFromDecimal(parseRate(s.fallback.DefaultPixRate)),
		CardRate:      models.NewPercentFromDecimal(parseRate(s.fallback.DefaultCardRate)),
		BoletoRate:    models.NewPercentFromDecimal(parseRate(s.fallback.DefaultBoletoRate)),
		FixedFee:      models.NewMoneyFromCents(s.fallback.DefaultFixedFeeCents),
		WithdrawalFee: models.NewMoneyFromCents(s.fallback.WithdrawalFeeCents),
		Active:        true,
	}
}

func parseRate(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

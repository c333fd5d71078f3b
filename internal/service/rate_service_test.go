package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRateTest(t *testing.T) (*gorm.DB, *RateService) {
	t.Helper()
	dsn := fmt.Sprintf("file:rate_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Merchant{}, &models.RateSet{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	rateRepo := repository.NewRateSetRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	return db, NewRateService(rateRepo, merchantRepo, testSettlementConfig())
}

func TestRateResolveOrder(t *testing.T) {
	db, svc := setupRateTest(t)
	merchant := createTestMerchant(t, db, "rates@example.com")

	// Nothing published yet, the config fallback applies.
	resolved, err := svc.Resolve(merchant.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.PixRate.String() != "5.99" {
		t.Fatalf("expected fallback pix rate 5.99, got %s", resolved.PixRate.String())
	}
	if resolved.FixedFee.Cents() != 250 {
		t.Fatalf("expected fallback fixed fee 250, got %d", resolved.FixedFee.Cents())
	}

	// Platform defaults take over once published.
	defaults, err := svc.SetRates(RateSetInput{
		PixRate:       models.NewPercentFromFloat(4.5),
		CardRate:      models.NewPercentFromFloat(6.5),
		BoletoRate:    models.NewPercentFromFloat(3),
		FixedFee:      models.NewMoneyFromCents(200),
		WithdrawalFee: models.NewMoneyFromCents(300),
	})
	if err != nil {
		t.Fatalf("set default rates failed: %v", err)
	}
	resolved, err = svc.Resolve(merchant.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ID != defaults.ID {
		t.Fatalf("expected platform defaults %d, got %d", defaults.ID, resolved.ID)
	}

	// A merchant override beats the defaults.
	override, err := svc.SetRates(RateSetInput{
		MerchantID:    &merchant.ID,
		PixRate:       models.NewPercentFromFloat(3.99),
		CardRate:      models.NewPercentFromFloat(5.99),
		BoletoRate:    models.NewPercentFromFloat(2.49),
		FixedFee:      models.NewMoneyFromCents(150),
		WithdrawalFee: models.NewMoneyFromCents(250),
	})
	if err != nil {
		t.Fatalf("set override failed: %v", err)
	}
	resolved, err = svc.Resolve(merchant.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ID != override.ID {
		t.Fatalf("expected override %d, got %d", override.ID, resolved.ID)
	}

	// Clearing the override falls back to the defaults.
	if err := svc.ClearMerchantOverride(merchant.ID); err != nil {
		t.Fatalf("clear override failed: %v", err)
	}
	resolved, err = svc.Resolve(merchant.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ID != defaults.ID {
		t.Fatalf("expected platform defaults %d after clear, got %d", defaults.ID, resolved.ID)
	}
}

func TestSetRatesDeactivatesPreviousVersion(t *testing.T) {
	_, svc := setupRateTest(t)

	first, err := svc.SetRates(RateSetInput{
		PixRate:       models.NewPercentFromFloat(5),
		CardRate:      models.NewPercentFromFloat(7),
		BoletoRate:    models.NewPercentFromFloat(3),
		FixedFee:      models.NewMoneyFromCents(250),
		WithdrawalFee: models.NewMoneyFromCents(350),
	})
	if err != nil {
		t.Fatalf("first version failed: %v", err)
	}
	second, err := svc.SetRates(RateSetInput{
		PixRate:       models.NewPercentFromFloat(4),
		CardRate:      models.NewPercentFromFloat(6),
		BoletoRate:    models.NewPercentFromFloat(2),
		FixedFee:      models.NewMoneyFromCents(200),
		WithdrawalFee: models.NewMoneyFromCents(300),
	})
	if err != nil {
		t.Fatalf("second version failed: %v", err)
	}

	active, total, err := svc.ListVersions(repository.RateSetListFilter{Page: 1, PageSize: 10, OnlyActive: true})
	if err != nil {
		t.Fatalf("list versions failed: %v", err)
	}
	if total != 1 || len(active) != 1 {
		t.Fatalf("expected one active version, got %d", total)
	}
	if active[0].ID != second.ID {
		t.Fatalf("expected version %d active, got %d", second.ID, active[0].ID)
	}

	all, total, err := svc.ListVersions(repository.RateSetListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list versions failed: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("expected two versions, got %d", total)
	}
	_ = first
}

func TestSetRatesValidation(t *testing.T) {
	db, svc := setupRateTest(t)

	_, err := svc.SetRates(RateSetInput{
		PixRate:       models.NewPercentFromFloat(-1),
		CardRate:      models.NewPercentFromFloat(7),
		BoletoRate:    models.NewPercentFromFloat(3),
		FixedFee:      models.NewMoneyFromCents(250),
		WithdrawalFee: models.NewMoneyFromCents(350),
	})
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}

	_, err = svc.SetRates(RateSetInput{
		PixRate:       models.NewPercentFromFloat(5),
		CardRate:      models.NewPercentFromFloat(7),
		BoletoRate:    models.NewPercentFromFloat(3),
		FixedFee:      models.NewMoneyFromCents(-1),
		WithdrawalFee: models.NewMoneyFromCents(350),
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	missing := uint(999)
	_, err = svc.SetRates(RateSetInput{
		MerchantID:    &missing,
		PixRate:       models.NewPercentFromFloat(5),
		CardRate:      models.NewPercentFromFloat(7),
		BoletoRate:    models.NewPercentFromFloat(3),
		FixedFee:      models.NewMoneyFromCents(250),
		WithdrawalFee: models.NewMoneyFromCents(350),
	})
	if !errors.Is(err, ErrMerchantNotFound) {
		t.Fatalf("expected ErrMerchantNotFound, got %v", err)
	}

	merchant := createTestMerchant(t, db, "no-override@example.com")
	if err := svc.ClearMerchantOverride(merchant.ID); !errors.Is(err, ErrRateSetNotFound) {
		t.Fatalf("expected ErrRateSetNotFound, got %v", err)
	}
}

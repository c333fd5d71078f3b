package service

import (
	"errors"
	"testing"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"
)

func testRateSet() *models.RateSet {
	return &models.RateSet{
		PixRate:    models.NewPercentFromFloat(5.99),
		CardRate:   models.NewPercentFromFloat(7.99),
		BoletoRate: models.NewPercentFromFloat(3.49),
		FixedFee:   models.NewMoneyFromCents(250),
		Active:     true,
	}
}

func testFeeCalculator() *FeeCalculator {
	return NewFeeCalculator(config.SettlementConfig{
		ReservePercent:            "5",
		ReserveHoldDays:           30,
		InstallmentSurchargeCents: 100,
	})
}

func TestFeeCalculatorPixExample(t *testing.T) {
	calc := testFeeCalculator()

	// R$100.00 PIX at 5.99% + R$2.50 fixed, 5% reserve.
	breakdown, err := calc.Calculate(models.NewMoneyFromCents(10000), constants.BillingTypePix, 1, testRateSet())
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if got := breakdown.PlatformFee.Cents(); got != 849 {
		t.Fatalf("platform fee want 849 got %d", got)
	}
	if got := breakdown.ReserveAmount.Cents(); got != 458 {
		t.Fatalf("reserve want 458 got %d", got)
	}
	if got := breakdown.NetAmount.Cents(); got != 8693 {
		t.Fatalf("net want 8693 got %d", got)
	}
}

func TestFeeCalculatorSumIdentity(t *testing.T) {
	calc := testFeeCalculator()
	rates := testRateSet()

	// fee + reserve + net must equal gross exactly for any input.
	for _, gross := range []int64{266, 267, 301, 9999, 10000, 10001, 123457, 99999999} {
		breakdown, err := calc.Calculate(models.NewMoneyFromCents(gross), constants.BillingTypePix, 1, rates)
		if err != nil {
			t.Fatalf("calculate %d failed: %v", gross, err)
		}
		sum := breakdown.PlatformFee.Cents() + breakdown.ReserveAmount.Cents() + breakdown.NetAmount.Cents()
		if sum != gross {
			t.Fatalf("gross %d: fee %d + reserve %d + net %d = %d, leakage",
				gross, breakdown.PlatformFee.Cents(), breakdown.ReserveAmount.Cents(), breakdown.NetAmount.Cents(), sum)
		}
	}
}

func TestFeeCalculatorCardInstallments(t *testing.T) {
	calc := testFeeCalculator()

	single, err := calc.Calculate(models.NewMoneyFromCents(10000), constants.BillingTypeCard, 1, testRateSet())
	if err != nil {
		t.Fatalf("calculate single failed: %v", err)
	}
	triple, err := calc.Calculate(models.NewMoneyFromCents(10000), constants.BillingTypeCard, 3, testRateSet())
	if err != nil {
		t.Fatalf("calculate triple failed: %v", err)
	}

	// Two extra installments at 100 cents each.
	if diff := triple.PlatformFee.Cents() - single.PlatformFee.Cents(); diff != 200 {
		t.Fatalf("installment surcharge want 200 got %d", diff)
	}
	if triple.InstallmentValue.Cents() != 3333 {
		t.Fatalf("installment value want 3333 got %d", triple.InstallmentValue.Cents())
	}
	if !single.InstallmentValue.IsZero() {
		t.Fatalf("single payment should have no installment value, got %d", single.InstallmentValue.Cents())
	}

	// Surcharge never applies outside card billing.
	pix, err := calc.Calculate(models.NewMoneyFromCents(10000), constants.BillingTypePix, 3, testRateSet())
	if err != nil {
		t.Fatalf("calculate pix installments failed: %v", err)
	}
	if pix.PlatformFee.Cents() != 849 {
		t.Fatalf("pix fee with installments want 849 got %d", pix.PlatformFee.Cents())
	}
}

func TestFeeCalculatorInvalidInputs(t *testing.T) {
	calc := testFeeCalculator()
	rates := testRateSet()

	if _, err := calc.Calculate(models.NewMoneyFromCents(0), constants.BillingTypePix, 1, rates); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero gross want ErrInvalidAmount got %v", err)
	}
	if _, err := calc.Calculate(models.NewMoneyFromCents(-100), constants.BillingTypePix, 1, rates); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative gross want ErrInvalidAmount got %v", err)
	}
	if _, err := calc.Calculate(models.NewMoneyFromCents(10000), "crypto", 1, rates); !errors.Is(err, ErrUnsupportedBillingType) {
		t.Fatalf("unknown billing type want ErrUnsupportedBillingType got %v", err)
	}
	// Fee exceeding gross cannot settle.
	if _, err := calc.Calculate(models.NewMoneyFromCents(100), constants.BillingTypePix, 1, rates); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("fee above gross want ErrInvalidAmount got %v", err)
	}
}

func TestSplitCommission(t *testing.T) {
	link := &models.AffiliateLink{CommissionPercent: models.NewPercentFromFloat(30)}

	// R$50.00 at 30% -> R$15.00 / R$35.00.
	split := SplitCommission(models.NewMoneyFromCents(5000), link)
	if split.AffiliateShare.Cents() != 1500 {
		t.Fatalf("affiliate share want 1500 got %d", split.AffiliateShare.Cents())
	}
	if split.OwnerShare.Cents() != 3500 {
		t.Fatalf("owner share want 3500 got %d", split.OwnerShare.Cents())
	}

	// Shares always sum to net, even on amounts that round.
	for _, net := range []int64{1, 3, 333, 12345, 99999} {
		split := SplitCommission(models.NewMoneyFromCents(net), link)
		if split.OwnerShare.Cents()+split.AffiliateShare.Cents() != net {
			t.Fatalf("net %d: shares %d + %d do not sum", net, split.OwnerShare.Cents(), split.AffiliateShare.Cents())
		}
	}
}

func TestSplitCommissionNoLink(t *testing.T) {
	split := SplitCommission(models.NewMoneyFromCents(5000), nil)
	if split.OwnerShare.Cents() != 5000 || !split.AffiliateShare.IsZero() {
		t.Fatalf("no link should assign all to owner, got %+v", split)
	}
}

package service

import (
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"

	"github.com/shopspring/decimal"
)

// FeeCalculator computes the platform fee, reserve and net amount for
// one confirmed payment. All arithmetic happens in integer cents;
// each derived field is rounded half up exactly once, and the net is
// the exact remainder so fee + reserve + net always equals gross.
type FeeCalculator struct {
	reservePercent       decimal.Decimal
	reserveHoldDays      int
	installmentSurcharge models.Money
}

// FeeBreakdown is the result of one fee computation.
type FeeBreakdown struct {
	PlatformFee      models.Money
	ReserveAmount    models.Money
	NetAmount        models.Money
	InstallmentValue models.Money // per-installment gross, card with installments > 1
	ReserveMaturesAt time.Time
}

// NewFeeCalculator creates the fee calculator from settlement policy.
func NewFeeCalculator(cfg config.SettlementConfig) *FeeCalculator {
	reservePercent, err := decimal.NewFromString(cfg.ReservePercent)
	if err != nil {
		reservePercent = decimal.Zero
	}
	holdDays := cfg.ReserveHoldDays
	if holdDays < 0 {
		holdDays = 0
	}
	return &FeeCalculator{
		reservePercent:       reservePercent,
		reserveHoldDays:      holdDays,
		installmentSurcharge: models.NewMoneyFromCents(cfg.InstallmentSurchargeCents),
	}
}

// Calculate computes the breakdown for a gross amount under a
// resolved rate set. Installments only matter for card payments.
func (c *FeeCalculator) Calculate(gross models.Money, billingType string, installments int, rates *models.RateSet) (*FeeBreakdown, error) {
	if !gross.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if rates == nil {
		return nil, ErrRateSetNotFound
	}
	rate, ok := rates.RateFor(billingType)
	if !ok {
		return nil, ErrUnsupportedBillingType
	}
	if installments < 1 {
		installments = 1
	}

	fee := gross.ApplyPercent(rate.Decimal).Add(rates.FixedFee)
	if billingType == constants.BillingTypeCard && installments > 1 {
		surcharge := c.installmentSurcharge.Cents() * int64(installments-1)
		fee = fee.Add(models.NewMoneyFromCents(surcharge))
	}
	if fee.IsNegative() {
		fee = 0
	}
	if fee.Cents() > gross.Cents() {
		return nil, ErrInvalidAmount
	}

	reserve := gross.Sub(fee).ApplyPercent(c.reservePercent)
	net := gross.Sub(fee).Sub(reserve)

	breakdown := &FeeBreakdown{
		PlatformFee:      fee,
		ReserveAmount:    reserve,
		NetAmount:        net,
		ReserveMaturesAt: time.Now().AddDate(0, 0, c.reserveHoldDays),
	}
	if billingType == constants.BillingTypeCard && installments > 1 {
		per := decimal.NewFromInt(gross.Cents()).Div(decimal.NewFromInt(int64(installments))).Round(0)
		breakdown.InstallmentValue = models.NewMoneyFromCents(per.IntPart())
	}
	return breakdown, nil
}

// HoldDays exposes the configured reserve hold period.
func (c *FeeCalculator) HoldDays() int {
	return c.reserveHoldDays
}

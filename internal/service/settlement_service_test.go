package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		DefaultPixRate:            "5.99",
		DefaultCardRate:           "7.99",
		DefaultBoletoRate:         "3.49",
		DefaultFixedFeeCents:      250,
		WithdrawalFeeCents:        350,
		ReservePercent:            "5",
		ReserveHoldDays:           30,
		InstallmentSurchargeCents: 100,
	}
}

type settlementTestEnv struct {
	db            *gorm.DB
	settlementSvc *SettlementService
	ledgerSvc     *LedgerService
	ledgerRepo    *repository.GormLedgerRepository
}

func setupSettlementTest(t *testing.T) *settlementTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Merchant{},
		&models.RateSet{},
		&models.Product{},
		&models.AffiliateLink{},
		&models.Payment{},
		&models.LedgerEntry{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	merchantRepo := repository.NewMerchantRepository(db)
	rateRepo := repository.NewRateSetRepository(db)
	productRepo := repository.NewProductRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}

	cfg := testSettlementConfig()
	ledgerSvc := NewLedgerService(ledgerRepo, merchantRepo)
	rateSvc := NewRateService(rateRepo, merchantRepo, cfg)
	feeCalc := NewFeeCalculator(cfg)
	settlementSvc := NewSettlementService(
		paymentRepo, ledgerRepo, merchantRepo, affiliateRepo, productRepo,
		ledgerSvc, rateSvc, feeCalc, queueClient,
	)
	return &settlementTestEnv{
		db:            db,
		settlementSvc: settlementSvc,
		ledgerSvc:     ledgerSvc,
		ledgerRepo:    ledgerRepo,
	}
}

func createTestMerchant(t *testing.T, db *gorm.DB, email string) *models.Merchant {
	t.Helper()
	merchant := &models.Merchant{
		Email:        email,
		Name:         "Test Merchant",
		PasswordHash: "hash",
		Status:       constants.MerchantStatusActive,
	}
	if err := db.Create(merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	return merchant
}

func TestSettlementHappyPath(t *testing.T) {
	env := setupSettlementTest(t)
	merchant := createTestMerchant(t, env.db, "settle_happy@example.com")

	payment, err := env.settlementSvc.Settle(SettlementInput{
		PaymentNo:   "PAY-HAPPY-1",
		MerchantID:  merchant.ID,
		GrossValue:  models.NewMoneyFromCents(10000),
		BillingType: constants.BillingTypePix,
		ConfirmedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if payment.Status != constants.PaymentStatusSettled {
		t.Fatalf("payment status want settled got %s", payment.Status)
	}
	if payment.PlatformFee.Cents() != 849 || payment.ReserveAmount.Cents() != 458 || payment.NetAmount.Cents() != 8693 {
		t.Fatalf("unexpected breakdown fee=%d reserve=%d net=%d",
			payment.PlatformFee.Cents(), payment.ReserveAmount.Cents(), payment.NetAmount.Cents())
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 8693 {
		t.Fatalf("available want 8693 got %d", balance.Available.Cents())
	}
	if balance.Pending.Cents() != 458 {
		t.Fatalf("pending want 458 got %d", balance.Pending.Cents())
	}
	if balance.Total.Cents() != 9151 {
		t.Fatalf("total want 9151 got %d", balance.Total.Cents())
	}

	hold, err := env.ledgerRepo.GetByReference("payment:PAY-HAPPY-1:reserve_hold")
	if err != nil || hold == nil {
		t.Fatalf("reserve hold missing: %v", err)
	}
	if hold.ReserveMaturesAt == nil || !hold.ReserveMaturesAt.After(time.Now()) {
		t.Fatalf("reserve hold should mature in the future: %+v", hold.ReserveMaturesAt)
	}
}

func TestSettlementIdempotentReplay(t *testing.T) {
	env := setupSettlementTest(t)
	merchant := createTestMerchant(t, env.db, "settle_replay@example.com")

	input := SettlementInput{
		PaymentNo:   "PAY-REPLAY-1",
		MerchantID:  merchant.ID,
		GrossValue:  models.NewMoneyFromCents(10000),
		BillingType: constants.BillingTypePix,
	}
	first, err := env.settlementSvc.Settle(input)
	if err != nil {
		t.Fatalf("first settle failed: %v", err)
	}
	second, err := env.settlementSvc.Settle(input)
	if err != nil {
		t.Fatalf("replay settle failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay produced a new payment: %d vs %d", first.ID, second.ID)
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 8693 {
		t.Fatalf("replay changed balance: available %d", balance.Available.Cents())
	}

	var entryCount int64
	if err := env.db.Model(&models.LedgerEntry{}).Count(&entryCount).Error; err != nil {
		t.Fatalf("count entries failed: %v", err)
	}
	if entryCount != 2 {
		t.Fatalf("entry count want 2 got %d", entryCount)
	}
}

func TestSettlementAffiliateSplit(t *testing.T) {
	env := setupSettlementTest(t)
	owner := createTestMerchant(t, env.db, "settle_owner@example.com")
	affiliate := createTestMerchant(t, env.db, "settle_affiliate@example.com")

	product := &models.Product{
		MerchantID:        owner.ID,
		Name:              "Course",
		Price:             models.NewMoneyFromCents(10000),
		FeeBearer:         constants.FeeBearerSeller,
		CommissionPercent: models.NewPercentFromFloat(30),
		Active:            true,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	link := &models.AffiliateLink{
		Code:                "AFF-SPLIT-1",
		ProductID:           product.ID,
		AffiliateMerchantID: affiliate.ID,
		CommissionPercent:   product.CommissionPercent,
		Active:              true,
	}
	if err := env.db.Create(link).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	payment, err := env.settlementSvc.Settle(SettlementInput{
		PaymentNo:       "PAY-SPLIT-1",
		MerchantID:      owner.ID,
		GrossValue:      models.NewMoneyFromCents(10000),
		BillingType:     constants.BillingTypePix,
		AffiliateLinkID: &link.ID,
	})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	// Net 8693 at 30% -> affiliate 2608, owner 6085.
	affiliateBalance, err := env.ledgerSvc.BalanceOf(affiliate.ID)
	if err != nil {
		t.Fatalf("affiliate balance failed: %v", err)
	}
	if affiliateBalance.Available.Cents() != 2608 {
		t.Fatalf("affiliate available want 2608 got %d", affiliateBalance.Available.Cents())
	}
	ownerBalance, err := env.ledgerSvc.BalanceOf(owner.ID)
	if err != nil {
		t.Fatalf("owner balance failed: %v", err)
	}
	if ownerBalance.Available.Cents() != 6085 {
		t.Fatalf("owner available want 6085 got %d", ownerBalance.Available.Cents())
	}
	if ownerBalance.Pending.Cents() != 458 {
		t.Fatalf("reserve should stay with the owner, pending want 458 got %d", ownerBalance.Pending.Cents())
	}
	if payment.NetAmount.Cents() != 8693 {
		t.Fatalf("net want 8693 got %d", payment.NetAmount.Cents())
	}
}

func TestSettlementInvalidLinkRejected(t *testing.T) {
	env := setupSettlementTest(t)
	owner := createTestMerchant(t, env.db, "settle_badlink_owner@example.com")
	other := createTestMerchant(t, env.db, "settle_badlink_other@example.com")
	affiliate := createTestMerchant(t, env.db, "settle_badlink_aff@example.com")

	// Product owned by a different merchant than the paying one.
	product := &models.Product{
		MerchantID:        other.ID,
		Name:              "Foreign",
		Price:             models.NewMoneyFromCents(10000),
		FeeBearer:         constants.FeeBearerSeller,
		CommissionPercent: models.NewPercentFromFloat(10),
		Active:            true,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	link := &models.AffiliateLink{
		Code:                "AFF-FOREIGN-1",
		ProductID:           product.ID,
		AffiliateMerchantID: affiliate.ID,
		CommissionPercent:   product.CommissionPercent,
		Active:              true,
	}
	if err := env.db.Create(link).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	_, err := env.settlementSvc.Settle(SettlementInput{
		PaymentNo:       "PAY-FOREIGN-1",
		MerchantID:      owner.ID,
		GrossValue:      models.NewMoneyFromCents(10000),
		BillingType:     constants.BillingTypePix,
		AffiliateLinkID: &link.ID,
	})
	if !errors.Is(err, ErrAffiliateLinkInvalid) {
		t.Fatalf("want ErrAffiliateLinkInvalid got %v", err)
	}

	recorded, _, getErr := env.settlementSvc.ListPayments(repository.PaymentListFilter{Page: 1, PageSize: 10, PaymentNo: "PAY-FOREIGN-1"})
	if getErr != nil {
		t.Fatalf("list payments failed: %v", getErr)
	}
	if len(recorded) != 1 || recorded[0].Status != constants.PaymentStatusRejected {
		t.Fatalf("payment should be recorded rejected: %+v", recorded)
	}
}

func TestSettlementUnsupportedBillingType(t *testing.T) {
	env := setupSettlementTest(t)
	merchant := createTestMerchant(t, env.db, "settle_billing@example.com")

	input := SettlementInput{
		PaymentNo:   "PAY-BILLING-1",
		MerchantID:  merchant.ID,
		GrossValue:  models.NewMoneyFromCents(10000),
		BillingType: "crypto",
	}
	if _, err := env.settlementSvc.Settle(input); !errors.Is(err, ErrUnsupportedBillingType) {
		t.Fatalf("want ErrUnsupportedBillingType got %v", err)
	}

	// The rejection is terminal; replay is a no-op.
	replay, err := env.settlementSvc.Settle(input)
	if err != nil {
		t.Fatalf("replay of rejected payment failed: %v", err)
	}
	if replay.Status != constants.PaymentStatusRejected {
		t.Fatalf("replay status want rejected got %s", replay.Status)
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !balance.Total.IsZero() {
		t.Fatalf("rejected payment must not touch balance, total %d", balance.Total.Cents())
	}
}

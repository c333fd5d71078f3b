package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type withdrawalTestEnv struct {
	db            *gorm.DB
	withdrawalSvc *WithdrawalService
	ledgerSvc     *LedgerService
	ledgerRepo    *repository.GormLedgerRepository
}

func setupWithdrawalTest(t *testing.T) *withdrawalTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:withdrawal_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Merchant{},
		&models.RateSet{},
		&models.LedgerEntry{},
		&models.Withdrawal{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	merchantRepo := repository.NewMerchantRepository(db)
	rateRepo := repository.NewRateSetRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}

	cfg := testSettlementConfig()
	ledgerSvc := NewLedgerService(ledgerRepo, merchantRepo)
	rateSvc := NewRateService(rateRepo, merchantRepo, cfg)
	withdrawalSvc := NewWithdrawalService(withdrawalRepo, ledgerRepo, merchantRepo, ledgerSvc, rateSvc, queueClient)
	return &withdrawalTestEnv{
		db:            db,
		withdrawalSvc: withdrawalSvc,
		ledgerSvc:     ledgerSvc,
		ledgerRepo:    ledgerRepo,
	}
}

func creditMerchant(t *testing.T, env *withdrawalTestEnv, merchantID uint, cents int64, reference string) {
	t.Helper()
	entry := models.LedgerEntry{
		MerchantID: merchantID,
		Kind:       constants.LedgerKindCredit,
		Amount:     models.NewMoneyFromCents(cents),
		Reference:  reference,
		CreatedAt:  time.Now(),
	}
	if err := env.ledgerRepo.CreateEntry(&entry); err != nil {
		t.Fatalf("seed credit failed: %v", err)
	}
}

func TestWithdrawalRequestHoldsFunds(t *testing.T) {
	env := setupWithdrawalTest(t)
	merchant := createTestMerchant(t, env.db, "withdraw_hold@example.com")
	creditMerchant(t, env, merchant.ID, 20000, "seed:withdraw_hold")

	withdrawal, err := env.withdrawalSvc.Request(WithdrawalRequestInput{
		MerchantID:  merchant.ID,
		Amount:      models.NewMoneyFromCents(20000),
		BankDetails: models.JSON(`{"bank":"001","agency":"1234","account":"56789-0"}`),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if withdrawal.Status != constants.WithdrawalStatusPending {
		t.Fatalf("status want pending got %s", withdrawal.Status)
	}
	if withdrawal.FeeAmount.Cents() != 350 {
		t.Fatalf("fee want 350 got %d", withdrawal.FeeAmount.Cents())
	}
	if withdrawal.NetAmount.Cents() != 19650 {
		t.Fatalf("net want 19650 got %d", withdrawal.NetAmount.Cents())
	}

	// R$200.00 against R$200.00 drives available to zero.
	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !balance.Available.IsZero() {
		t.Fatalf("available want 0 got %d", balance.Available.Cents())
	}

	// A second request against the drained balance must fail.
	_, err = env.withdrawalSvc.Request(WithdrawalRequestInput{
		MerchantID:  merchant.ID,
		Amount:      models.NewMoneyFromCents(5000),
		BankDetails: models.JSON(`{"bank":"001"}`),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance got %v", err)
	}
}

func TestWithdrawalInsufficientBalance(t *testing.T) {
	env := setupWithdrawalTest(t)
	merchant := createTestMerchant(t, env.db, "withdraw_short@example.com")
	creditMerchant(t, env, merchant.ID, 1000, "seed:withdraw_short")

	_, err := env.withdrawalSvc.Request(WithdrawalRequestInput{
		MerchantID:  merchant.ID,
		Amount:      models.NewMoneyFromCents(1001),
		BankDetails: models.JSON(`{"bank":"001"}`),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance got %v", err)
	}

	// The failed request must not leave a hold behind.
	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 1000 {
		t.Fatalf("available want 1000 got %d", balance.Available.Cents())
	}
}

func TestWithdrawalApproveCompleteFlow(t *testing.T) {
	env := setupWithdrawalTest(t)
	merchant := createTestMerchant(t, env.db, "withdraw_flow@example.com")
	creditMerchant(t, env, merchant.ID, 10000, "seed:withdraw_flow")

	withdrawal, err := env.withdrawalSvc.Request(WithdrawalRequestInput{
		MerchantID:  merchant.ID,
		Amount:      models.NewMoneyFromCents(5000),
		BankDetails: models.JSON(`{"bank":"001"}`),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	approved, err := env.withdrawalSvc.Approve(withdrawal.ID, 7)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.WithdrawalStatusApproved {
		t.Fatalf("status want approved got %s", approved.Status)
	}
	if approved.ApprovedByID == nil || *approved.ApprovedByID != 7 {
		t.Fatalf("approved_by want 7 got %+v", approved.ApprovedByID)
	}

	// Approval carries no balance delta; the hold did the work.
	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 5000 {
		t.Fatalf("available after approve want 5000 got %d", balance.Available.Cents())
	}

	// Approved withdrawals cannot be rejected.
	if _, err := env.withdrawalSvc.Reject(withdrawal.ID, "too late"); !errors.Is(err, ErrWithdrawalStateConflict) {
		t.Fatalf("reject after approve want ErrWithdrawalStateConflict got %v", err)
	}

	completed, err := env.withdrawalSvc.Complete(withdrawal.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != constants.WithdrawalStatusCompleted {
		t.Fatalf("status want completed got %s", completed.Status)
	}

	balance, err = env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 5000 {
		t.Fatalf("completion must not change balance, available %d", balance.Available.Cents())
	}

	// Terminal state: no further transitions.
	if _, err := env.withdrawalSvc.Complete(withdrawal.ID); !errors.Is(err, ErrWithdrawalStateConflict) {
		t.Fatalf("double complete want ErrWithdrawalStateConflict got %v", err)
	}
	if _, err := env.withdrawalSvc.Approve(withdrawal.ID, 7); !errors.Is(err, ErrWithdrawalStateConflict) {
		t.Fatalf("approve after complete want ErrWithdrawalStateConflict got %v", err)
	}
}

func TestWithdrawalRejectRestoresBalance(t *testing.T) {
	env := setupWithdrawalTest(t)
	merchant := createTestMerchant(t, env.db, "withdraw_reject@example.com")
	creditMerchant(t, env, merchant.ID, 10000, "seed:withdraw_reject")

	withdrawal, err := env.withdrawalSvc.Request(WithdrawalRequestInput{
		MerchantID:  merchant.ID,
		Amount:      models.NewMoneyFromCents(6000),
		BankDetails: models.JSON(`{"bank":"001"}`),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	rejected, err := env.withdrawalSvc.Reject(withdrawal.ID, "bank details mismatch")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.WithdrawalStatusRejected {
		t.Fatalf("status want rejected got %s", rejected.Status)
	}
	if rejected.RejectionReason != "bank details mismatch" {
		t.Fatalf("unexpected rejection reason %q", rejected.RejectionReason)
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 10000 {
		t.Fatalf("available after reject want 10000 got %d", balance.Available.Cents())
	}

	// Terminal state: the reversal can never run twice.
	if _, err := env.withdrawalSvc.Reject(withdrawal.ID, "again"); !errors.Is(err, ErrWithdrawalStateConflict) {
		t.Fatalf("double reject want ErrWithdrawalStateConflict got %v", err)
	}
	if _, err := env.withdrawalSvc.Approve(withdrawal.ID, 1); !errors.Is(err, ErrWithdrawalStateConflict) {
		t.Fatalf("approve after reject want ErrWithdrawalStateConflict got %v", err)
	}
}

func TestWithdrawalAmountValidation(t *testing.T) {
	env := setupWithdrawalTest(t)
	merchant := createTestMerchant(t, env.db, "withdraw_amount@example.com")
	creditMerchant(t, env, merchant.ID, 10000, "seed:withdraw_amount")

	if _, err := env.withdrawalSvc.Request(WithdrawalRequestInput{
		MerchantID: merchant.ID,
		Amount:     models.NewMoneyFromCents(0),
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount want ErrInvalidAmount got %v", err)
	}

	// Amount at or below the withdrawal fee nets nothing.
	if _, err := env.withdrawalSvc.Request(WithdrawalRequestInput{
		MerchantID: merchant.ID,
		Amount:     models.NewMoneyFromCents(350),
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("fee-only amount want ErrInvalidAmount got %v", err)
	}
}

package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupLedgerTest(t *testing.T) (*gorm.DB, *LedgerService, *repository.GormLedgerRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Merchant{}, &models.LedgerEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	merchantRepo := repository.NewMerchantRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	return db, NewLedgerService(ledgerRepo, merchantRepo), ledgerRepo
}

func TestBalanceFold(t *testing.T) {
	db, ledgerSvc, ledgerRepo := setupLedgerTest(t)
	merchant := createTestMerchant(t, db, "fold@example.com")

	now := time.Now()
	entries := []models.LedgerEntry{
		{MerchantID: merchant.ID, Kind: constants.LedgerKindCredit, Amount: models.NewMoneyFromCents(8693), Reference: "payment:np_f1:credit", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindReserveHold, Amount: models.NewMoneyFromCents(458), Reference: "payment:np_f1:reserve_hold", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindCredit, Amount: models.NewMoneyFromCents(2608), Reference: "payment:np_f2:affiliate_credit", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindWithdrawalHold, Amount: models.NewMoneyFromCents(2000), Reference: "withdrawal:1:hold", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindWithdrawalComplete, Amount: models.NewMoneyFromCents(2000), Reference: "withdrawal:1:complete", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindAdjustment, Amount: models.NewMoneyFromCents(-100), Reference: "adjustment:test-fold", CreatedAt: now},
	}
	if err := ledgerRepo.CreateEntries(entries); err != nil {
		t.Fatalf("seed entries failed: %v", err)
	}

	balance, err := ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	// 8693 + 2608 - 2000 - 100; the completion marker carries no delta.
	if balance.Available.Cents() != 9201 {
		t.Fatalf("available want 9201 got %d", balance.Available.Cents())
	}
	if balance.Pending.Cents() != 458 {
		t.Fatalf("pending want 458 got %d", balance.Pending.Cents())
	}
	if balance.Total.Cents() != 9659 {
		t.Fatalf("total want 9659 got %d", balance.Total.Cents())
	}
}

func TestAdminAdjust(t *testing.T) {
	db, ledgerSvc, _ := setupLedgerTest(t)
	merchant := createTestMerchant(t, db, "adjust@example.com")

	credit, err := ledgerSvc.AdminAdjust(LedgerAdjustInput{
		MerchantID: merchant.ID,
		Delta:      models.NewMoneyFromCents(5000),
		Remark:     "chargeback reversal",
	})
	if err != nil {
		t.Fatalf("credit adjust failed: %v", err)
	}
	if credit.Kind != constants.LedgerKindAdjustment {
		t.Fatalf("kind want adjustment got %s", credit.Kind)
	}
	if !strings.HasPrefix(credit.Reference, "adjustment:") {
		t.Fatalf("unexpected reference %q", credit.Reference)
	}

	debit, err := ledgerSvc.AdminAdjust(LedgerAdjustInput{
		MerchantID: merchant.ID,
		Delta:      models.NewMoneyFromCents(-1500),
	})
	if err != nil {
		t.Fatalf("debit adjust failed: %v", err)
	}
	if debit.Remark == "" {
		t.Fatalf("debit adjustment should carry a default remark")
	}

	balance, err := ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 3500 {
		t.Fatalf("available want 3500 got %d", balance.Available.Cents())
	}

	if _, err := ledgerSvc.AdminAdjust(LedgerAdjustInput{
		MerchantID: merchant.ID,
		Delta:      models.NewMoneyFromCents(0),
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero delta want ErrInvalidAmount got %v", err)
	}
	if _, err := ledgerSvc.AdminAdjust(LedgerAdjustInput{
		MerchantID: 999,
		Delta:      models.NewMoneyFromCents(100),
	}); !errors.Is(err, ErrMerchantNotFound) {
		t.Fatalf("unknown merchant want ErrMerchantNotFound got %v", err)
	}
}

func TestLedgerHistoryFilters(t *testing.T) {
	db, ledgerSvc, ledgerRepo := setupLedgerTest(t)
	merchant := createTestMerchant(t, db, "history@example.com")
	other := createTestMerchant(t, db, "history_other@example.com")

	now := time.Now()
	entries := []models.LedgerEntry{
		{MerchantID: merchant.ID, Kind: constants.LedgerKindCredit, Amount: models.NewMoneyFromCents(100), Reference: "payment:np_h1:credit", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindReserveHold, Amount: models.NewMoneyFromCents(5), Reference: "payment:np_h1:reserve_hold", CreatedAt: now},
		{MerchantID: other.ID, Kind: constants.LedgerKindCredit, Amount: models.NewMoneyFromCents(200), Reference: "payment:np_h2:credit", CreatedAt: now},
	}
	if err := ledgerRepo.CreateEntries(entries); err != nil {
		t.Fatalf("seed entries failed: %v", err)
	}

	listed, total, err := ledgerSvc.History(repository.LedgerListFilter{MerchantID: merchant.ID})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if total != 2 || len(listed) != 2 {
		t.Fatalf("merchant history want 2 got %d", total)
	}

	listed, total, err = ledgerSvc.History(repository.LedgerListFilter{
		MerchantID: merchant.ID,
		Kind:       constants.LedgerKindReserveHold,
	})
	if err != nil {
		t.Fatalf("filtered history failed: %v", err)
	}
	if total != 1 || listed[0].Kind != constants.LedgerKindReserveHold {
		t.Fatalf("kind filter want 1 reserve_hold got %d", total)
	}
}

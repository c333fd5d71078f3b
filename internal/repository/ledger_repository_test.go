package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupLedgerRepositoryTest(t *testing.T) (*GormLedgerRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Merchant{},
		&models.LedgerEntry{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewLedgerRepository(db), db
}

func TestLedgerRepositorySumByKind(t *testing.T) {
	repo, db := setupLedgerRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	merchant := models.Merchant{
		Email:  "sum_by_kind@example.com",
		Name:   "Sum Merchant",
		Status: constants.MerchantStatusActive,
	}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	other := models.Merchant{
		Email:  "sum_by_kind_other@example.com",
		Name:   "Other Merchant",
		Status: constants.MerchantStatusActive,
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create other merchant failed: %v", err)
	}

	entries := []models.LedgerEntry{
		{MerchantID: merchant.ID, Kind: constants.LedgerKindCredit, Amount: 8693, Reference: "payment:PAY-1:credit", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindCredit, Amount: 3500, Reference: "payment:PAY-2:credit", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindReserveHold, Amount: 458, Reference: "payment:PAY-1:reserve_hold", CreatedAt: now},
		{MerchantID: merchant.ID, Kind: constants.LedgerKindWithdrawalHold, Amount: 2000, Reference: "withdrawal:1:hold", CreatedAt: now},
		{MerchantID: other.ID, Kind: constants.LedgerKindCredit, Amount: 99999, Reference: "payment:OTHER-1:credit", CreatedAt: now},
	}
	if err := repo.CreateEntries(entries); err != nil {
		t.Fatalf("create entries failed: %v", err)
	}

	sums, err := repo.SumByKind(merchant.ID)
	if err != nil {
		t.Fatalf("sum by kind failed: %v", err)
	}
	if got := sums[constants.LedgerKindCredit]; got != 12193 {
		t.Fatalf("credit sum want 12193 got %d", got)
	}
	if got := sums[constants.LedgerKindReserveHold]; got != 458 {
		t.Fatalf("reserve_hold sum want 458 got %d", got)
	}
	if got := sums[constants.LedgerKindWithdrawalHold]; got != 2000 {
		t.Fatalf("withdrawal_hold sum want 2000 got %d", got)
	}
	if got, ok := sums[constants.LedgerKindDebit]; ok {
		t.Fatalf("debit sum should be absent, got %d", got)
	}
}

func TestLedgerRepositoryUniqueReference(t *testing.T) {
	repo, _ := setupLedgerRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	first := models.LedgerEntry{
		MerchantID: 1,
		Kind:       constants.LedgerKindCredit,
		Amount:     1000,
		Reference:  "payment:PAY-DUP:credit",
		CreatedAt:  now,
	}
	if err := repo.CreateEntry(&first); err != nil {
		t.Fatalf("create first entry failed: %v", err)
	}

	dup := models.LedgerEntry{
		MerchantID: 1,
		Kind:       constants.LedgerKindCredit,
		Amount:     1000,
		Reference:  "payment:PAY-DUP:credit",
		CreatedAt:  now,
	}
	if err := repo.CreateEntry(&dup); err == nil {
		t.Fatal("expected unique reference violation, got nil")
	}

	found, err := repo.GetByReference("payment:PAY-DUP:credit")
	if err != nil {
		t.Fatalf("get by reference failed: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Fatalf("get by reference returned wrong entry: %+v", found)
	}
}

func TestLedgerRepositoryListMaturedReserveHolds(t *testing.T) {
	repo, _ := setupLedgerRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	matured := models.LedgerEntry{
		MerchantID:       1,
		Kind:             constants.LedgerKindReserveHold,
		Amount:           458,
		Reference:        "payment:PAY-M1:reserve_hold",
		ReserveMaturesAt: &past,
		CreatedAt:        past,
	}
	if err := repo.CreateEntry(&matured); err != nil {
		t.Fatalf("create matured hold failed: %v", err)
	}

	released := models.LedgerEntry{
		MerchantID:       1,
		Kind:             constants.LedgerKindReserveHold,
		Amount:           300,
		Reference:        "payment:PAY-M2:reserve_hold",
		ReserveMaturesAt: &past,
		CreatedAt:        past,
	}
	if err := repo.CreateEntry(&released); err != nil {
		t.Fatalf("create released hold failed: %v", err)
	}
	release := models.LedgerEntry{
		MerchantID: 1,
		Kind:       constants.LedgerKindReserveRelease,
		Amount:     300,
		Reference:  fmt.Sprintf("reserve_release:%d", released.ID),
		CreatedAt:  now,
	}
	if err := repo.CreateEntry(&release); err != nil {
		t.Fatalf("create release failed: %v", err)
	}

	pending := models.LedgerEntry{
		MerchantID:       1,
		Kind:             constants.LedgerKindReserveHold,
		Amount:           500,
		Reference:        "payment:PAY-M3:reserve_hold",
		ReserveMaturesAt: &future,
		CreatedAt:        now,
	}
	if err := repo.CreateEntry(&pending); err != nil {
		t.Fatalf("create pending hold failed: %v", err)
	}

	holds, err := repo.ListMaturedReserveHolds(now, 100)
	if err != nil {
		t.Fatalf("list matured holds failed: %v", err)
	}
	if len(holds) != 1 {
		t.Fatalf("matured holds len want 1 got %d", len(holds))
	}
	if holds[0].ID != matured.ID {
		t.Fatalf("unexpected matured hold id=%d", holds[0].ID)
	}
}

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

type reserveTestEnv struct {
	db         *gorm.DB
	reserveSvc *ReserveService
	ledgerSvc  *LedgerService
	ledgerRepo *repository.GormLedgerRepository
}

func setupReserveTest(t *testing.T) *reserveTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:reserve_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	merchantRepo := repository.NewMerchantRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}

	ledgerSvc := NewLedgerService(ledgerRepo, merchantRepo)
	reserveSvc := NewReserveService(ledgerRepo, merchantRepo, ledgerSvc, queueClient)
	return &reserveTestEnv{
		db:         db,
		reserveSvc: reserveSvc,
		ledgerSvc:  ledgerSvc,
		ledgerRepo: ledgerRepo,
	}
}

func seedReserveHold(t *testing.T, env *reserveTestEnv, merchantID uint, cents int64, maturesAt time.Time, reference string) *models.LedgerEntry {
	t.Helper()
	hold := models.LedgerEntry{
		MerchantID:       merchantID,
		Kind:             constants.LedgerKindReserveHold,
		Amount:           models.NewMoneyFromCents(cents),
		Reference:        reference,
		ReserveMaturesAt: &maturesAt,
		CreatedAt:        time.Now(),
	}
	if err := env.ledgerRepo.CreateEntry(&hold); err != nil {
		t.Fatalf("seed hold failed: %v", err)
	}
	return &hold
}

func TestReserveReleaseMaturedHold(t *testing.T) {
	env := setupReserveTest(t)
	merchant := createTestMerchant(t, env.db, "reserve_release@example.com")
	hold := seedReserveHold(t, env, merchant.ID, 458, time.Now().Add(-time.Hour), "payment:np_r1:reserve_hold")

	release, err := env.reserveSvc.Release(hold.ID)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if release.Kind != constants.LedgerKindReserveRelease {
		t.Fatalf("kind want reserve_release got %s", release.Kind)
	}
	if release.Amount.Cents() != 458 {
		t.Fatalf("release amount want 458 got %d", release.Amount.Cents())
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 458 {
		t.Fatalf("available want 458 got %d", balance.Available.Cents())
	}
	if !balance.Pending.IsZero() {
		t.Fatalf("pending want 0 got %d", balance.Pending.Cents())
	}
}

func TestReserveReleaseNotMatured(t *testing.T) {
	env := setupReserveTest(t)
	merchant := createTestMerchant(t, env.db, "reserve_early@example.com")
	hold := seedReserveHold(t, env, merchant.ID, 500, time.Now().Add(24*time.Hour), "payment:np_r2:reserve_hold")

	if _, err := env.reserveSvc.Release(hold.ID); !errors.Is(err, ErrReserveNotMatured) {
		t.Fatalf("want ErrReserveNotMatured got %v", err)
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Pending.Cents() != 500 {
		t.Fatalf("pending want 500 got %d", balance.Pending.Cents())
	}
}

func TestReserveReleaseIdempotent(t *testing.T) {
	env := setupReserveTest(t)
	merchant := createTestMerchant(t, env.db, "reserve_twice@example.com")
	hold := seedReserveHold(t, env, merchant.ID, 700, time.Now().Add(-time.Minute), "payment:np_r3:reserve_hold")

	first, err := env.reserveSvc.Release(hold.ID)
	if err != nil {
		t.Fatalf("first release failed: %v", err)
	}

	// The delayed task and the sweep can both fire; the second call
	// returns the existing release.
	second, err := env.reserveSvc.Release(hold.ID)
	if !errors.Is(err, ErrReserveAlreadyReleased) {
		t.Fatalf("want ErrReserveAlreadyReleased got %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("second release should return the existing entry, got %+v", second)
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 700 {
		t.Fatalf("available want 700 got %d", balance.Available.Cents())
	}
}

func TestReserveReleaseRejectsNonHoldEntry(t *testing.T) {
	env := setupReserveTest(t)
	merchant := createTestMerchant(t, env.db, "reserve_kind@example.com")
	credit := models.LedgerEntry{
		MerchantID: merchant.ID,
		Kind:       constants.LedgerKindCredit,
		Amount:     models.NewMoneyFromCents(1000),
		Reference:  "seed:reserve_kind",
		CreatedAt:  time.Now(),
	}
	if err := env.ledgerRepo.CreateEntry(&credit); err != nil {
		t.Fatalf("seed credit failed: %v", err)
	}

	if _, err := env.reserveSvc.Release(credit.ID); !errors.Is(err, ErrLedgerEntryNotFound) {
		t.Fatalf("non-hold entry want ErrLedgerEntryNotFound got %v", err)
	}
	if _, err := env.reserveSvc.Release(0); !errors.Is(err, ErrLedgerEntryNotFound) {
		t.Fatalf("zero id want ErrLedgerEntryNotFound got %v", err)
	}
}

func TestReserveSweepMatured(t *testing.T) {
	env := setupReserveTest(t)
	merchant := createTestMerchant(t, env.db, "reserve_sweep@example.com")

	seedReserveHold(t, env, merchant.ID, 100, time.Now().Add(-time.Hour), "payment:np_s1:reserve_hold")
	seedReserveHold(t, env, merchant.ID, 200, time.Now().Add(-time.Minute), "payment:np_s2:reserve_hold")
	future := seedReserveHold(t, env, merchant.ID, 300, time.Now().Add(time.Hour), "payment:np_s3:reserve_hold")

	released, err := env.reserveSvc.SweepMatured(100)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if released != 2 {
		t.Fatalf("released want 2 got %d", released)
	}

	balance, err := env.ledgerSvc.BalanceOf(merchant.ID)
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Available.Cents() != 300 {
		t.Fatalf("available want 300 got %d", balance.Available.Cents())
	}
	if balance.Pending.Cents() != 300 {
		t.Fatalf("pending want 300 got %d", balance.Pending.Cents())
	}

	// A second sweep finds nothing new.
	released, err = env.reserveSvc.SweepMatured(100)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if released != 0 {
		t.Fatalf("second sweep released want 0 got %d", released)
	}

	// The future hold releases once it matures.
	maturedAt := time.Now().Add(-time.Second)
	if err := env.db.Model(&models.LedgerEntry{}).Where("id = ?", future.ID).
		Update("reserve_matures_at", maturedAt).Error; err != nil {
		t.Fatalf("mature future hold failed: %v", err)
	}
	released, err = env.reserveSvc.SweepMatured(100)
	if err != nil {
		t.Fatalf("third sweep failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("third sweep released want 1 got %d", released)
	}
}

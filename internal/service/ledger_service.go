package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/cache"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService owns the append-only ledger: the balance fold, entry
// history and manual adjustments. Balances are always reconstructible
// from entries; the Redis snapshot is a read accelerator that every
// write invalidates.
type LedgerService struct {
	ledgerRepo   repository.LedgerRepository
	merchantRepo repository.MerchantRepository
}

// LedgerAdjustInput is a manual operator adjustment. Delta is signed
// cents; positive credits the merchant, negative debits.
type LedgerAdjustInput struct {
	MerchantID uint
	Delta      models.Money
	Remark     string
}

// NewLedgerService creates the ledger service.
func NewLedgerService(
	ledgerRepo repository.LedgerRepository,
	merchantRepo repository.MerchantRepository,
) *LedgerService {
	return &LedgerService{
		ledgerRepo:   ledgerRepo,
		merchantRepo: merchantRepo,
	}
}

// BalanceOf folds a merchant's ledger into the derived balance view.
//
//	available = credits - debits + adjustments - withdrawal holds + reserve releases
//	pending   = reserve holds - reserve releases
//	total     = available + pending
//
// Completed-withdrawal markers carry no balance delta; the hold
// already removed the funds.
func (s *LedgerService) BalanceOf(merchantID uint) (*models.Balance, error) {
	if merchantID == 0 {
		return nil, ErrMerchantNotFound
	}

	ctx := context.Background()
	if snapshot, hit, err := cache.GetBalance(ctx, merchantID); err == nil && hit {
		return &models.Balance{
			Available: models.NewMoneyFromCents(snapshot.Available),
			Pending:   models.NewMoneyFromCents(snapshot.Pending),
			Total:     models.NewMoneyFromCents(snapshot.Total),
		}, nil
	}

	balance, err := s.foldBalance(s.ledgerRepo, merchantID)
	if err != nil {
		return nil, err
	}

	if err := cache.SetBalance(ctx, &cache.BalanceSnapshot{
		MerchantID: merchantID,
		Available:  balance.Available.Cents(),
		Pending:    balance.Pending.Cents(),
		Total:      balance.Total.Cents(),
	}); err != nil {
		logger.Warnw("balance_cache_set_failed", "merchant_id", merchantID, "error", err)
	}
	return balance, nil
}

// BalanceOfTx folds the balance inside a transaction, bypassing the
// cache. Used by the withdrawal hold check so the re-read and the
// hold write share one atomic unit.
func (s *LedgerService) BalanceOfTx(tx *gorm.DB, merchantID uint) (*models.Balance, error) {
	return s.foldBalance(s.ledgerRepo.WithTx(tx), merchantID)
}

// History pages through a merchant's ledger entries.
func (s *LedgerService) History(filter repository.LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	return s.ledgerRepo.List(filter)
}

// GetEntry fetches one ledger entry.
func (s *LedgerService) GetEntry(id uint) (*models.LedgerEntry, error) {
	entry, err := s.ledgerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrLedgerEntryNotFound
	}
	return entry, nil
}

// AdminAdjust appends a signed manual adjustment under the merchant
// row lock.
func (s *LedgerService) AdminAdjust(input LedgerAdjustInput) (*models.LedgerEntry, error) {
	if input.MerchantID == 0 {
		return nil, ErrMerchantNotFound
	}
	if input.Delta.IsZero() {
		return nil, ErrInvalidAmount
	}
	remark := strings.TrimSpace(input.Remark)
	if remark == "" {
		remark = "manual adjustment"
	}

	entry := &models.LedgerEntry{
		MerchantID: input.MerchantID,
		Kind:       constants.LedgerKindAdjustment,
		Amount:     input.Delta,
		Reference:  fmt.Sprintf("adjustment:%s", uuid.NewString()),
		Remark:     remark,
		CreatedAt:  time.Now(),
	}
	if err := s.ledgerRepo.Transaction(func(tx *gorm.DB) error {
		merchant, err := s.merchantRepo.WithTx(tx).GetByIDForUpdate(input.MerchantID)
		if err != nil {
			return err
		}
		if merchant == nil {
			return ErrMerchantNotFound
		}
		return s.ledgerRepo.WithTx(tx).CreateEntry(entry)
	}); err != nil {
		return nil, err
	}

	s.InvalidateBalance(input.MerchantID)
	return entry, nil
}

// InvalidateBalance drops the cached snapshot after a ledger write.
func (s *LedgerService) InvalidateBalance(merchantID uint) {
	if err := cache.DelBalance(context.Background(), merchantID); err != nil {
		logger.Warnw("balance_cache_invalidate_failed", "merchant_id", merchantID, "error", err)
	}
}

func (s *LedgerService) foldBalance(repo repository.LedgerRepository, merchantID uint) (*models.Balance, error) {
	sums, err := repo.SumByKind(merchantID)
	if err != nil {
		return nil, err
	}
	available := sums[constants.LedgerKindCredit] -
		sums[constants.LedgerKindDebit] +
		sums[constants.LedgerKindAdjustment] -
		sums[constants.LedgerKindWithdrawalHold] +
		sums[constants.LedgerKindReserveRelease]
	pending := sums[constants.LedgerKindReserveHold] - sums[constants.LedgerKindReserveRelease]
	return &models.Balance{
		Available: models.NewMoneyFromCents(available),
		Pending:   models.NewMoneyFromCents(pending),
		Total:     models.NewMoneyFromCents(available + pending),
	}, nil
}

// Ledger reference builders. References are the natural idempotency
// keys: the unique index makes replays collide instead of
// double-applying.
func paymentCreditReference(paymentNo string) string {
	return fmt.Sprintf("payment:%s:credit", paymentNo)
}

func paymentAffiliateCreditReference(paymentNo string) string {
	return fmt.Sprintf("payment:%s:affiliate_credit", paymentNo)
}

func paymentReserveHoldReference(paymentNo string) string {
	return fmt.Sprintf("payment:%s:reserve_hold", paymentNo)
}

func withdrawalHoldReference(withdrawalID uint) string {
	return fmt.Sprintf("withdrawal:%d:hold", withdrawalID)
}

func withdrawalCompleteReference(withdrawalID uint) string {
	return fmt.Sprintf("withdrawal:%d:complete", withdrawalID)
}

func withdrawalReversalReference(withdrawalID uint) string {
	return fmt.Sprintf("withdrawal:%d:reversal", withdrawalID)
}

func reserveReleaseReference(holdEntryID uint) string {
	return fmt.Sprintf("reserve_release:%d", holdEntryID)
}

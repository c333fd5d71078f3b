package service

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"

	"gorm.io/gorm"
)

// ReserveService releases matured reserve holds. It is the only
// writer of reserve_release entries. Releases are keyed on the hold
// entry ID, so the delayed queue task and the periodic sweep can both
// fire without double-releasing.
type ReserveService struct {
	ledgerRepo   repository.LedgerRepository
	merchantRepo repository.MerchantRepository
	ledgerSvc    *LedgerService
	queueClient  *queue.Client
}

// NewReserveService creates the reserve service.
func NewReserveService(
	ledgerRepo repository.LedgerRepository,
	merchantRepo repository.MerchantRepository,
	ledgerSvc *LedgerService,
	queueClient *queue.Client,
) *ReserveService {
	return &ReserveService{
		ledgerRepo:   ledgerRepo,
		merchantRepo: merchantRepo,
		ledgerSvc:    ledgerSvc,
		queueClient:  queueClient,
	}
}

// Release moves one matured hold into available balance. Releasing
// an already-released hold returns ErrReserveAlreadyReleased, which
// callers treat as success.
func (s *ReserveService) Release(holdEntryID uint) (*models.LedgerEntry, error) {
	if holdEntryID == 0 {
		return nil, ErrLedgerEntryNotFound
	}

	var release *models.LedgerEntry
	var merchantID uint
	err := s.ledgerRepo.Transaction(func(tx *gorm.DB) error {
		ledger := s.ledgerRepo.WithTx(tx)

		hold, err := ledger.GetByID(holdEntryID)
		if err != nil {
			return err
		}
		if hold == nil || hold.Kind != constants.LedgerKindReserveHold {
			return ErrLedgerEntryNotFound
		}
		if hold.ReserveMaturesAt == nil || hold.ReserveMaturesAt.After(time.Now()) {
			return ErrReserveNotMatured
		}

		if _, err := s.merchantRepo.WithTx(tx).GetByIDForUpdate(hold.MerchantID); err != nil {
			return err
		}

		reference := reserveReleaseReference(hold.ID)
		existing, err := ledger.GetByReference(reference)
		if err != nil {
			return err
		}
		if existing != nil {
			release = existing
			return ErrReserveAlreadyReleased
		}

		merchantID = hold.MerchantID
		release = &models.LedgerEntry{
			MerchantID:       hold.MerchantID,
			Kind:             constants.LedgerKindReserveRelease,
			Amount:           hold.Amount,
			Reference:        reference,
			RelatedPaymentID: hold.RelatedPaymentID,
			Remark:           "reserve matured",
			CreatedAt:        time.Now(),
		}
		return ledger.CreateEntry(release)
	})
	if err != nil {
		if errors.Is(err, ErrReserveAlreadyReleased) {
			return release, ErrReserveAlreadyReleased
		}
		return nil, err
	}

	s.ledgerSvc.InvalidateBalance(merchantID)
	s.notifyReleased(release)
	return release, nil
}

// SweepMatured releases every matured hold that has no release yet.
// Safe to run concurrently with the delayed release tasks; losers of
// the reference race skip the hold.
func (s *ReserveService) SweepMatured(limit int) (int, error) {
	holds, err := s.ledgerRepo.ListMaturedReserveHolds(time.Now(), limit)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, hold := range holds {
		if _, err := s.Release(hold.ID); err != nil {
			if errors.Is(err, ErrReserveAlreadyReleased) {
				continue
			}
			logger.Warnw("reserve_sweep_release_failed",
				"hold_entry_id", hold.ID,
				"merchant_id", hold.MerchantID,
				"error", err,
			)
			continue
		}
		released++
	}
	if released > 0 {
		logger.Infow("reserve_sweep_completed", "released", released, "scanned", len(holds))
	}
	return released, nil
}

func (s *ReserveService) notifyReleased(release *models.LedgerEntry) {
	if release == nil {
		return
	}
	data, err := json.Marshal(release)
	if err != nil {
		logger.Warnw("webhook_payload_marshal_failed", "reference", release.Reference, "error", err)
		return
	}
	if err := s.queueClient.EnqueueWebhookEvent(queue.WebhookEventPayload{
		MerchantID: release.MerchantID,
		Event:      constants.WebhookEventReserveReleased,
		Data:       data,
	}); err != nil {
		logger.Warnw("webhook_event_enqueue_failed",
			"reference", release.Reference,
			"event", constants.WebhookEventReserveReleased,
			"error", err,
		)
	}
}

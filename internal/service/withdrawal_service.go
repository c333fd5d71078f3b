package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"

	"gorm.io/gorm"
)

// WithdrawalService runs the two-phase manual-transfer cash-out.
// Requesting holds the funds immediately; approval commits an
// operator to the bank transfer; completion only finalizes the
// record. Approved withdrawals can no longer be rejected.
type WithdrawalService struct {
	withdrawalRepo repository.WithdrawalRepository
	ledgerRepo     repository.LedgerRepository
	merchantRepo   repository.MerchantRepository
	ledgerSvc      *LedgerService
	rateSvc        *RateService
	queueClient    *queue.Client
}

// WithdrawalRequestInput is a merchant cash-out request.
type WithdrawalRequestInput struct {
	MerchantID  uint
	Amount      models.Money
	BankDetails models.JSON
}

// NewWithdrawalService creates the withdrawal service.
func NewWithdrawalService(
	withdrawalRepo repository.WithdrawalRepository,
	ledgerRepo repository.LedgerRepository,
	merchantRepo repository.MerchantRepository,
	ledgerSvc *LedgerService,
	rateSvc *RateService,
	queueClient *queue.Client,
) *WithdrawalService {
	return &WithdrawalService{
		withdrawalRepo: withdrawalRepo,
		ledgerRepo:     ledgerRepo,
		merchantRepo:   merchantRepo,
		ledgerSvc:      ledgerSvc,
		rateSvc:        rateSvc,
		queueClient:    queueClient,
	}
}

// Request creates a pending withdrawal and holds the amount. The
// balance re-read and the hold write share the merchant row lock, so
// two concurrent requests can never both pass the sufficiency check.
func (s *WithdrawalService) Request(input WithdrawalRequestInput) (*models.Withdrawal, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	rates, err := s.rateSvc.Resolve(input.MerchantID)
	if err != nil {
		return nil, err
	}
	fee := rates.WithdrawalFee
	net := input.Amount.Sub(fee)
	if !net.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var withdrawal *models.Withdrawal
	err = s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		merchant, err := s.merchantRepo.WithTx(tx).GetByIDForUpdate(input.MerchantID)
		if err != nil {
			return err
		}
		if merchant == nil {
			return ErrMerchantNotFound
		}
		if merchant.Status != constants.MerchantStatusActive {
			return ErrMerchantInactive
		}

		balance, err := s.ledgerSvc.BalanceOfTx(tx, input.MerchantID)
		if err != nil {
			return err
		}
		if input.Amount.Cents() > balance.Available.Cents() {
			return ErrInsufficientBalance
		}

		now := time.Now()
		withdrawal = &models.Withdrawal{
			MerchantID:  input.MerchantID,
			Amount:      input.Amount,
			FeeAmount:   fee,
			NetAmount:   net,
			BankDetails: input.BankDetails,
			Status:      constants.WithdrawalStatusPending,
			RequestedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.withdrawalRepo.WithTx(tx).Create(withdrawal); err != nil {
			return err
		}

		hold := models.LedgerEntry{
			MerchantID:          input.MerchantID,
			Kind:                constants.LedgerKindWithdrawalHold,
			Amount:              input.Amount,
			Reference:           withdrawalHoldReference(withdrawal.ID),
			RelatedWithdrawalID: &withdrawal.ID,
			Remark:              "withdrawal hold",
			CreatedAt:           now,
		}
		return s.ledgerRepo.WithTx(tx).CreateEntry(&hold)
	})
	if err != nil {
		return nil, err
	}

	s.ledgerSvc.InvalidateBalance(input.MerchantID)
	logger.Infow("withdrawal_requested",
		"withdrawal_id", withdrawal.ID,
		"merchant_id", input.MerchantID,
		"amount", input.Amount.String(),
	)
	return withdrawal, nil
}

// Approve marks a pending withdrawal as operator-committed. No
// balance change; the hold already removed the funds.
func (s *WithdrawalService) Approve(withdrawalID, operatorID uint) (*models.Withdrawal, error) {
	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		w, err := s.withdrawalRepo.WithTx(tx).GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWithdrawalNotFound
		}
		if w.Status != constants.WithdrawalStatusPending {
			return ErrWithdrawalStateConflict
		}

		now := time.Now()
		w.Status = constants.WithdrawalStatusApproved
		w.ApprovedAt = &now
		w.ApprovedByID = &operatorID
		w.UpdatedAt = now
		if err := s.withdrawalRepo.WithTx(tx).Update(w); err != nil {
			return err
		}
		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("withdrawal_approved", "withdrawal_id", withdrawal.ID, "operator_id", operatorID)
	return withdrawal, nil
}

// Complete confirms the manual bank transfer happened. The marker
// entry carries no balance delta; it closes the audit trail.
func (s *WithdrawalService) Complete(withdrawalID uint) (*models.Withdrawal, error) {
	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		w, err := s.withdrawalRepo.WithTx(tx).GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWithdrawalNotFound
		}
		if w.Status != constants.WithdrawalStatusApproved {
			return ErrWithdrawalStateConflict
		}

		now := time.Now()
		marker := models.LedgerEntry{
			MerchantID:          w.MerchantID,
			Kind:                constants.LedgerKindWithdrawalComplete,
			Amount:              w.Amount,
			Reference:           withdrawalCompleteReference(w.ID),
			RelatedWithdrawalID: &w.ID,
			Remark:              "withdrawal completed",
			CreatedAt:           now,
		}
		if err := s.ledgerRepo.WithTx(tx).CreateEntry(&marker); err != nil {
			return err
		}

		w.Status = constants.WithdrawalStatusCompleted
		w.CompletedAt = &now
		w.UpdatedAt = now
		if err := s.withdrawalRepo.WithTx(tx).Update(w); err != nil {
			return err
		}
		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_completed", "withdrawal_id", withdrawal.ID, "merchant_id", withdrawal.MerchantID)
	s.notify(withdrawal, constants.WebhookEventWithdrawalCompleted)
	return withdrawal, nil
}

// Reject refuses a pending withdrawal and restores the held amount
// with a matching credit. Approved withdrawals cannot be rejected.
func (s *WithdrawalService) Reject(withdrawalID uint, reason string) (*models.Withdrawal, error) {
	reason = strings.TrimSpace(reason)
	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		w, err := s.withdrawalRepo.WithTx(tx).GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWithdrawalNotFound
		}
		if w.Status != constants.WithdrawalStatusPending {
			return ErrWithdrawalStateConflict
		}

		if _, err := s.merchantRepo.WithTx(tx).GetByIDForUpdate(w.MerchantID); err != nil {
			return err
		}

		now := time.Now()
		reversal := models.LedgerEntry{
			MerchantID:          w.MerchantID,
			Kind:                constants.LedgerKindCredit,
			Amount:              w.Amount,
			Reference:           withdrawalReversalReference(w.ID),
			RelatedWithdrawalID: &w.ID,
			Remark:              "withdrawal rejected, hold reversed",
			CreatedAt:           now,
		}
		if err := s.ledgerRepo.WithTx(tx).CreateEntry(&reversal); err != nil {
			return err
		}

		w.Status = constants.WithdrawalStatusRejected
		w.RejectionReason = reason
		w.RejectedAt = &now
		w.UpdatedAt = now
		if err := s.withdrawalRepo.WithTx(tx).Update(w); err != nil {
			return err
		}
		withdrawal = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledgerSvc.InvalidateBalance(withdrawal.MerchantID)
	logger.Infow("withdrawal_rejected",
		"withdrawal_id", withdrawal.ID,
		"merchant_id", withdrawal.MerchantID,
		"reason", reason,
	)
	s.notify(withdrawal, constants.WebhookEventWithdrawalRejected)
	return withdrawal, nil
}

// Get fetches a withdrawal scoped to a merchant.
func (s *WithdrawalService) Get(id, merchantID uint) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByIDAndMerchant(id, merchantID)
	if err != nil {
		return nil, err
	}
	if withdrawal == nil {
		return nil, ErrWithdrawalNotFound
	}
	return withdrawal, nil
}

// GetAdmin fetches a withdrawal without merchant scoping.
func (s *WithdrawalService) GetAdmin(id uint) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if withdrawal == nil {
		return nil, ErrWithdrawalNotFound
	}
	return withdrawal, nil
}

// List pages through withdrawals.
func (s *WithdrawalService) List(filter repository.WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	return s.withdrawalRepo.List(filter)
}

func (s *WithdrawalService) notify(withdrawal *models.Withdrawal, event string) {
	if withdrawal == nil {
		return
	}
	data, err := json.Marshal(withdrawal)
	if err != nil {
		logger.Warnw("webhook_payload_marshal_failed", "withdrawal_id", withdrawal.ID, "error", err)
		return
	}
	if err := s.queueClient.EnqueueWebhookEvent(queue.WebhookEventPayload{
		MerchantID: withdrawal.MerchantID,
		Event:      event,
		Data:       data,
	}); err != nil {
		logger.Warnw("webhook_event_enqueue_failed",
			"withdrawal_id", withdrawal.ID,
			"event", event,
			"error", err,
		)
	}
}

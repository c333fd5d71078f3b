package service

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"

	"gorm.io/gorm"
)

// SettlementService turns confirmed-payment events into ledger
// entries. One payment settles exactly once: the gateway payment
// number is unique on the payment row and the entry references are
// unique on the ledger, so replays collapse into no-ops.
type SettlementService struct {
	paymentRepo   repository.PaymentRepository
	ledgerRepo    repository.LedgerRepository
	merchantRepo  repository.MerchantRepository
	affiliateRepo repository.AffiliateRepository
	productRepo   repository.ProductRepository
	ledgerSvc     *LedgerService
	rateSvc       *RateService
	feeCalc       *FeeCalculator
	queueClient   *queue.Client
}

// SettlementInput is one inbound payment confirmation.
type SettlementInput struct {
	PaymentNo       string
	MerchantID      uint
	GrossValue      models.Money
	BillingType     string
	Installments    int
	AffiliateLinkID *uint
	ConfirmedAt     time.Time
}

// NewSettlementService creates the settlement service.
func NewSettlementService(
	paymentRepo repository.PaymentRepository,
	ledgerRepo repository.LedgerRepository,
	merchantRepo repository.MerchantRepository,
	affiliateRepo repository.AffiliateRepository,
	productRepo repository.ProductRepository,
	ledgerSvc *LedgerService,
	rateSvc *RateService,
	feeCalc *FeeCalculator,
	queueClient *queue.Client,
) *SettlementService {
	return &SettlementService{
		paymentRepo:   paymentRepo,
		ledgerRepo:    ledgerRepo,
		merchantRepo:  merchantRepo,
		affiliateRepo: affiliateRepo,
		productRepo:   productRepo,
		ledgerSvc:     ledgerSvc,
		rateSvc:       rateSvc,
		feeCalc:       feeCalc,
		queueClient:   queueClient,
	}
}

// Settle processes one confirmed payment. Replays of an already
// settled or rejected payment return the recorded row unchanged.
// Monetary validation failures record the payment as rejected; those
// are terminal and not retryable. Infrastructure failures leave no
// settled state behind and must be retried by the caller.
func (s *SettlementService) Settle(input SettlementInput) (*models.Payment, error) {
	paymentNo := strings.TrimSpace(input.PaymentNo)
	if paymentNo == "" {
		return nil, ErrPaymentNotFound
	}

	if existing, err := s.paymentRepo.GetByPaymentNo(paymentNo); err != nil {
		return nil, err
	} else if existing != nil && existing.Status != constants.PaymentStatusReceived {
		logger.Infow("settlement_replay_ignored",
			"payment_no", paymentNo,
			"status", existing.Status,
		)
		return existing, nil
	}

	merchant, err := s.merchantRepo.GetByID(input.MerchantID)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}
	if merchant.Status != constants.MerchantStatusActive {
		return nil, ErrMerchantInactive
	}

	link, productID, err := s.resolveAffiliate(input.AffiliateLinkID, input.MerchantID)
	if err != nil {
		if rejectErr := s.recordRejected(input, err); rejectErr != nil {
			return nil, rejectErr
		}
		return nil, err
	}

	rates, err := s.rateSvc.Resolve(input.MerchantID)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.feeCalc.Calculate(input.GrossValue, input.BillingType, input.Installments, rates)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrUnsupportedBillingType) {
			if rejectErr := s.recordRejected(input, err); rejectErr != nil {
				return nil, rejectErr
			}
		}
		return nil, err
	}
	split := SplitCommission(breakdown.NetAmount, link)

	confirmedAt := input.ConfirmedAt
	if confirmedAt.IsZero() {
		confirmedAt = time.Now()
	}
	installments := input.Installments
	if installments < 1 {
		installments = 1
	}
	feeBearer := constants.FeeBearerSeller
	if productID != nil {
		if product, err := s.productRepo.GetByID(*productID); err == nil && product != nil {
			feeBearer = product.FeeBearer
		}
	}

	var payment *models.Payment
	var holdEntryID uint
	err = s.paymentRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := s.merchantRepo.WithTx(tx).GetByIDForUpdate(input.MerchantID); err != nil {
			return err
		}

		existing, err := s.paymentRepo.WithTx(tx).GetByPaymentNoForUpdate(paymentNo)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != constants.PaymentStatusReceived {
			payment = existing
			return ErrDuplicateSettlement
		}

		now := time.Now()
		if existing == nil {
			existing = &models.Payment{
				PaymentNo:       paymentNo,
				MerchantID:      input.MerchantID,
				ProductID:       productID,
				AffiliateLinkID: input.AffiliateLinkID,
				GrossValue:      input.GrossValue,
				BillingType:     input.BillingType,
				Installments:    installments,
				Status:          constants.PaymentStatusReceived,
				FeeBearer:       feeBearer,
				ConfirmedAt:     confirmedAt,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.paymentRepo.WithTx(tx).Create(existing); err != nil {
				return err
			}
		}

		entries := []models.LedgerEntry{
			{
				MerchantID:       input.MerchantID,
				Kind:             constants.LedgerKindCredit,
				Amount:           split.OwnerShare,
				Reference:        paymentCreditReference(paymentNo),
				RelatedPaymentID: &existing.ID,
				Remark:           "settlement net credit",
				CreatedAt:        now,
			},
		}
		if link != nil && split.AffiliateShare.IsPositive() {
			entries = append(entries, models.LedgerEntry{
				MerchantID:       link.AffiliateMerchantID,
				Kind:             constants.LedgerKindCredit,
				Amount:           split.AffiliateShare,
				Reference:        paymentAffiliateCreditReference(paymentNo),
				RelatedPaymentID: &existing.ID,
				Remark:           "affiliate commission",
				CreatedAt:        now,
			})
		}
		hold := models.LedgerEntry{
			MerchantID:       input.MerchantID,
			Kind:             constants.LedgerKindReserveHold,
			Amount:           breakdown.ReserveAmount,
			Reference:        paymentReserveHoldReference(paymentNo),
			RelatedPaymentID: &existing.ID,
			ReserveMaturesAt: &breakdown.ReserveMaturesAt,
			Remark:           "settlement reserve hold",
			CreatedAt:        now,
		}

		ledger := s.ledgerRepo.WithTx(tx)
		if err := ledger.CreateEntries(entries); err != nil {
			return err
		}
		if breakdown.ReserveAmount.IsPositive() {
			if err := ledger.CreateEntry(&hold); err != nil {
				return err
			}
			holdEntryID = hold.ID
		}

		settledAt := now
		existing.Status = constants.PaymentStatusSettled
		existing.PlatformFee = breakdown.PlatformFee
		existing.ReserveAmount = breakdown.ReserveAmount
		existing.NetAmount = breakdown.NetAmount
		existing.SettledAt = &settledAt
		existing.UpdatedAt = now
		if err := s.paymentRepo.WithTx(tx).Update(existing); err != nil {
			return err
		}
		payment = existing
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSettlement) && payment != nil {
			return payment, nil
		}
		return nil, err
	}

	s.ledgerSvc.InvalidateBalance(input.MerchantID)
	if link != nil {
		s.ledgerSvc.InvalidateBalance(link.AffiliateMerchantID)
	}
	s.afterSettled(payment, holdEntryID, breakdown)
	return payment, nil
}

func (s *SettlementService) resolveAffiliate(linkID *uint, merchantID uint) (*models.AffiliateLink, *uint, error) {
	if linkID == nil || *linkID == 0 {
		return nil, nil, nil
	}
	link, err := s.affiliateRepo.GetByID(*linkID)
	if err != nil {
		return nil, nil, err
	}
	if link == nil {
		return nil, nil, ErrAffiliateLinkNotFound
	}
	if !link.Active {
		return nil, nil, ErrAffiliateLinkInvalid
	}
	product, err := s.productRepo.GetByID(link.ProductID)
	if err != nil {
		return nil, nil, err
	}
	// The link must point at a product owned by the paying merchant,
	// otherwise the commission would credit against someone else's
	// sale.
	if product == nil || product.MerchantID != merchantID {
		return nil, nil, ErrAffiliateLinkInvalid
	}
	return link, &link.ProductID, nil
}

func (s *SettlementService) recordRejected(input SettlementInput, cause error) error {
	paymentNo := strings.TrimSpace(input.PaymentNo)
	confirmedAt := input.ConfirmedAt
	if confirmedAt.IsZero() {
		confirmedAt = time.Now()
	}
	installments := input.Installments
	if installments < 1 {
		installments = 1
	}
	now := time.Now()
	payment := &models.Payment{
		PaymentNo:       paymentNo,
		MerchantID:      input.MerchantID,
		AffiliateLinkID: input.AffiliateLinkID,
		GrossValue:      input.GrossValue,
		BillingType:     input.BillingType,
		Installments:    installments,
		Status:          constants.PaymentStatusRejected,
		RejectReason:    cause.Error(),
		ConfirmedAt:     confirmedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		// A concurrent replay may have recorded it first.
		existing, getErr := s.paymentRepo.GetByPaymentNo(paymentNo)
		if getErr == nil && existing != nil {
			return nil
		}
		return err
	}
	logger.Warnw("settlement_rejected",
		"payment_no", paymentNo,
		"merchant_id", input.MerchantID,
		"reason", cause.Error(),
	)
	return nil
}

func (s *SettlementService) afterSettled(payment *models.Payment, holdEntryID uint, breakdown *FeeBreakdown) {
	if payment == nil {
		return
	}
	if holdEntryID != 0 {
		delay := time.Until(breakdown.ReserveMaturesAt)
		if err := s.queueClient.EnqueueReserveRelease(queue.ReserveReleasePayload{
			HoldEntryID: holdEntryID,
		}, delay); err != nil {
			logger.Warnw("reserve_release_enqueue_failed",
				"payment_no", payment.PaymentNo,
				"hold_entry_id", holdEntryID,
				"error", err,
			)
		}
	}

	data, err := json.Marshal(payment)
	if err != nil {
		logger.Warnw("webhook_payload_marshal_failed", "payment_no", payment.PaymentNo, "error", err)
		return
	}
	if err := s.queueClient.EnqueueWebhookEvent(queue.WebhookEventPayload{
		MerchantID: payment.MerchantID,
		Event:      constants.WebhookEventPaymentSettled,
		Data:       data,
	}); err != nil {
		logger.Warnw("webhook_event_enqueue_failed",
			"payment_no", payment.PaymentNo,
			"event", constants.WebhookEventPaymentSettled,
			"error", err,
		)
	}
}

// GetPayment fetches a payment scoped to a merchant.
func (s *SettlementService) GetPayment(id, merchantID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByIDAndMerchant(id, merchantID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments pages through payments.
func (s *SettlementService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(filter)
}

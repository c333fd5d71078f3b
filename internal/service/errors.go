package service

import "errors"

// Sentinel errors mapped onto HTTP responses by the handler layer.
var (
	ErrMerchantNotFound        = errors.New("merchant not found")
	ErrMerchantInactive        = errors.New("merchant inactive")
	ErrOperatorNotFound        = errors.New("operator not found")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrUnsupportedBillingType  = errors.New("unsupported billing type")
	ErrInvalidRate             = errors.New("invalid rate")
	ErrRateSetNotFound         = errors.New("rate set not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrDuplicateSettlement     = errors.New("payment already settled")
	ErrProductNotFound         = errors.New("product not found")
	ErrProductInactive         = errors.New("product inactive")
	ErrAffiliateLinkNotFound   = errors.New("affiliate link not found")
	ErrAffiliateLinkInvalid    = errors.New("affiliate link invalid")
	ErrSelfAffiliation         = errors.New("cannot affiliate own product")
	ErrDuplicateAffiliation    = errors.New("affiliation already exists")
	ErrInsufficientBalance     = errors.New("insufficient available balance")
	ErrWithdrawalNotFound      = errors.New("withdrawal not found")
	ErrWithdrawalStateConflict = errors.New("withdrawal state conflict")
	ErrLedgerEntryNotFound     = errors.New("ledger entry not found")
	ErrReserveAlreadyReleased  = errors.New("reserve already released")
	ErrReserveNotMatured       = errors.New("reserve not matured")
	ErrWebhookNotFound         = errors.New("webhook not found")
	ErrWebhookInvalidURL       = errors.New("webhook url invalid")
	ErrWebhookDeliveryFailed   = errors.New("webhook delivery failed")
)

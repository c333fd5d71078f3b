package repository

import "time"

// MerchantListFilter filters merchant listings.
type MerchantListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentListFilter filters payment listings.
type PaymentListFilter struct {
	Page          int
	PageSize      int
	MerchantID    uint
	PaymentNo     string
	BillingType   string
	Status        string
	ConfirmedFrom *time.Time
	ConfirmedTo   *time.Time
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// LedgerListFilter filters ledger entry listings.
type LedgerListFilter struct {
	Page        int
	PageSize    int
	MerchantID  uint
	Kind        string
	Reference   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WithdrawalListFilter filters withdrawal listings.
type WithdrawalListFilter struct {
	Page        int
	PageSize    int
	MerchantID  uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ProductListFilter filters product listings.
type ProductListFilter struct {
	Page       int
	PageSize   int
	MerchantID uint
	Search     string
	OnlyActive bool
}

// AffiliateLinkListFilter filters affiliate link listings.
type AffiliateLinkListFilter struct {
	Page                int
	PageSize            int
	ProductID           uint
	AffiliateMerchantID uint
	OnlyActive          bool
}

// OperatorListFilter filters operator listings.
type OperatorListFilter struct {
	Page     int
	PageSize int
	Keyword  string
}

// RateSetListFilter filters rate set listings.
type RateSetListFilter struct {
	Page       int
	PageSize   int
	MerchantID *uint
	OnlyActive bool
}

// WebhookDeliveryListFilter filters webhook delivery listings.
type WebhookDeliveryListFilter struct {
	Page        int
	PageSize    int
	MerchantID  uint
	WebhookID   uint
	Event       string
	OnlyFailed  bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

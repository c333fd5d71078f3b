package constants

// Billing types accepted on inbound payment confirmations
const (
	BillingTypePix    = "pix"
	BillingTypeCard   = "card"
	BillingTypeBoleto = "boleto"
)

// Payment settlement states
const (
	PaymentStatusReceived = "received"
	PaymentStatusSettled  = "settled"
	PaymentStatusRejected = "rejected"
)

// Ledger entry kinds
const (
	LedgerKindCredit             = "credit"
	LedgerKindDebit              = "debit"
	LedgerKindReserveHold        = "reserve_hold"
	LedgerKindReserveRelease     = "reserve_release"
	LedgerKindWithdrawalHold     = "withdrawal_hold"
	LedgerKindWithdrawalComplete = "withdrawal_complete"
	LedgerKindAdjustment         = "adjustment"
)

// Withdrawal states
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

// Webhook subscription states
const (
	WebhookStatusActive   = "active"
	WebhookStatusInactive = "inactive"
	WebhookStatusFailed   = "failed"
)

// Webhook event types
const (
	WebhookEventPaymentSettled      = "payment.settled"
	WebhookEventReserveReleased     = "reserve.released"
	WebhookEventWithdrawalCompleted = "withdrawal.completed"
	WebhookEventWithdrawalRejected  = "withdrawal.rejected"
)

// Merchant account states
const (
	MerchantStatusActive   = "active"
	MerchantStatusInactive = "inactive"
)

// Fee bearer values reported on settlements
const (
	FeeBearerSeller = "seller"
	FeeBearerBuyer  = "buyer"
)

// Queue names
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// Asynq task types
const (
	TaskWebhookEvent   = "webhook:event"
	TaskWebhookDeliver = "webhook:deliver"
	TaskReserveRelease = "reserve:release"
)

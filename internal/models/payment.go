package models

import (
	"time"
)

// Payment is one confirmed charge as reported by the gateway. It is
// immutable once recorded and is the idempotency anchor for exactly
// one settlement: PaymentNo carries the gateway's payment id and is
// unique, so a replayed confirmation maps onto the same row.
type Payment struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	PaymentNo       string     `gorm:"uniqueIndex;not null" json:"payment_no"` // gateway payment id
	MerchantID      uint       `gorm:"index;not null" json:"merchant_id"`
	ProductID       *uint      `gorm:"index" json:"product_id,omitempty"`
	AffiliateLinkID *uint      `gorm:"index" json:"affiliate_link_id,omitempty"`
	GrossValue      Money      `gorm:"not null" json:"gross_value"`
	BillingType     string     `gorm:"type:varchar(16);not null;index" json:"billing_type"`
	Installments    int        `gorm:"not null;default:1" json:"installments"`
	Status          string     `gorm:"type:varchar(16);not null;index" json:"status"`
	FeeBearer       string     `gorm:"type:varchar(16)" json:"fee_bearer"` // reporting only
	PlatformFee     Money      `gorm:"not null;default:0" json:"platform_fee"`
	ReserveAmount   Money      `gorm:"not null;default:0" json:"reserve_amount"`
	NetAmount       Money      `gorm:"not null;default:0" json:"net_amount"`
	RejectReason    string     `gorm:"type:varchar(255)" json:"reject_reason,omitempty"`
	ConfirmedAt     time.Time  `gorm:"index" json:"confirmed_at"`
	SettledAt       *time.Time `gorm:"index" json:"settled_at,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName sets the table name.
func (Payment) TableName() string {
	return "payments"
}

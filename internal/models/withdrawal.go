package models

import (
	"time"
)

// Withdrawal is a merchant cash-out request fulfilled by a manual
// bank transfer. Status only moves forward: pending -> approved ->
// completed, or pending -> rejected. Approval commits the operator
// to the transfer, so approved withdrawals cannot be rejected.
type Withdrawal struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	MerchantID      uint       `gorm:"index;not null" json:"merchant_id"`
	Amount          Money      `gorm:"not null" json:"amount"`               // held from available balance
	FeeAmount       Money      `gorm:"not null;default:0" json:"fee_amount"` // netted out of the payout
	NetAmount       Money      `gorm:"not null" json:"net_amount"`           // Amount - FeeAmount, transferred out
	BankDetails     JSON       `gorm:"type:json" json:"bank_details"`
	Status          string     `gorm:"type:varchar(16);not null;index" json:"status"`
	RejectionReason string     `gorm:"type:varchar(255)" json:"rejection_reason,omitempty"`
	RequestedAt     time.Time  `gorm:"index" json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	ApprovedByID    *uint      `json:"approved_by_id,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName sets the table name.
func (Withdrawal) TableName() string {
	return "withdrawals"
}

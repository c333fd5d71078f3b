package models

import (
	"time"
)

// RateSet is a fee schedule. A row with MerchantID == nil holds the
// platform defaults; at most one active override exists per merchant.
// Rows are never edited in place: replacing an override deactivates
// the old row and creates a new one, versioned by CreatedAt.
type RateSet struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	MerchantID    *uint     `gorm:"index:idx_rate_sets_merchant_active" json:"merchant_id,omitempty"` // nil = platform defaults
	PixRate       Percent   `gorm:"type:decimal(6,2);not null;default:0" json:"pix_rate"`             // percent of gross
	CardRate      Percent   `gorm:"type:decimal(6,2);not null;default:0" json:"card_rate"`            // percent of gross
	BoletoRate    Percent   `gorm:"type:decimal(6,2);not null;default:0" json:"boleto_rate"`          // percent of gross
	FixedFee      Money     `gorm:"not null;default:0" json:"fixed_fee"`                              // flat fee per payment, cents
	WithdrawalFee Money     `gorm:"not null;default:0" json:"withdrawal_fee"`                         // flat fee per withdrawal, cents
	Active        bool      `gorm:"index:idx_rate_sets_merchant_active" json:"active"`
	CreatedByID   *uint     `json:"created_by_id,omitempty"` // operator who created the version
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (RateSet) TableName() string {
	return "rate_sets"
}

// RateFor returns the percentage applicable to a billing type, or
// false when the billing type is unknown.
func (r RateSet) RateFor(billingType string) (Percent, bool) {
	switch billingType {
	case "pix":
		return r.PixRate, true
	case "card":
		return r.CardRate, true
	case "boleto":
		return r.BoletoRate, true
	default:
		return Percent{}, false
	}
}

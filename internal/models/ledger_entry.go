package models

import (
	"time"
)

// LedgerEntry is one immutable balance-affecting event. Entries are
// only ever appended; reversals are new entries. Reference is a
// natural dedup key ("payment:<no>:credit", "withdrawal:<id>:hold",
// "reserve_release:<hold-id>") with a unique index, so replays and
// concurrent writers collide on the database instead of
// double-applying. Amounts are positive except for adjustments,
// which are signed.
type LedgerEntry struct {
	ID                  uint       `gorm:"primarykey" json:"id"`
	MerchantID          uint       `gorm:"index;not null;index:idx_ledger_merchant_kind" json:"merchant_id"`
	Kind                string     `gorm:"type:varchar(32);not null;index;index:idx_ledger_merchant_kind" json:"kind"`
	Amount              Money      `gorm:"not null" json:"amount"`
	Reference           string     `gorm:"uniqueIndex;not null" json:"reference"`
	RelatedPaymentID    *uint      `gorm:"index" json:"related_payment_id,omitempty"`
	RelatedWithdrawalID *uint      `gorm:"index" json:"related_withdrawal_id,omitempty"`
	ReserveMaturesAt    *time.Time `gorm:"index" json:"reserve_matures_at,omitempty"` // reserve_hold only
	Remark              string     `gorm:"type:varchar(255)" json:"remark,omitempty"`
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Balance is the derived per-merchant view. Never stored; always a
// fold over ledger entries.
type Balance struct {
	Available Money `json:"available"`
	Pending   Money `json:"pending"`
	Total     Money `json:"total"`
}

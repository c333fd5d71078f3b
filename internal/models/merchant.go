package models

import (
	"time"

	"gorm.io/gorm"
)

// Merchant is a platform seller account. Balances are never stored
// here; they are derived from ledger entries. The row itself doubles
// as the per-merchant serialization point for balance-mutating
// transactions (SELECT ... FOR UPDATE).
type Merchant struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Name         string         `gorm:"not null" json:"name"`
	Document     string         `gorm:"index" json:"document"` // CPF/CNPJ
	PasswordHash string         `gorm:"not null" json:"-"`
	Status       string         `gorm:"default:'active';index" json:"status"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (Merchant) TableName() string {
	return "merchants"
}

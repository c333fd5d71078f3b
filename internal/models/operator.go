package models

import (
	"time"

	"gorm.io/gorm"
)

// Operator is a back-office account (platform admin or delegated
// manager). Role grants live in casbin, not here.
type Operator struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	IsSuper      bool           `gorm:"default:false" json:"is_super"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (Operator) TableName() string {
	return "operators"
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is a sellable item a merchant exposes through checkout
// links. Only the attributes settlement needs live here: the price,
// who nominally bears the fee, and the commission percentage offered
// to affiliates (captured onto links at affiliation time).
type Product struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	MerchantID        uint           `gorm:"index;not null" json:"merchant_id"`
	Name              string         `gorm:"not null" json:"name"`
	Price             Money          `gorm:"not null;default:0" json:"price"`
	FeeBearer         string         `gorm:"type:varchar(16);not null;default:'seller'" json:"fee_bearer"`
	CommissionPercent Percent        `gorm:"type:decimal(6,2);not null;default:0" json:"commission_percent"`
	Active            bool           `gorm:"default:true;index" json:"active"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Merchant Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`
}

// TableName sets the table name.
func (Product) TableName() string {
	return "products"
}

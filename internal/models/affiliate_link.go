package models

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateLink lets a merchant promote another merchant's product
// for a commission split. CommissionPercent is captured from the
// product when the link is created and never re-read, so historical
// settlements replay deterministically.
type AffiliateLink struct {
	ID                  uint           `gorm:"primarykey" json:"id"`
	Code                string         `gorm:"uniqueIndex;not null" json:"code"`
	ProductID           uint           `gorm:"index;not null;index:idx_affiliate_links_unique,unique" json:"product_id"`
	AffiliateMerchantID uint           `gorm:"index;not null;index:idx_affiliate_links_unique,unique" json:"affiliate_merchant_id"`
	CommissionPercent   Percent        `gorm:"type:decimal(6,2);not null;default:0" json:"commission_percent"`
	Active              bool           `gorm:"default:true;index" json:"active"`
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`

	Product           Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	AffiliateMerchant Merchant `gorm:"foreignKey:AffiliateMerchantID" json:"affiliate_merchant,omitempty"`
}

// TableName sets the table name.
func (AffiliateLink) TableName() string {
	return "affiliate_links"
}

package models

import (
	"time"
)

// WebhookDelivery is one delivery attempt, recorded for health
// inspection regardless of outcome.
type WebhookDelivery struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	WebhookID  uint      `gorm:"index;not null" json:"webhook_id"`
	MerchantID uint      `gorm:"index;not null" json:"merchant_id"`
	Event      string    `gorm:"type:varchar(64);not null;index" json:"event"`
	Payload    JSON      `gorm:"type:json" json:"payload"`
	StatusCode int       `gorm:"not null;default:0" json:"status_code"` // 0 = transport failure
	Success    bool      `gorm:"index" json:"success"`
	Error      string    `gorm:"type:varchar(255)" json:"error,omitempty"`
	DurationMS int64     `gorm:"not null;default:0" json:"duration_ms"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}

package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Webhook is a merchant-registered delivery endpoint. Events holds a
// comma-separated list of subscribed event types; FailureCount tracks
// consecutive failures and flips the status to failed past the
// configured threshold.
type Webhook struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	MerchantID    uint           `gorm:"index;not null" json:"merchant_id"`
	URL           string         `gorm:"not null" json:"url"`
	Secret        string         `gorm:"not null" json:"-"`
	Events        string         `gorm:"not null" json:"events"`
	Status        string         `gorm:"type:varchar(16);not null;index" json:"status"`
	FailureCount  int            `gorm:"not null;default:0" json:"failure_count"`
	LastSuccessAt *time.Time     `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time     `json:"last_failure_at,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (Webhook) TableName() string {
	return "webhooks"
}

// SubscribedTo reports whether the webhook subscribes to an event
// type. An empty Events list means all events.
func (w Webhook) SubscribedTo(event string) bool {
	events := strings.TrimSpace(w.Events)
	if events == "" {
		return true
	}
	for _, item := range strings.Split(events, ",") {
		if strings.TrimSpace(item) == event {
			return true
		}
	}
	return false
}

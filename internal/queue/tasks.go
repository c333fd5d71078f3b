package queue

import (
	"encoding/json"

	"github.com/nexpag/nexpag/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskWebhookEvent fans a ledger event out to merchant endpoints
	TaskWebhookEvent = constants.TaskWebhookEvent
	// TaskWebhookDeliver delivers one payload to one endpoint
	TaskWebhookDeliver = constants.TaskWebhookDeliver
	// TaskReserveRelease releases one matured reserve hold
	TaskReserveRelease = constants.TaskReserveRelease
)

// WebhookEventPayload is the fan-out task payload.
type WebhookEventPayload struct {
	MerchantID uint            `json:"merchant_id"`
	Event      string          `json:"event"`
	Data       json.RawMessage `json:"data"`
}

// WebhookDeliverPayload is the single-endpoint delivery payload.
type WebhookDeliverPayload struct {
	WebhookID  uint            `json:"webhook_id"`
	MerchantID uint            `json:"merchant_id"`
	Event      string          `json:"event"`
	Data       json.RawMessage `json:"data"`
}

// ReserveReleasePayload is the delayed reserve release payload.
type ReserveReleasePayload struct {
	HoldEntryID uint `json:"hold_entry_id"`
}

// NewWebhookEventTask creates the fan-out task.
func NewWebhookEventTask(payload WebhookEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookEvent, body), nil
}

// NewWebhookDeliverTask creates the delivery task.
func NewWebhookDeliverTask(payload WebhookDeliverPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDeliver, body), nil
}

// NewReserveReleaseTask creates the reserve release task.
func NewReserveReleaseTask(payload ReserveReleasePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReserveRelease, body), nil
}

package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/provider"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer handles async tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register wires task handlers into the mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskWebhookEvent, c.handleWebhookEvent)
	mux.HandleFunc(queue.TaskWebhookDeliver, c.handleWebhookDeliver)
	mux.HandleFunc(queue.TaskReserveRelease, c.handleReserveRelease)
}

func (c *Consumer) handleWebhookEvent(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_webhook_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.WebhookEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_webhook_event_unmarshal_failed", "error", err)
		return err
	}
	if payload.MerchantID == 0 || payload.Event == "" {
		logger.Debugw("worker_webhook_event_skip_invalid_payload",
			"merchant_id", payload.MerchantID,
			"event", payload.Event,
		)
		return nil
	}
	if c.WebhookService == nil {
		logger.Warnw("worker_webhook_event_skip_service_nil", "merchant_id", payload.MerchantID)
		return nil
	}
	if err := c.WebhookService.FanOut(payload); err != nil {
		logger.Warnw("worker_webhook_event_fanout_failed",
			"merchant_id", payload.MerchantID,
			"event", payload.Event,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleWebhookDeliver(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_webhook_deliver_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.WebhookDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_webhook_deliver_unmarshal_failed", "error", err)
		return err
	}
	if payload.WebhookID == 0 {
		logger.Debugw("worker_webhook_deliver_skip_invalid_payload", "webhook_id", payload.WebhookID)
		return nil
	}
	if c.WebhookService == nil {
		logger.Warnw("worker_webhook_deliver_skip_service_nil", "webhook_id", payload.WebhookID)
		return nil
	}
	// Delivery failures propagate so asynq retries with backoff up to
	// the per-task MaxRetry set at fan-out time.
	return c.WebhookService.Deliver(payload)
}

func (c *Consumer) handleReserveRelease(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reserve_release_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReserveReleasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reserve_release_unmarshal_failed", "error", err)
		return err
	}
	if payload.HoldEntryID == 0 {
		logger.Debugw("worker_reserve_release_skip_invalid_payload", "hold_entry_id", payload.HoldEntryID)
		return nil
	}
	if c.ReserveService == nil {
		logger.Warnw("worker_reserve_release_skip_service_nil", "hold_entry_id", payload.HoldEntryID)
		return nil
	}
	_, err := c.ReserveService.Release(payload.HoldEntryID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReserveAlreadyReleased):
			logger.Debugw("worker_reserve_release_skip_already_released", "hold_entry_id", payload.HoldEntryID)
			return nil
		case errors.Is(err, service.ErrLedgerEntryNotFound):
			logger.Debugw("worker_reserve_release_skip_entry_not_found", "hold_entry_id", payload.HoldEntryID)
			return nil
		case errors.Is(err, service.ErrReserveNotMatured):
			// Clock skew between enqueue and maturity; the retry or
			// the sweep picks it up.
			logger.Debugw("worker_reserve_release_not_matured_yet", "hold_entry_id", payload.HoldEntryID)
			return err
		default:
			logger.Warnw("worker_reserve_release_failed", "hold_entry_id", payload.HoldEntryID, "error", err)
			return err
		}
	}
	return nil
}

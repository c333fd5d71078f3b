package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/google/uuid"
)

const (
	webhookSignatureHeader = "X-Nexpag-Signature"
	webhookEventHeader     = "X-Nexpag-Event"
)

// WebhookService manages merchant endpoints and delivers event
// payloads. Payloads are signed with HMAC-SHA256 over the raw body;
// any non-2xx or transport failure counts against the endpoint, and
// past the consecutive-failure threshold the endpoint flips to
// failed and stops receiving events.
type WebhookService struct {
	webhookRepo repository.WebhookRepository
	queueClient *queue.Client
	httpClient  *http.Client
	maxRetries  int
	maxFailures int
}

// WebhookRegisterInput registers or replaces an endpoint.
type WebhookRegisterInput struct {
	MerchantID uint
	URL        string
	Events     []string
}

// WebhookUpdateInput mutates an existing endpoint.
type WebhookUpdateInput struct {
	MerchantID uint
	WebhookID  uint
	URL        string
	Events     []string
	Status     string
}

// WebhookEnvelope is the wire format delivered to endpoints.
type WebhookEnvelope struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// NewWebhookService creates the webhook service.
func NewWebhookService(
	webhookRepo repository.WebhookRepository,
	queueClient *queue.Client,
	cfg config.WebhookConfig,
) *WebhookService {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 10
	}
	return &WebhookService{
		webhookRepo: webhookRepo,
		queueClient: queueClient,
		httpClient:  &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		maxFailures: maxFailures,
	}
}

// Register creates an endpoint and returns it with the generated
// secret. The secret is only readable at registration time.
func (s *WebhookService) Register(input WebhookRegisterInput) (*models.Webhook, string, error) {
	endpoint, err := normalizeWebhookURL(input.URL)
	if err != nil {
		return nil, "", err
	}
	secret := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	now := time.Now()
	webhook := &models.Webhook{
		MerchantID: input.MerchantID,
		URL:        endpoint,
		Secret:     secret,
		Events:     strings.Join(normalizeEvents(input.Events), ","),
		Status:     constants.WebhookStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.webhookRepo.Create(webhook); err != nil {
		return nil, "", err
	}
	return webhook, secret, nil
}

// Update mutates an endpoint. Re-activating a failed endpoint resets
// its failure counter.
func (s *WebhookService) Update(input WebhookUpdateInput) (*models.Webhook, error) {
	webhook, err := s.webhookRepo.GetByIDAndMerchant(input.WebhookID, input.MerchantID)
	if err != nil {
		return nil, err
	}
	if webhook == nil {
		return nil, ErrWebhookNotFound
	}

	if strings.TrimSpace(input.URL) != "" {
		endpoint, err := normalizeWebhookURL(input.URL)
		if err != nil {
			return nil, err
		}
		webhook.URL = endpoint
	}
	if input.Events != nil {
		webhook.Events = strings.Join(normalizeEvents(input.Events), ",")
	}
	switch input.Status {
	case "":
	case constants.WebhookStatusActive:
		webhook.Status = constants.WebhookStatusActive
		webhook.FailureCount = 0
	case constants.WebhookStatusInactive:
		webhook.Status = constants.WebhookStatusInactive
	default:
		return nil, ErrWebhookNotFound
	}
	webhook.UpdatedAt = time.Now()
	if err := s.webhookRepo.Update(webhook); err != nil {
		return nil, err
	}
	return webhook, nil
}

// Delete removes an endpoint.
func (s *WebhookService) Delete(webhookID, merchantID uint) error {
	webhook, err := s.webhookRepo.GetByIDAndMerchant(webhookID, merchantID)
	if err != nil {
		return err
	}
	if webhook == nil {
		return ErrWebhookNotFound
	}
	return s.webhookRepo.Delete(webhook)
}

// ListForMerchant returns a merchant's endpoints.
func (s *WebhookService) ListForMerchant(merchantID uint) ([]models.Webhook, error) {
	return s.webhookRepo.ListByMerchant(merchantID)
}

// ListDeliveries pages through delivery attempts.
func (s *WebhookService) ListDeliveries(filter repository.WebhookDeliveryListFilter) ([]models.WebhookDelivery, int64, error) {
	return s.webhookRepo.ListDeliveries(filter)
}

// FanOut enqueues one delivery task per subscribed active endpoint.
func (s *WebhookService) FanOut(payload queue.WebhookEventPayload) error {
	webhooks, err := s.webhookRepo.ListActiveByMerchant(payload.MerchantID)
	if err != nil {
		return err
	}
	for _, webhook := range webhooks {
		if !webhook.SubscribedTo(payload.Event) {
			continue
		}
		if err := s.queueClient.EnqueueWebhookDeliver(queue.WebhookDeliverPayload{
			WebhookID:  webhook.ID,
			MerchantID: payload.MerchantID,
			Event:      payload.Event,
			Data:       payload.Data,
		}, s.maxRetries); err != nil {
			logger.Warnw("webhook_deliver_enqueue_failed",
				"webhook_id", webhook.ID,
				"event", payload.Event,
				"error", err,
			)
		}
	}
	return nil
}

// Deliver posts one payload to one endpoint and records the attempt.
// A returned error makes the queue retry with backoff.
func (s *WebhookService) Deliver(payload queue.WebhookDeliverPayload) error {
	webhook, err := s.webhookRepo.GetByID(payload.WebhookID)
	if err != nil {
		return err
	}
	if webhook == nil {
		// Endpoint deleted after fan-out; nothing to retry.
		return nil
	}
	if webhook.Status != constants.WebhookStatusActive {
		return nil
	}

	envelope := WebhookEnvelope{
		ID:        uuid.NewString(),
		Event:     payload.Event,
		CreatedAt: time.Now(),
		Data:      payload.Data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	started := time.Now()
	statusCode, deliveryErr := s.post(webhook, payload.Event, body)
	duration := time.Since(started)

	delivery := &models.WebhookDelivery{
		WebhookID:  webhook.ID,
		MerchantID: webhook.MerchantID,
		Event:      payload.Event,
		Payload:    models.JSON(body),
		StatusCode: statusCode,
		Success:    deliveryErr == nil,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if deliveryErr != nil {
		delivery.Error = deliveryErr.Error()
	}
	if err := s.webhookRepo.CreateDelivery(delivery); err != nil {
		logger.Warnw("webhook_delivery_record_failed", "webhook_id", webhook.ID, "error", err)
	}

	s.updateHealth(webhook, deliveryErr == nil)

	if deliveryErr != nil {
		logger.Warnw("webhook_delivery_failed",
			"webhook_id", webhook.ID,
			"event", payload.Event,
			"status_code", statusCode,
			"error", deliveryErr,
		)
		return fmt.Errorf("%w: %v", ErrWebhookDeliveryFailed, deliveryErr)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of a raw body under a secret.
// Receivers recompute this over the exact bytes they were sent.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *WebhookService) post(webhook *models.Webhook, event string, body []byte) (int, error) {
	req, err := http.NewRequest(http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhookEventHeader, event)
	req.Header.Set(webhookSignatureHeader, Sign(webhook.Secret, body))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (s *WebhookService) updateHealth(webhook *models.Webhook, success bool) {
	now := time.Now()
	if success {
		webhook.FailureCount = 0
		webhook.LastSuccessAt = &now
	} else {
		webhook.FailureCount++
		webhook.LastFailureAt = &now
		if webhook.FailureCount >= s.maxFailures {
			webhook.Status = constants.WebhookStatusFailed
			logger.Warnw("webhook_disabled_after_failures",
				"webhook_id", webhook.ID,
				"failure_count", webhook.FailureCount,
			)
		}
	}
	webhook.UpdatedAt = now
	if err := s.webhookRepo.Update(webhook); err != nil {
		logger.Warnw("webhook_health_update_failed", "webhook_id", webhook.ID, "error", err)
	}
}

func normalizeWebhookURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", ErrWebhookInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrWebhookInvalidURL
	}
	return parsed.String(), nil
}

func normalizeEvents(events []string) []string {
	out := make([]string, 0, len(events))
	for _, event := range events {
		event = strings.TrimSpace(event)
		if event == "" {
			continue
		}
		out = append(out, event)
	}
	return out
}

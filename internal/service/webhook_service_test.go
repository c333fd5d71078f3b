package service

import (
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type webhookTestEnv struct {
	db          *gorm.DB
	webhookSvc  *WebhookService
	webhookRepo *repository.GormWebhookRepository
}

func setupWebhookTest(t *testing.T, cfg config.WebhookConfig) *webhookTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:webhook_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Webhook{},
		&models.WebhookDelivery{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	webhookRepo := repository.NewWebhookRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}
	return &webhookTestEnv{
		db:          db,
		webhookSvc:  NewWebhookService(webhookRepo, queueClient, cfg),
		webhookRepo: webhookRepo,
	}
}

func TestWebhookRegisterAndUpdate(t *testing.T) {
	env := setupWebhookTest(t, config.WebhookConfig{TimeoutMS: 2000, MaxRetries: 3, MaxFailures: 10})

	webhook, secret, err := env.webhookSvc.Register(WebhookRegisterInput{
		MerchantID: 1,
		URL:        "https://merchant.example.com/hooks",
		Events:     []string{constants.WebhookEventPaymentSettled},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(secret) != 64 {
		t.Fatalf("secret length want 64 got %d", len(secret))
	}
	if webhook.Status != constants.WebhookStatusActive {
		t.Fatalf("status want active got %s", webhook.Status)
	}
	if !webhook.SubscribedTo(constants.WebhookEventPaymentSettled) {
		t.Fatalf("webhook should be subscribed to %s", constants.WebhookEventPaymentSettled)
	}
	if webhook.SubscribedTo(constants.WebhookEventWithdrawalCompleted) {
		t.Fatalf("webhook should not be subscribed to withdrawal events")
	}

	if _, _, err := env.webhookSvc.Register(WebhookRegisterInput{
		MerchantID: 1,
		URL:        "ftp://merchant.example.com/hooks",
	}); !errors.Is(err, ErrWebhookInvalidURL) {
		t.Fatalf("bad scheme want ErrWebhookInvalidURL got %v", err)
	}

	// Re-activation resets the failure counter.
	webhook.Status = constants.WebhookStatusFailed
	webhook.FailureCount = 10
	if err := env.webhookRepo.Update(webhook); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	updated, err := env.webhookSvc.Update(WebhookUpdateInput{
		MerchantID: 1,
		WebhookID:  webhook.ID,
		Status:     constants.WebhookStatusActive,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != constants.WebhookStatusActive || updated.FailureCount != 0 {
		t.Fatalf("re-activation should reset failures, got status %s count %d", updated.Status, updated.FailureCount)
	}

	// Merchant scoping on update and delete.
	if _, err := env.webhookSvc.Update(WebhookUpdateInput{MerchantID: 2, WebhookID: webhook.ID}); !errors.Is(err, ErrWebhookNotFound) {
		t.Fatalf("foreign update want ErrWebhookNotFound got %v", err)
	}
	if err := env.webhookSvc.Delete(webhook.ID, 2); !errors.Is(err, ErrWebhookNotFound) {
		t.Fatalf("foreign delete want ErrWebhookNotFound got %v", err)
	}
	if err := env.webhookSvc.Delete(webhook.ID, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}

func TestWebhookDeliverSignsPayload(t *testing.T) {
	env := setupWebhookTest(t, config.WebhookConfig{TimeoutMS: 2000, MaxRetries: 3, MaxFailures: 10})

	var gotBody []byte
	var gotSignature, gotEvent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Nexpag-Signature")
		gotEvent = r.Header.Get("X-Nexpag-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook, secret, err := env.webhookSvc.Register(WebhookRegisterInput{
		MerchantID: 1,
		URL:        server.URL,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	data, _ := json.Marshal(map[string]string{"payment_no": "np_w1"})
	if err := env.webhookSvc.Deliver(queue.WebhookDeliverPayload{
		WebhookID:  webhook.ID,
		MerchantID: 1,
		Event:      constants.WebhookEventPaymentSettled,
		Data:       data,
	}); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	if gotEvent != constants.WebhookEventPaymentSettled {
		t.Fatalf("event header want %s got %s", constants.WebhookEventPaymentSettled, gotEvent)
	}
	// The signature must verify over the exact raw body.
	if !hmac.Equal([]byte(gotSignature), []byte(Sign(secret, gotBody))) {
		t.Fatalf("signature mismatch: header %s", gotSignature)
	}

	var envelope WebhookEnvelope
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("envelope decode failed: %v", err)
	}
	if envelope.Event != constants.WebhookEventPaymentSettled || envelope.ID == "" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if string(envelope.Data) != string(data) {
		t.Fatalf("envelope data want %s got %s", data, envelope.Data)
	}

	deliveries, total, err := env.webhookSvc.ListDeliveries(repository.WebhookDeliveryListFilter{WebhookID: webhook.ID})
	if err != nil {
		t.Fatalf("list deliveries failed: %v", err)
	}
	if total != 1 || len(deliveries) != 1 {
		t.Fatalf("deliveries want 1 got %d", total)
	}
	if !deliveries[0].Success || deliveries[0].StatusCode != http.StatusOK {
		t.Fatalf("unexpected delivery record %+v", deliveries[0])
	}
}

func TestWebhookConsecutiveFailuresDisableEndpoint(t *testing.T) {
	env := setupWebhookTest(t, config.WebhookConfig{TimeoutMS: 2000, MaxRetries: 3, MaxFailures: 2})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	webhook, _, err := env.webhookSvc.Register(WebhookRegisterInput{
		MerchantID: 1,
		URL:        server.URL,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	payload := queue.WebhookDeliverPayload{
		WebhookID:  webhook.ID,
		MerchantID: 1,
		Event:      constants.WebhookEventPaymentSettled,
		Data:       json.RawMessage(`{}`),
	}
	for i := 0; i < 2; i++ {
		if err := env.webhookSvc.Deliver(payload); !errors.Is(err, ErrWebhookDeliveryFailed) {
			t.Fatalf("attempt %d want ErrWebhookDeliveryFailed got %v", i, err)
		}
	}

	stored, err := env.webhookRepo.GetByID(webhook.ID)
	if err != nil {
		t.Fatalf("get webhook failed: %v", err)
	}
	if stored.Status != constants.WebhookStatusFailed {
		t.Fatalf("status want failed got %s", stored.Status)
	}
	if stored.FailureCount != 2 {
		t.Fatalf("failure count want 2 got %d", stored.FailureCount)
	}

	// Failed endpoints are skipped without error so the queue stops
	// retrying.
	if err := env.webhookSvc.Deliver(payload); err != nil {
		t.Fatalf("deliver to failed endpoint want nil got %v", err)
	}
}

func TestWebhookSuccessResetsFailureCount(t *testing.T) {
	env := setupWebhookTest(t, config.WebhookConfig{TimeoutMS: 2000, MaxRetries: 3, MaxFailures: 5})

	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	webhook, _, err := env.webhookSvc.Register(WebhookRegisterInput{MerchantID: 1, URL: server.URL})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	payload := queue.WebhookDeliverPayload{
		WebhookID:  webhook.ID,
		MerchantID: 1,
		Event:      constants.WebhookEventReserveReleased,
		Data:       json.RawMessage(`{}`),
	}
	if err := env.webhookSvc.Deliver(payload); !errors.Is(err, ErrWebhookDeliveryFailed) {
		t.Fatalf("want ErrWebhookDeliveryFailed got %v", err)
	}

	fail = false
	if err := env.webhookSvc.Deliver(payload); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	stored, err := env.webhookRepo.GetByID(webhook.ID)
	if err != nil {
		t.Fatalf("get webhook failed: %v", err)
	}
	if stored.FailureCount != 0 {
		t.Fatalf("failure count want 0 got %d", stored.FailureCount)
	}
	if stored.Status != constants.WebhookStatusActive {
		t.Fatalf("status want active got %s", stored.Status)
	}
	if stored.LastSuccessAt == nil {
		t.Fatalf("last success timestamp missing")
	}
}

func TestWebhookDeliverMissingEndpoint(t *testing.T) {
	env := setupWebhookTest(t, config.WebhookConfig{TimeoutMS: 2000, MaxRetries: 3, MaxFailures: 5})

	// Endpoint deleted after fan-out: nothing to retry.
	if err := env.webhookSvc.Deliver(queue.WebhookDeliverPayload{
		WebhookID: 999,
		Event:     constants.WebhookEventPaymentSettled,
		Data:      json.RawMessage(`{}`),
	}); err != nil {
		t.Fatalf("missing endpoint want nil got %v", err)
	}
}

package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain"
)

type fakeWebhookStore struct {
	mu       sync.Mutex
	webhooks []domain.Webhook
}

func (s *fakeWebhookStore) CreateWebhook(ctx context.Context, webhook domain.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhooks = append(s.webhooks, webhook)
	return nil
}

func (s *fakeWebhookStore) GetWebhook(ctx context.Context, id string) (domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, webhook := range s.webhooks {
		if webhook.ID == id {
			return webhook, nil
		}
	}
	return domain.Webhook{}, domain.ErrWebhookNotFound
}

func (s *fakeWebhookStore) ListWebhooksByOrganization(ctx context.Context, organizationID string) ([]domain.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Webhook
	for _, webhook := range s.webhooks {
		if webhook.OrganizationID == organizationID {
			result = append(result, webhook)
		}
	}
	return result, nil
}

func (s *fakeWebhookStore) UpdateWebhook(ctx context.Context, webhook domain.Webhook) error {
	return nil
}

func (s *fakeWebhookStore) DeleteWebhook(ctx context.Context, id string) error {
	return nil
}

type receivedDelivery struct {
	body       []byte
	signature  string
	eventType  string
	deliveryID string
}

func TestDispatcher_DeliversSignedEvent(t *testing.T) {
	received := make(chan receivedDelivery, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- receivedDelivery{
			body:       body,
			signature:  r.Header.Get(HeaderSignature),
			eventType:  r.Header.Get(HeaderEvent),
			deliveryID: r.Header.Get(HeaderDelivery),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &fakeWebhookStore{webhooks: []domain.Webhook{{
		ID:             "wh_1",
		OrganizationID: "org_1",
		URL:            server.URL,
		Secret:         "whsec_test",
		Events:         []string{domain.EventPipelinePublished},
		Active:         true,
	}}}

	dispatcher := NewDispatcher(DispatcherDependencies{WebhookStore: store})

	dispatcher.Dispatch(domain.WebhookEvent{
		ID:             "evt_1",
		Type:           domain.EventPipelinePublished,
		OrganizationID: "org_1",
		Data:           map[string]any{"pipeline_id": "pl_1"},
		CreatedAt:      time.Now(),
	})

	var delivery receivedDelivery
	select {
	case delivery = <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	dispatcher.Close()

	assert.Equal(t, domain.EventPipelinePublished, delivery.eventType)
	assert.Equal(t, Signature("whsec_test", delivery.body), delivery.signature)
	assert.NotEmpty(t, delivery.deliveryID)
	assert.NotEqual(t, "evt_1", delivery.deliveryID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(delivery.body, &payload))
	assert.Equal(t, "evt_1", payload["id"])
	assert.Equal(t, domain.EventPipelinePublished, payload["type"])
}

func TestDispatcher_SkipsUnsubscribedAndInactive(t *testing.T) {
	var calls int
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &fakeWebhookStore{webhooks: []domain.Webhook{
		{
			ID:             "wh_inactive",
			OrganizationID: "org_1",
			URL:            server.URL,
			Events:         []string{domain.EventRunRecorded},
			Active:         false,
		},
		{
			ID:             "wh_other_event",
			OrganizationID: "org_1",
			URL:            server.URL,
			Events:         []string{domain.EventPlanChanged},
			Active:         true,
		},
	}}

	dispatcher := NewDispatcher(DispatcherDependencies{WebhookStore: store})

	dispatcher.Dispatch(domain.WebhookEvent{
		ID:             "evt_1",
		Type:           domain.EventRunRecorded,
		OrganizationID: "org_1",
	})

	dispatcher.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestDispatcher_RetriesServerErrors(t *testing.T) {
	var attempts int
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()

		if current < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := &fakeWebhookStore{webhooks: []domain.Webhook{{
		ID:             "wh_1",
		OrganizationID: "org_1",
		URL:            server.URL,
		Secret:         "whsec_test",
		Events:         []string{domain.EventRunRecorded},
		Active:         true,
	}}}

	dispatcher := NewDispatcher(DispatcherDependencies{
		WebhookStore: store,
		RetryDelay:   time.Millisecond,
	})

	dispatcher.Dispatch(domain.WebhookEvent{
		ID:             "evt_1",
		Type:           domain.EventRunRecorded,
		OrganizationID: "org_1",
	})

	dispatcher.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestDispatcher_DoesNotRetryClientErrors(t *testing.T) {
	var attempts int
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	store := &fakeWebhookStore{webhooks: []domain.Webhook{{
		ID:             "wh_1",
		OrganizationID: "org_1",
		URL:            server.URL,
		Secret:         "whsec_test",
		Events:         []string{domain.EventRunRecorded},
		Active:         true,
	}}}

	dispatcher := NewDispatcher(DispatcherDependencies{
		WebhookStore: store,
		RetryDelay:   time.Millisecond,
	})

	dispatcher.Dispatch(domain.WebhookEvent{
		ID:             "evt_1",
		Type:           domain.EventRunRecorded,
		OrganizationID: "org_1",
	})

	dispatcher.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, attempts)
}

func TestDispatcher_DeliverReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	dispatcher := NewDispatcher(DispatcherDependencies{WebhookStore: &fakeWebhookStore{}})
	defer dispatcher.Close()

	err := dispatcher.Deliver(context.Background(), domain.Webhook{
		URL:    server.URL,
		Secret: "whsec_test",
	}, domain.WebhookEvent{ID: "evt_1", Type: "webhook.test"})

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, http.StatusUnauthorized, deliveryErr.StatusCode)
}

func TestSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	first := Signature("secret-a", payload)
	second := Signature("secret-a", payload)
	other := Signature("secret-b", payload)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 64)
}

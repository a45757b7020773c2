// Package webhooks delivers organization events to subscribed endpoints.
// Deliveries run on background workers so event producers never wait on a
// slow receiver, and every payload is signed so receivers can verify origin.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/promptdeck/promptdeck/internal/domain"
	"github.com/promptdeck/promptdeck/internal/metrics"
)

const (
	HeaderSignature = "X-PromptDeck-Signature"
	HeaderEvent     = "X-PromptDeck-Event"
	HeaderDelivery  = "X-PromptDeck-Delivery"

	defaultWorkers       = 4
	defaultQueueSize     = 256
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
	defaultTimeout       = 10 * time.Second
)

type DispatcherDependencies struct {
	WebhookStore domain.WebhookStore

	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient    *http.Client
	Workers       int
	QueueSize     int
	RetryAttempts int
	RetryDelay    time.Duration
}

type Dispatcher struct {
	webhookStore  domain.WebhookStore
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration

	queue chan domain.WebhookEvent
	wg    sync.WaitGroup

	closeOnce sync.Once
}

func NewDispatcher(deps DispatcherDependencies) *Dispatcher {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	retryAttempts := deps.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = defaultRetryAttempts
	}

	retryDelay := deps.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	d := &Dispatcher{
		webhookStore:  deps.WebhookStore,
		httpClient:    httpClient,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		queue:         make(chan domain.WebhookEvent, queueSize),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}

	return d
}

// Dispatch queues an event for delivery. When the queue is full the event is
// dropped rather than blocking the producer.
func (d *Dispatcher) Dispatch(event domain.WebhookEvent) {
	select {
	case d.queue <- event:
	default:
		log.Warn().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("Webhook queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued deliveries to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for event := range d.queue {
		d.deliverToSubscribers(event)
	}
}

func (d *Dispatcher) deliverToSubscribers(event domain.WebhookEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	webhooks, err := d.webhookStore.ListWebhooksByOrganization(ctx, event.OrganizationID)
	if err != nil {
		log.Error().
			Err(err).
			Str("organization_id", event.OrganizationID).
			Msg("Failed to list webhooks for event")

		return
	}

	for _, webhook := range webhooks {
		if !webhook.Active || !webhook.SubscribesTo(event.Type) {
			continue
		}

		if err := d.deliverWithRetry(ctx, webhook, event); err != nil {
			metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
			log.Error().
				Err(err).
				Str("webhook_id", webhook.ID).
				Str("event_type", event.Type).
				Msg("Webhook delivery failed")

			continue
		}

		metrics.WebhookDeliveries.WithLabelValues("success").Inc()
	}
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, webhook domain.Webhook, event domain.WebhookEvent) error {
	var lastErr error

	for attempt := 0; attempt <= d.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.retryDelay):
			}
		}

		err := d.Deliver(ctx, webhook, event)
		if err == nil {
			return nil
		}

		lastErr = err

		// Client errors will not fix themselves on retry.
		var deliveryErr *DeliveryError
		if errors.As(err, &deliveryErr) && deliveryErr.StatusCode >= 400 && deliveryErr.StatusCode < 500 {
			return err
		}
	}

	return fmt.Errorf("delivery failed after %d retries: %w", d.retryAttempts, lastErr)
}

// Deliver posts a single signed event to one webhook without retries. The
// test-delivery endpoint uses it directly so the caller sees the outcome.
func (d *Dispatcher) Deliver(ctx context.Context, webhook domain.Webhook, event domain.WebhookEvent) error {
	payload, err := json.Marshal(deliveryPayload{
		ID:        event.ID,
		Type:      event.Type,
		CreatedAt: event.CreatedAt,
		Data:      event.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create delivery request: %w", err)
	}

	// Every attempt is its own delivery; receivers dedupe on the payload's
	// event id, not the delivery id.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event.Type)
	req.Header.Set(HeaderDelivery, uuid.NewString())
	req.Header.Set(HeaderSignature, Signature(webhook.Secret, payload))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}

	return nil
}

type deliveryPayload struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	Data      map[string]any `json:"data"`
}

type DeliveryError struct {
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook endpoint returned status %d", e.StatusCode)
}

// Signature computes the hex HMAC-SHA256 of the payload under the webhook
// secret. Receivers recompute it to verify the sender.
func Signature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

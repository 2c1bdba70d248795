// Package webhook delivers signed domain-event notifications to subscribed
// endpoints and records every attempt for external audit and retry tooling.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"shelfmark/pkg/domain"
	"shelfmark/pkg/store"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxInFlight = 4
)

// Dispatcher fans an event out to all active subscribed endpoints. Each
// endpoint gets exactly one attempt per event; failures are recorded, never
// raised to the caller.
type Dispatcher struct {
	store  store.Store
	client *http.Client
	sem    *semaphore.Weighted
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each HTTP delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.client.Timeout = d
		}
	}
}

// WithMaxInFlight caps concurrent deliveries across endpoints.
func WithMaxInFlight(n int64) Option {
	return func(disp *Dispatcher) {
		if n > 0 {
			disp.sem = semaphore.NewWeighted(n)
		}
	}
}

// NewDispatcher builds a dispatcher over the given store.
func NewDispatcher(s store.Store, options ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  s,
		client: &http.Client{Timeout: defaultTimeout},
		sem:    semaphore.NewWeighted(defaultMaxInFlight),
	}
	for _, option := range options {
		if option != nil {
			option(d)
		}
	}
	return d
}

// Publish implements the event sink interface for in-process wiring; it
// dispatches synchronously and never returns an error to the caller.
func (d *Dispatcher) Publish(ctx context.Context, evt domain.Event) error {
	d.Dispatch(ctx, evt)
	return nil
}

// Dispatch notifies every active endpoint subscribed to the event type.
// All endpoints are attempted regardless of earlier failures; deliveries to
// different endpoints carry no ordering guarantee.
func (d *Dispatcher) Dispatch(ctx context.Context, evt domain.Event) {
	endpoints, err := d.store.ListActiveEndpoints(evt.Type)
	if err != nil {
		slog.Error("webhook endpoint lookup failed", "event_type", evt.Type, "error", err)
		return
	}
	if len(endpoints) == 0 {
		return
	}
	body, err := json.Marshal(struct {
		EventType string `json:"event_type"`
		Timestamp string `json:"timestamp"`
		Data      any    `json:"data"`
	}{
		EventType: evt.Type,
		Timestamp: evt.Timestamp.UTC().Format(time.RFC3339),
		Data:      evt.Data,
	})
	if err != nil {
		slog.Error("webhook payload marshal failed", "event_type", evt.Type, "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, ep := range endpoints {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			slog.Warn("webhook dispatch interrupted", "event_type", evt.Type, "error", err)
			break
		}
		wg.Add(1)
		go func(ep domain.WebhookEndpoint) {
			defer wg.Done()
			defer d.sem.Release(1)
			d.deliver(ctx, ep, evt.Type, body)
		}(ep)
	}
	wg.Wait()
}

// deliver performs the single delivery attempt for one endpoint. The
// delivery record is created pending before the POST and finalized after.
func (d *Dispatcher) deliver(ctx context.Context, ep domain.WebhookEndpoint, eventType string, body []byte) {
	now := time.Now().UTC()
	delivery := domain.WebhookDelivery{
		ID:         domain.NewID(),
		EndpointID: ep.ID,
		EventType:  eventType,
		Payload:    body,
		Status:     domain.DeliveryPending,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.store.CreateDelivery(delivery); err != nil {
		slog.Error("webhook delivery record failed", "endpoint_id", ep.ID, "event_type", eventType, "error", err)
		return
	}

	status := domain.DeliveryFailed
	var responseStatus *int
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err == nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(EventHeader, eventType)
		req.Header.Set(SignatureHeader, Sign(ep.Secret, body))
		resp, doErr := d.client.Do(req)
		if doErr == nil {
			code := resp.StatusCode
			responseStatus = &code
			if code >= 200 && code < 300 {
				status = domain.DeliverySuccess
			}
			resp.Body.Close()
		} else {
			slog.Warn("webhook delivery failed", "endpoint_id", ep.ID, "event_type", eventType, "error", doErr)
		}
	}

	if err := d.store.FinalizeDelivery(delivery.ID, status, responseStatus); err != nil {
		slog.Error("webhook delivery finalize failed", "delivery_id", delivery.ID, "error", err)
	}
}

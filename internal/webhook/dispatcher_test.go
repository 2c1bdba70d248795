package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shelfmark/pkg/domain"
	"shelfmark/pkg/store"
)

func newEndpoint(url, secret string, events ...string) domain.WebhookEndpoint {
	return domain.WebhookEndpoint{
		ID:        domain.NewID(),
		URL:       url,
		Secret:    secret,
		Events:    events,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

func TestDispatchSignsAndRecordsSuccess(t *testing.T) {
	var gotSignature, gotEvent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		gotEvent = r.Header.Get(EventHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	memStore := store.NewMemoryStore()
	ep := newEndpoint(srv.URL, "s3cret", domain.EventReviewCreated)
	if err := memStore.CreateEndpoint(ep); err != nil {
		t.Fatalf("create endpoint: %v", err)
	}

	d := NewDispatcher(memStore)
	d.Dispatch(context.Background(), domain.NewEvent(domain.EventReviewCreated, map[string]string{"reviewId": "r1"}))

	if gotEvent != domain.EventReviewCreated {
		t.Fatalf("unexpected event header: %q", gotEvent)
	}
	if !VerifySignature("s3cret", gotBody, gotSignature) {
		t.Fatal("expected signature to verify against received body")
	}
	var payload struct {
		EventType string          `json:"event_type"`
		Timestamp string          `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.EventType != domain.EventReviewCreated {
		t.Fatalf("unexpected payload event type: %q", payload.EventType)
	}
	if _, err := time.Parse(time.RFC3339, payload.Timestamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}

	deliveries, err := memStore.ListDeliveriesByEndpoint(ep.ID)
	if err != nil {
		t.Fatalf("list deliveries: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	got := deliveries[0]
	if got.Status != domain.DeliverySuccess {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if got.ResponseStatus == nil || *got.ResponseStatus != http.StatusOK {
		t.Fatalf("unexpected response status: %v", got.ResponseStatus)
	}
	if got.Attempts != 1 {
		t.Fatalf("unexpected attempts: %d", got.Attempts)
	}
}

func TestDispatchIsolatesEndpointFailures(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer okSrv.Close()
	slowSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slowSrv.Close()

	memStore := store.NewMemoryStore()
	good := newEndpoint(okSrv.URL, "good-secret", domain.EventOrderCreated)
	stuck := newEndpoint(slowSrv.URL, "stuck-secret", domain.EventOrderCreated)
	for _, ep := range []domain.WebhookEndpoint{good, stuck} {
		if err := memStore.CreateEndpoint(ep); err != nil {
			t.Fatalf("create endpoint: %v", err)
		}
	}

	d := NewDispatcher(memStore, WithTimeout(50*time.Millisecond))
	d.Dispatch(context.Background(), domain.NewEvent(domain.EventOrderCreated, map[string]string{"orderId": "o1"}))

	goodDeliveries, _ := memStore.ListDeliveriesByEndpoint(good.ID)
	if len(goodDeliveries) != 1 || goodDeliveries[0].Status != domain.DeliverySuccess {
		t.Fatalf("expected success for reachable endpoint, got %+v", goodDeliveries)
	}
	stuckDeliveries, _ := memStore.ListDeliveriesByEndpoint(stuck.ID)
	if len(stuckDeliveries) != 1 || stuckDeliveries[0].Status != domain.DeliveryFailed {
		t.Fatalf("expected failure for timed-out endpoint, got %+v", stuckDeliveries)
	}
	if stuckDeliveries[0].ResponseStatus != nil {
		t.Fatalf("timeout should leave no response status, got %v", *stuckDeliveries[0].ResponseStatus)
	}
}

func TestDispatchRecordsNon2xxAsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	memStore := store.NewMemoryStore()
	ep := newEndpoint(srv.URL, "s3cret", domain.EventBookCreated)
	if err := memStore.CreateEndpoint(ep); err != nil {
		t.Fatalf("create endpoint: %v", err)
	}

	d := NewDispatcher(memStore)
	d.Dispatch(context.Background(), domain.NewEvent(domain.EventBookCreated, nil))

	deliveries, _ := memStore.ListDeliveriesByEndpoint(ep.ID)
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
	if deliveries[0].Status != domain.DeliveryFailed {
		t.Fatalf("unexpected status: %s", deliveries[0].Status)
	}
	if deliveries[0].ResponseStatus == nil || *deliveries[0].ResponseStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected response status: %v", deliveries[0].ResponseStatus)
	}
}

func TestDispatchSkipsInactiveAndUnsubscribedEndpoints(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	memStore := store.NewMemoryStore()
	inactive := newEndpoint(srv.URL, "a", domain.EventReviewCreated)
	inactive.Active = false
	otherEvent := newEndpoint(srv.URL, "b", domain.EventOrderCreated)
	for _, ep := range []domain.WebhookEndpoint{inactive, otherEvent} {
		if err := memStore.CreateEndpoint(ep); err != nil {
			t.Fatalf("create endpoint: %v", err)
		}
	}

	d := NewDispatcher(memStore)
	d.Dispatch(context.Background(), domain.NewEvent(domain.EventReviewCreated, nil))

	if calls != 0 {
		t.Fatalf("expected no deliveries, got %d calls", calls)
	}
	for _, ep := range []domain.WebhookEndpoint{inactive, otherEvent} {
		deliveries, _ := memStore.ListDeliveriesByEndpoint(ep.ID)
		if len(deliveries) != 0 {
			t.Fatalf("expected no delivery records for endpoint %s", ep.ID)
		}
	}
}

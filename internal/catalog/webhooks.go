package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"shelfmark/pkg/authz"
	"shelfmark/pkg/domain"
)

var knownEventTypes = map[string]bool{
	domain.EventBookCreated:   true,
	domain.EventBookUpdated:   true,
	domain.EventBookDeleted:   true,
	domain.EventReviewCreated: true,
	domain.EventReviewUpdated: true,
	domain.EventReviewDeleted: true,
	domain.EventOrderCreated:  true,
}

// EndpointInput carries caller-supplied webhook endpoint fields. An empty
// Secret asks the service to generate one.
type EndpointInput struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

func validateEndpointInput(in EndpointInput) error {
	parsed, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return domain.NewValidationError("url", "must be an absolute http or https URL")
	}
	if len(in.Events) == 0 {
		return domain.NewValidationError("events", "must subscribe to at least one event type")
	}
	for _, evt := range in.Events {
		if !knownEventTypes[evt] {
			return domain.NewValidationError("events", "unknown event type "+evt)
		}
	}
	return nil
}

func newEndpointSecret() string {
	buf := make([]byte, 24)
	rand.Read(buf)
	return "whsec_" + hex.EncodeToString(buf)
}

// CreateEndpoint registers a webhook endpoint. The signing secret is returned
// on this call only; list and get responses omit it.
func (s *Service) CreateEndpoint(ctx context.Context, p authz.Principal, in EndpointInput) (domain.WebhookEndpoint, error) {
	if err := authz.Authorize(p, authz.ActionCreate, nil); err != nil {
		return domain.WebhookEndpoint{}, err
	}
	if err := validateEndpointInput(in); err != nil {
		return domain.WebhookEndpoint{}, err
	}
	secret := strings.TrimSpace(in.Secret)
	if secret == "" {
		secret = newEndpointSecret()
	}
	now := time.Now().UTC()
	endpoint := domain.WebhookEndpoint{
		ID:        domain.NewID(),
		URL:       strings.TrimSpace(in.URL),
		Secret:    secret,
		Events:    in.Events,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateEndpoint(endpoint); err != nil {
		return domain.WebhookEndpoint{}, err
	}
	return endpoint, nil
}

// EndpointUpdate carries mutable endpoint fields. Nil Active means unchanged.
type EndpointUpdate struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Active *bool    `json:"active"`
}

// UpdateEndpoint replaces an endpoint's URL, subscriptions, and active flag.
// The secret never changes after creation.
func (s *Service) UpdateEndpoint(ctx context.Context, p authz.Principal, id string, in EndpointUpdate) (domain.WebhookEndpoint, error) {
	if err := authz.Authorize(p, authz.ActionUpdate, nil); err != nil {
		return domain.WebhookEndpoint{}, err
	}
	existing, ok, err := s.store.GetEndpoint(id)
	if err != nil {
		return domain.WebhookEndpoint{}, err
	}
	if !ok {
		return domain.WebhookEndpoint{}, domain.ErrNotFound
	}
	if err := validateEndpointInput(EndpointInput{URL: in.URL, Events: in.Events}); err != nil {
		return domain.WebhookEndpoint{}, err
	}
	existing.URL = strings.TrimSpace(in.URL)
	existing.Events = in.Events
	if in.Active != nil {
		existing.Active = *in.Active
	}
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateEndpoint(existing); err != nil {
		return domain.WebhookEndpoint{}, err
	}
	return existing, nil
}

// GetEndpoint returns one webhook endpoint.
func (s *Service) GetEndpoint(ctx context.Context, p authz.Principal, id string) (domain.WebhookEndpoint, error) {
	if !p.Authenticated {
		return domain.WebhookEndpoint{}, domain.ErrNotAuthenticated
	}
	endpoint, ok, err := s.store.GetEndpoint(id)
	if err != nil {
		return domain.WebhookEndpoint{}, err
	}
	if !ok {
		return domain.WebhookEndpoint{}, domain.ErrNotFound
	}
	return endpoint, nil
}

// ListEndpoints returns all registered endpoints.
func (s *Service) ListEndpoints(ctx context.Context, p authz.Principal) ([]domain.WebhookEndpoint, error) {
	if !p.Authenticated {
		return nil, domain.ErrNotAuthenticated
	}
	return s.store.ListEndpoints()
}

// ListDeliveries returns the delivery history of one endpoint, newest first.
func (s *Service) ListDeliveries(ctx context.Context, p authz.Principal, endpointID string) ([]domain.WebhookDelivery, error) {
	if !p.Authenticated {
		return nil, domain.ErrNotAuthenticated
	}
	if _, ok, err := s.store.GetEndpoint(endpointID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrNotFound
	}
	return s.store.ListDeliveriesByEndpoint(endpointID)
}

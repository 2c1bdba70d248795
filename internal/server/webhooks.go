package server

import (
	"net/http"
	"strings"
	"time"

	"shelfmark/internal/catalog"
	"shelfmark/pkg/authz"
	"shelfmark/pkg/domain"
)

// endpointView is the list/get shape of an endpoint; the secret is only
// returned once, on creation.
type endpointView struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func viewEndpoint(e domain.WebhookEndpoint) endpointView {
	return endpointView{
		ID:        e.ID,
		URL:       e.URL,
		Events:    e.Events,
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (s *Server) handleWebhooks(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	switch r.Method {
	case http.MethodGet:
		endpoints, err := s.svc.ListEndpoints(r.Context(), p)
		if err != nil {
			respondError(w, err)
			return
		}
		views := make([]endpointView, 0, len(endpoints))
		for _, e := range endpoints {
			views = append(views, viewEndpoint(e))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": views, "count": len(views)})
	case http.MethodPost:
		var in catalog.EndpointInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		endpoint, err := s.svc.CreateEndpoint(r.Context(), p, in)
		if err != nil {
			respondError(w, err)
			return
		}
		// creation response includes the secret so the receiver can verify
		// signatures; it is not retrievable afterwards
		created := struct {
			endpointView
			Secret string `json:"secret"`
		}{viewEndpoint(endpoint), endpoint.Secret}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w)
	}
}

// /webhooks/{id}, /webhooks/{id}/deliveries
func (s *Server) handleWebhookSubtree(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	path := strings.TrimPrefix(r.URL.Path, "/webhooks/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] != "deliveries" || r.Method != http.MethodGet {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		deliveries, err := s.svc.ListDeliveries(r.Context(), p, id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": deliveries, "count": len(deliveries)})
		return
	}

	switch r.Method {
	case http.MethodGet:
		endpoint, err := s.svc.GetEndpoint(r.Context(), p, id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewEndpoint(endpoint))
	case http.MethodPut:
		var in catalog.EndpointUpdate
		if !s.decodeJSON(w, r, &in) {
			return
		}
		endpoint, err := s.svc.UpdateEndpoint(r.Context(), p, id, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewEndpoint(endpoint))
	default:
		methodNotAllowed(w)
	}
}

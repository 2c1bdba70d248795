// Package catalog implements the bookstore's query and write operations:
// filtered collection queries with derived statistics, ownership-gated
// writes, and domain-event publication.
package catalog

import (
	"context"
	"strings"

	"shelfmark/internal/util"
	"shelfmark/pkg/domain"
	"shelfmark/pkg/storage"
	"shelfmark/pkg/store"
)

const (
	// DefaultPageSize applies when the caller does not pick one.
	DefaultPageSize = 20
	// MaxPageSize caps caller-chosen page sizes; larger requests are
	// clamped, not rejected.
	MaxPageSize = 100

	bestsellerLimit = 10
)

// EventSink receives domain events after a successful write. Publication is
// fire-and-forget from the service's perspective.
type EventSink interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// Service wires storage, object storage, and event publication together.
type Service struct {
	store   store.Store
	objects storage.ObjectStore
	events  EventSink
}

// NewService constructs the catalog service. objects and events may be nil;
// cover operations and event publication degrade gracefully.
func NewService(s store.Store, objects storage.ObjectStore, events EventSink) *Service {
	return &Service{store: s, objects: objects, events: events}
}

// publish sends an event to the sink. Failures are logged, never returned:
// delivery problems must not fail the business operation that triggered them.
func (s *Service) publish(ctx context.Context, eventType string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, domain.NewEvent(eventType, data)); err != nil {
		util.LoggerFromContext(ctx).Warn("event publish failed", "event_type", eventType, "error", err)
	}
}

// QueryParams is the caller-facing shape of a book collection query.
type QueryParams struct {
	Status      string
	AuthorID    string
	PublisherID string
	CategoryID  string
	Search      string
	Ordering    []string
	Page        int
	PageSize    int
}

// BookPage is one page of an aggregated book collection query.
type BookPage struct {
	Items       []domain.Book `json:"items"`
	TotalCount  int64         `json:"totalCount"`
	Page        int           `json:"page"`
	PageSize    int           `json:"pageSize"`
	HasNext     bool          `json:"hasNext"`
	HasPrevious bool          `json:"hasPrevious"`
}

// QueryBooks validates the query, then runs it. A page past the end yields
// an empty item list rather than an error; an oversized page size is clamped.
func (s *Service) QueryBooks(p QueryParams) (BookPage, error) {
	q := store.BookQuery{
		AuthorID:    strings.TrimSpace(p.AuthorID),
		PublisherID: strings.TrimSpace(p.PublisherID),
		CategoryID:  strings.TrimSpace(p.CategoryID),
		Search:      p.Search,
	}
	if raw := strings.TrimSpace(p.Status); raw != "" {
		status, ok := ParseBookStatus(raw)
		if !ok {
			return BookPage{}, domain.NewValidationError("status", "unknown status "+raw)
		}
		q.Status = status
	}
	sortKeys, err := parseOrdering(p.Ordering)
	if err != nil {
		return BookPage{}, err
	}
	q.Sort = sortKeys
	q.Page = p.Page
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize = p.PageSize
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	items, total, err := s.store.QueryBooks(q)
	if err != nil {
		return BookPage{}, err
	}
	return BookPage{
		Items:       items,
		TotalCount:  total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		HasNext:     int64(q.Page)*int64(q.PageSize) < total,
		HasPrevious: q.Page > 1,
	}, nil
}

// Bestsellers is the fixed top-10-by-review-count view of the catalog.
func (s *Service) Bestsellers() ([]domain.Book, error) {
	return s.store.Bestsellers(bestsellerLimit)
}

// ParseBookStatus maps caller input onto the status enum.
func ParseBookStatus(raw string) (domain.BookStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(domain.StatusAvailable):
		return domain.StatusAvailable, true
	case string(domain.StatusOutOfStock):
		return domain.StatusOutOfStock, true
	case string(domain.StatusComingSoon):
		return domain.StatusComingSoon, true
	default:
		return "", false
	}
}

// parseOrdering turns entries like "-created_at" or "price" into sort keys.
func parseOrdering(entries []string) ([]store.SortKey, error) {
	if len(entries) == 0 {
		return []store.SortKey{{Field: store.SortCreatedAt, Desc: true}}, nil
	}
	keys := make([]store.SortKey, 0, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		desc := strings.HasPrefix(entry, "-")
		field := strings.TrimPrefix(entry, "-")
		switch field {
		case store.SortTitle, store.SortPrice, store.SortPublicationDate, store.SortCreatedAt, store.SortPopularity:
		default:
			return nil, domain.NewValidationError("ordering", "unknown sort field "+field)
		}
		keys = append(keys, store.SortKey{Field: field, Desc: desc})
	}
	if len(keys) == 0 {
		keys = []store.SortKey{{Field: store.SortCreatedAt, Desc: true}}
	}
	return keys, nil
}

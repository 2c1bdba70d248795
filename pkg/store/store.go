package store

import (
	"shelfmark/pkg/domain"
)

// Sort fields accepted by BookQuery. The catalog service validates caller
// input against these before building a query.
const (
	SortTitle           = "title"
	SortPrice           = "price"
	SortPublicationDate = "publication_date"
	SortCreatedAt       = "created_at"
	SortPopularity      = "popularity"
)

// SortKey orders a collection by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// BookQuery describes a collection query over books. Empty filter fields are
// ignored; the remaining ones compose with AND.
type BookQuery struct {
	Status      domain.BookStatus
	AuthorID    string
	PublisherID string
	CategoryID  string
	Search      string
	Sort        []SortKey
	Page        int
	PageSize    int
}

// Offset returns the row offset for the requested page.
func (q BookQuery) Offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * q.PageSize
}

// Store defines persistence for the catalog, accounts, and webhooks.
// Collection queries return rows already carrying their derived statistics;
// the number of storage round-trips must not grow with result size.
type Store interface {
	// users
	CreateUser(domain.User) error
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// books
	CreateBook(domain.Book) error
	UpdateBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	DeleteBook(id string) error
	QueryBooks(q BookQuery) ([]domain.Book, int64, error)
	Bestsellers(limit int) ([]domain.Book, error)
	SetBookCover(id, coverKey string) error

	// authors
	CreateAuthor(domain.Author) error
	UpdateAuthor(domain.Author) error
	GetAuthor(id string) (domain.Author, bool, error)
	DeleteAuthor(id string) error
	ListAuthors() ([]domain.Author, error)

	// categories
	CreateCategory(domain.Category) error
	UpdateCategory(domain.Category) error
	GetCategory(id string) (domain.Category, bool, error)
	DeleteCategory(id string) error
	ListCategories() ([]domain.Category, error)

	// publishers
	CreatePublisher(domain.Publisher) error
	UpdatePublisher(domain.Publisher) error
	GetPublisher(id string) (domain.Publisher, bool, error)
	DeletePublisher(id string) error
	ListPublishers() ([]domain.Publisher, error)

	// reviews
	CreateReview(domain.Review) error
	UpdateReview(domain.Review) error
	GetReview(id string) (domain.Review, bool, error)
	DeleteReview(id string) error
	ListReviewsByBook(bookID string) ([]domain.Review, error)

	// orders
	CreateOrder(domain.Order) error

	// webhooks
	CreateEndpoint(domain.WebhookEndpoint) error
	UpdateEndpoint(domain.WebhookEndpoint) error
	GetEndpoint(id string) (domain.WebhookEndpoint, bool, error)
	ListEndpoints() ([]domain.WebhookEndpoint, error)
	ListActiveEndpoints(eventType string) ([]domain.WebhookEndpoint, error)
	CreateDelivery(domain.WebhookDelivery) error
	FinalizeDelivery(id string, status domain.DeliveryStatus, responseStatus *int) error
	ListDeliveriesByEndpoint(endpointID string) ([]domain.WebhookDelivery, error)
}

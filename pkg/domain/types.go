package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BookStatus string

const (
	StatusAvailable  BookStatus = "available"
	StatusOutOfStock BookStatus = "out_of_stock"
	StatusComingSoon BookStatus = "coming_soon"
)

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

type Book struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle,omitempty"`
	Description     string     `json:"description,omitempty"`
	ISBN            string     `json:"isbn"`
	Price           float64    `json:"price"`
	Status          BookStatus `json:"status"`
	PublicationDate time.Time  `json:"publicationDate"`
	AuthorID        string     `json:"authorId"`
	PublisherID     string     `json:"publisherId,omitempty"`
	CategoryIDs     []string   `json:"categoryIds,omitempty"`
	CoverKey        string     `json:"-"`
	ReviewsCount    int64      `json:"reviewsCount"`
	// AverageRating is nil when the book has no reviews; a zero value would
	// be indistinguishable from a real rating otherwise.
	AverageRating *float64  `json:"averageRating,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Author struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio,omitempty"`
	BooksCount int64     `json:"booksCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BooksCount  int64     `json:"booksCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Publisher struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Website    string    `json:"website,omitempty"`
	BooksCount int64     `json:"booksCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerID identifies the authoring user for ownership checks.
func (r Review) OwnerID() string { return r.UserID }

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type OrderItem struct {
	BookID    string  `json:"bookId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
}

type WebhookEndpoint struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubscribedTo reports whether the endpoint listens for the exact event type.
func (e WebhookEndpoint) SubscribedTo(eventType string) bool {
	for _, evt := range e.Events {
		if evt == eventType {
			return true
		}
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// WebhookDelivery records one delivery attempt of one event to one endpoint.
// Records are append-only facts; only the dispatcher finalizes them.
type WebhookDelivery struct {
	ID             string          `json:"id"`
	EndpointID     string          `json:"endpointId"`
	EventType      string          `json:"eventType"`
	Payload        json.RawMessage `json:"payload"`
	Status         DeliveryStatus  `json:"status"`
	ResponseStatus *int            `json:"responseStatus,omitempty"`
	Attempts       int             `json:"attempts"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

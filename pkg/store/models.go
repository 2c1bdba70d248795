package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Name         string
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type AuthorModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null;index"`
	Bio       string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type CategoryModel struct {
	ID          string    `gorm:"primaryKey"`
	Name        string    `gorm:"uniqueIndex;not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

type PublisherModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null;index"`
	Website   string
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type BookModel struct {
	ID              string    `gorm:"primaryKey"`
	Title           string    `gorm:"not null;index"`
	Subtitle        string
	Description     string    `gorm:"type:text"`
	ISBN            string    `gorm:"column:isbn;uniqueIndex;not null"`
	Price           float64   `gorm:"not null"`
	Status          string    `gorm:"not null;index"`
	PublicationDate time.Time
	AuthorID        string    `gorm:"not null;index"`
	PublisherID     *string   `gorm:"index"`
	CoverKey        string
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// BookCategoryModel is the explicit join table for book category membership.
type BookCategoryModel struct {
	BookID     string `gorm:"primaryKey"`
	CategoryID string `gorm:"primaryKey;index"`
}

type ReviewModel struct {
	ID        string    `gorm:"primaryKey"`
	BookID    string    `gorm:"not null;index;uniqueIndex:idx_reviews_book_user"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_reviews_book_user"`
	Rating    int       `gorm:"not null"`
	Title     string
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type OrderModel struct {
	ID        string         `gorm:"primaryKey"`
	UserID    string         `gorm:"not null;index"`
	Items     datatypes.JSON `gorm:"type:jsonb"`
	Total     float64        `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

type WebhookEndpointModel struct {
	ID        string         `gorm:"primaryKey"`
	URL       string         `gorm:"column:url;not null"`
	Secret    string         `gorm:"not null"`
	Events    datatypes.JSON `gorm:"type:jsonb"`
	Active    bool           `gorm:"not null;default:true;index"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time
}

type WebhookDeliveryModel struct {
	ID             string         `gorm:"primaryKey"`
	EndpointID     string         `gorm:"not null;index"`
	EventType      string         `gorm:"not null"`
	Payload        datatypes.JSON `gorm:"type:jsonb"`
	Status         string         `gorm:"not null"`
	ResponseStatus *int
	Attempts       int            `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null;index"`
	UpdatedAt      time.Time
}

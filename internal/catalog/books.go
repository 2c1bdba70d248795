package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"shelfmark/pkg/authz"
	"shelfmark/pkg/domain"
	"shelfmark/pkg/storage"
)

// BookInput carries caller-supplied book fields for create and update.
type BookInput struct {
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle"`
	Description     string    `json:"description"`
	ISBN            string    `json:"isbn"`
	Price           float64   `json:"price"`
	Status          string    `json:"status"`
	PublicationDate time.Time `json:"publicationDate"`
	AuthorID        string    `json:"authorId"`
	PublisherID     string    `json:"publisherId"`
	CategoryIDs     []string  `json:"categoryIds"`
}

func (s *Service) validateBookInput(in BookInput) (domain.BookStatus, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", domain.NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(in.ISBN) == "" {
		return "", domain.NewValidationError("isbn", "must not be empty")
	}
	if in.Price < 0 {
		return "", domain.NewValidationError("price", "must not be negative")
	}
	status := domain.StatusAvailable
	if raw := strings.TrimSpace(in.Status); raw != "" {
		parsed, ok := ParseBookStatus(raw)
		if !ok {
			return "", domain.NewValidationError("status", "unknown status "+raw)
		}
		status = parsed
	}
	if strings.TrimSpace(in.AuthorID) == "" {
		return "", domain.NewValidationError("authorId", "must not be empty")
	}
	if _, ok, err := s.store.GetAuthor(in.AuthorID); err != nil {
		return "", err
	} else if !ok {
		return "", domain.NewValidationError("authorId", "unknown author "+in.AuthorID)
	}
	if in.PublisherID != "" {
		if _, ok, err := s.store.GetPublisher(in.PublisherID); err != nil {
			return "", err
		} else if !ok {
			return "", domain.NewValidationError("publisherId", "unknown publisher "+in.PublisherID)
		}
	}
	for _, cid := range in.CategoryIDs {
		if _, ok, err := s.store.GetCategory(cid); err != nil {
			return "", err
		} else if !ok {
			return "", domain.NewValidationError("categoryIds", "unknown category "+cid)
		}
	}
	return status, nil
}

// CreateBook adds a book to the catalog and publishes book.created.
func (s *Service) CreateBook(ctx context.Context, p authz.Principal, in BookInput) (domain.Book, error) {
	if err := authz.Authorize(p, authz.ActionCreate, nil); err != nil {
		return domain.Book{}, err
	}
	status, err := s.validateBookInput(in)
	if err != nil {
		return domain.Book{}, err
	}
	now := time.Now().UTC()
	book := domain.Book{
		ID:              domain.NewID(),
		Title:           strings.TrimSpace(in.Title),
		Subtitle:        in.Subtitle,
		Description:     in.Description,
		ISBN:            strings.TrimSpace(in.ISBN),
		Price:           in.Price,
		Status:          status,
		PublicationDate: in.PublicationDate,
		AuthorID:        in.AuthorID,
		PublisherID:     in.PublisherID,
		CategoryIDs:     in.CategoryIDs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateBook(book); err != nil {
		return domain.Book{}, err
	}
	s.publish(ctx, domain.EventBookCreated, book)
	return book, nil
}

// UpdateBook replaces the mutable fields of a book and publishes book.updated.
func (s *Service) UpdateBook(ctx context.Context, p authz.Principal, id string, in BookInput) (domain.Book, error) {
	if err := authz.Authorize(p, authz.ActionUpdate, nil); err != nil {
		return domain.Book{}, err
	}
	existing, ok, err := s.store.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, domain.ErrNotFound
	}
	status, err := s.validateBookInput(in)
	if err != nil {
		return domain.Book{}, err
	}
	existing.Title = strings.TrimSpace(in.Title)
	existing.Subtitle = in.Subtitle
	existing.Description = in.Description
	existing.ISBN = strings.TrimSpace(in.ISBN)
	existing.Price = in.Price
	existing.Status = status
	existing.PublicationDate = in.PublicationDate
	existing.AuthorID = in.AuthorID
	existing.PublisherID = in.PublisherID
	existing.CategoryIDs = in.CategoryIDs
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateBook(existing); err != nil {
		return domain.Book{}, err
	}
	s.publish(ctx, domain.EventBookUpdated, existing)
	return existing, nil
}

// GetBook returns one book with its derived review statistics.
func (s *Service) GetBook(id string) (domain.Book, error) {
	book, ok, err := s.store.GetBook(id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, domain.ErrNotFound
	}
	return book, nil
}

// DeleteBook removes a book and its reviews, then publishes book.deleted.
func (s *Service) DeleteBook(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.ActionDelete, nil); err != nil {
		return err
	}
	if err := s.store.DeleteBook(id); err != nil {
		return err
	}
	s.publish(ctx, domain.EventBookDeleted, map[string]string{"bookId": id})
	return nil
}

var coverContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// UploadCover stores a cover image for a book and records its storage key.
// ext must include the dot, e.g. ".png".
func (s *Service) UploadCover(ctx context.Context, p authz.Principal, bookID, ext string, r io.Reader, size int64) error {
	if err := authz.Authorize(p, authz.ActionUpdate, nil); err != nil {
		return err
	}
	if s.objects == nil {
		return fmt.Errorf("cover storage not configured")
	}
	contentType, ok := coverContentTypes[strings.ToLower(ext)]
	if !ok {
		return domain.NewValidationError("file", "unsupported image type "+ext)
	}
	if _, found, err := s.store.GetBook(bookID); err != nil {
		return err
	} else if !found {
		return domain.ErrNotFound
	}
	key := storage.CoverKey(bookID, strings.ToLower(ext))
	if err := s.objects.Put(ctx, key, r, size, contentType); err != nil {
		return fmt.Errorf("store cover: %w", err)
	}
	return s.store.SetBookCover(bookID, key)
}

// CoverURL returns a short-lived download URL for a book's cover image.
func (s *Service) CoverURL(ctx context.Context, bookID string) (string, error) {
	if s.objects == nil {
		return "", fmt.Errorf("cover storage not configured")
	}
	book, ok, err := s.store.GetBook(bookID)
	if err != nil {
		return "", err
	}
	if !ok || book.CoverKey == "" {
		return "", domain.ErrNotFound
	}
	return s.objects.PresignGet(ctx, book.CoverKey, 15*time.Minute)
}

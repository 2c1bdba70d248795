package catalog

import (
	"context"
	"strings"
	"time"

	"shelfmark/pkg/authz"
	"shelfmark/pkg/domain"
)

// AuthorInput carries caller-supplied author fields.
type AuthorInput struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// CreateAuthor adds an author.
func (s *Service) CreateAuthor(ctx context.Context, p authz.Principal, in AuthorInput) (domain.Author, error) {
	if err := authz.Authorize(p, authz.ActionCreate, nil); err != nil {
		return domain.Author{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Author{}, domain.NewValidationError("name", "must not be empty")
	}
	now := time.Now().UTC()
	author := domain.Author{
		ID:        domain.NewID(),
		Name:      strings.TrimSpace(in.Name),
		Bio:       in.Bio,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAuthor(author); err != nil {
		return domain.Author{}, err
	}
	return author, nil
}

// UpdateAuthor replaces an author's fields.
func (s *Service) UpdateAuthor(ctx context.Context, p authz.Principal, id string, in AuthorInput) (domain.Author, error) {
	if err := authz.Authorize(p, authz.ActionUpdate, nil); err != nil {
		return domain.Author{}, err
	}
	existing, ok, err := s.store.GetAuthor(id)
	if err != nil {
		return domain.Author{}, err
	}
	if !ok {
		return domain.Author{}, domain.ErrNotFound
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Author{}, domain.NewValidationError("name", "must not be empty")
	}
	existing.Name = strings.TrimSpace(in.Name)
	existing.Bio = in.Bio
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateAuthor(existing); err != nil {
		return domain.Author{}, err
	}
	return existing, nil
}

// GetAuthor returns one author with its book count.
func (s *Service) GetAuthor(id string) (domain.Author, error) {
	author, ok, err := s.store.GetAuthor(id)
	if err != nil {
		return domain.Author{}, err
	}
	if !ok {
		return domain.Author{}, domain.ErrNotFound
	}
	return author, nil
}

// DeleteAuthor removes an author and the books attributed to them.
func (s *Service) DeleteAuthor(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.ActionDelete, nil); err != nil {
		return err
	}
	return s.store.DeleteAuthor(id)
}

// ListAuthors returns all authors with book counts.
func (s *Service) ListAuthors() ([]domain.Author, error) {
	return s.store.ListAuthors()
}

// CategoryInput carries caller-supplied category fields.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateCategory adds a category. Names are unique.
func (s *Service) CreateCategory(ctx context.Context, p authz.Principal, in CategoryInput) (domain.Category, error) {
	if err := authz.Authorize(p, authz.ActionCreate, nil); err != nil {
		return domain.Category{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Category{}, domain.NewValidationError("name", "must not be empty")
	}
	now := time.Now().UTC()
	category := domain.Category{
		ID:          domain.NewID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCategory(category); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// UpdateCategory replaces a category's fields.
func (s *Service) UpdateCategory(ctx context.Context, p authz.Principal, id string, in CategoryInput) (domain.Category, error) {
	if err := authz.Authorize(p, authz.ActionUpdate, nil); err != nil {
		return domain.Category{}, err
	}
	existing, ok, err := s.store.GetCategory(id)
	if err != nil {
		return domain.Category{}, err
	}
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Category{}, domain.NewValidationError("name", "must not be empty")
	}
	existing.Name = strings.TrimSpace(in.Name)
	existing.Description = in.Description
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateCategory(existing); err != nil {
		return domain.Category{}, err
	}
	return existing, nil
}

// GetCategory returns one category with its book count.
func (s *Service) GetCategory(id string) (domain.Category, error) {
	category, ok, err := s.store.GetCategory(id)
	if err != nil {
		return domain.Category{}, err
	}
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return category, nil
}

// DeleteCategory removes a category; books keep their other categories.
func (s *Service) DeleteCategory(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.ActionDelete, nil); err != nil {
		return err
	}
	return s.store.DeleteCategory(id)
}

// ListCategories returns all categories with book counts.
func (s *Service) ListCategories() ([]domain.Category, error) {
	return s.store.ListCategories()
}

// PublisherInput carries caller-supplied publisher fields.
type PublisherInput struct {
	Name    string `json:"name"`
	Website string `json:"website"`
}

// CreatePublisher adds a publisher.
func (s *Service) CreatePublisher(ctx context.Context, p authz.Principal, in PublisherInput) (domain.Publisher, error) {
	if err := authz.Authorize(p, authz.ActionCreate, nil); err != nil {
		return domain.Publisher{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Publisher{}, domain.NewValidationError("name", "must not be empty")
	}
	now := time.Now().UTC()
	publisher := domain.Publisher{
		ID:        domain.NewID(),
		Name:      strings.TrimSpace(in.Name),
		Website:   in.Website,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePublisher(publisher); err != nil {
		return domain.Publisher{}, err
	}
	return publisher, nil
}

// UpdatePublisher replaces a publisher's fields.
func (s *Service) UpdatePublisher(ctx context.Context, p authz.Principal, id string, in PublisherInput) (domain.Publisher, error) {
	if err := authz.Authorize(p, authz.ActionUpdate, nil); err != nil {
		return domain.Publisher{}, err
	}
	existing, ok, err := s.store.GetPublisher(id)
	if err != nil {
		return domain.Publisher{}, err
	}
	if !ok {
		return domain.Publisher{}, domain.ErrNotFound
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Publisher{}, domain.NewValidationError("name", "must not be empty")
	}
	existing.Name = strings.TrimSpace(in.Name)
	existing.Website = in.Website
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdatePublisher(existing); err != nil {
		return domain.Publisher{}, err
	}
	return existing, nil
}

// GetPublisher returns one publisher with its book count.
func (s *Service) GetPublisher(id string) (domain.Publisher, error) {
	publisher, ok, err := s.store.GetPublisher(id)
	if err != nil {
		return domain.Publisher{}, err
	}
	if !ok {
		return domain.Publisher{}, domain.ErrNotFound
	}
	return publisher, nil
}

// DeletePublisher removes a publisher; its books keep no publisher reference.
func (s *Service) DeletePublisher(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.ActionDelete, nil); err != nil {
		return err
	}
	return s.store.DeletePublisher(id)
}

// ListPublishers returns all publishers with book counts.
func (s *Service) ListPublishers() ([]domain.Publisher, error) {
	return s.store.ListPublishers()
}

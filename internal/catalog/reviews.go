package catalog

import (
	"context"
	"fmt"
	"time"

	"shelfmark/pkg/authz"
	"shelfmark/pkg/domain"
)

// ReviewInput carries caller-supplied review fields. The author is always
// the acting principal, never caller-supplied.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

func validateReviewInput(in ReviewInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return domain.NewValidationError("rating", fmt.Sprintf("must be between 1 and 5, got %d", in.Rating))
	}
	return nil
}

// CreateReview adds a review for a book on behalf of the principal. Each user
// may review a book once; a second attempt surfaces as a conflict.
func (s *Service) CreateReview(ctx context.Context, p authz.Principal, bookID string, in ReviewInput) (domain.Review, error) {
	if err := authz.Authorize(p, authz.ActionCreate, nil); err != nil {
		return domain.Review{}, err
	}
	if _, ok, err := s.store.GetBook(bookID); err != nil {
		return domain.Review{}, err
	} else if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	if err := validateReviewInput(in); err != nil {
		return domain.Review{}, err
	}
	now := time.Now().UTC()
	review := domain.Review{
		ID:        domain.NewID(),
		BookID:    bookID,
		UserID:    p.UserID,
		Rating:    in.Rating,
		Title:     in.Title,
		Comment:   in.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateReview(review); err != nil {
		return domain.Review{}, err
	}
	s.publish(ctx, domain.EventReviewCreated, review)
	return review, nil
}

// UpdateReview replaces a review's fields. Only the review's author may do so.
func (s *Service) UpdateReview(ctx context.Context, p authz.Principal, id string, in ReviewInput) (domain.Review, error) {
	existing, ok, err := s.store.GetReview(id)
	if err != nil {
		return domain.Review{}, err
	}
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	if err := authz.Authorize(p, authz.ActionUpdate, existing); err != nil {
		return domain.Review{}, err
	}
	if err := validateReviewInput(in); err != nil {
		return domain.Review{}, err
	}
	existing.Rating = in.Rating
	existing.Title = in.Title
	existing.Comment = in.Comment
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateReview(existing); err != nil {
		return domain.Review{}, err
	}
	s.publish(ctx, domain.EventReviewUpdated, existing)
	return existing, nil
}

// GetReview returns one review.
func (s *Service) GetReview(id string) (domain.Review, error) {
	review, ok, err := s.store.GetReview(id)
	if err != nil {
		return domain.Review{}, err
	}
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return review, nil
}

// DeleteReview removes a review. Only the review's author may do so.
func (s *Service) DeleteReview(ctx context.Context, p authz.Principal, id string) error {
	existing, ok, err := s.store.GetReview(id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	if err := authz.Authorize(p, authz.ActionDelete, existing); err != nil {
		return err
	}
	if err := s.store.DeleteReview(id); err != nil {
		return err
	}
	s.publish(ctx, domain.EventReviewDeleted, map[string]string{
		"reviewId": existing.ID,
		"bookId":   existing.BookID,
	})
	return nil
}

// ListReviews returns all reviews for a book.
func (s *Service) ListReviews(bookID string) ([]domain.Review, error) {
	if _, ok, err := s.store.GetBook(bookID); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrNotFound
	}
	return s.store.ListReviewsByBook(bookID)
}

// OrderItemInput names a book and a quantity within an order.
type OrderItemInput struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

// CreateOrder records a purchase for the principal. Unit prices are
// snapshotted from the catalog at order time.
func (s *Service) CreateOrder(ctx context.Context, p authz.Principal, items []OrderItemInput) (domain.Order, error) {
	if err := authz.Authorize(p, authz.ActionCreate, nil); err != nil {
		return domain.Order{}, err
	}
	if len(items) == 0 {
		return domain.Order{}, domain.NewValidationError("items", "must not be empty")
	}
	order := domain.Order{
		ID:        domain.NewID(),
		UserID:    p.UserID,
		Items:     make([]domain.OrderItem, 0, len(items)),
		CreatedAt: time.Now().UTC(),
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return domain.Order{}, domain.NewValidationError("items", "quantity must be at least 1")
		}
		book, ok, err := s.store.GetBook(item.BookID)
		if err != nil {
			return domain.Order{}, err
		}
		if !ok {
			return domain.Order{}, domain.NewValidationError("items", "unknown book "+item.BookID)
		}
		if book.Status != domain.StatusAvailable {
			return domain.Order{}, domain.NewValidationError("items", "book "+item.BookID+" is not available")
		}
		order.Items = append(order.Items, domain.OrderItem{
			BookID:    book.ID,
			Quantity:  item.Quantity,
			UnitPrice: book.Price,
		})
		order.Total += book.Price * float64(item.Quantity)
	}
	if err := s.store.CreateOrder(order); err != nil {
		return domain.Order{}, err
	}
	s.publish(ctx, domain.EventOrderCreated, order)
	return order, nil
}

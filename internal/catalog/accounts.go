package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"shelfmark/pkg/auth"
	"shelfmark/pkg/domain"
)

// ErrInvalidCredentials is returned on login with a wrong email or password.
// It deliberately does not say which was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// RegisterInput carries fields for account creation.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a user account. Emails are unique.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.NewValidationError("email", "must be a valid email address")
	}
	if len(in.Password) < 8 {
		return domain.User{}, domain.NewValidationError("password", "must be at least 8 characters")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           domain.NewID(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUser returns one user account.
func (s *Service) GetUser(id string) (domain.User, error) {
	user, ok, err := s.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

// Login checks credentials and returns the matching user.
func (s *Service) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, ok, err := s.store.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, err
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

package usertoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer   = "shelfmark"
	defaultAudience = "shelfmark-api"
	defaultTTL      = 24 * time.Hour
	defaultLeeway   = 30 * time.Second
)

var ErrInvalidToken = errors.New("invalid token")

// Config configures token issuing and verification.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

// Manager issues and verifies HS256 access tokens.
type Manager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
}

// NewManager builds a Manager; the signing secret is required.
func NewManager(cfg Config) (*Manager, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("token secret required")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := cfg.Audience
	if audience == "" {
		audience = defaultAudience
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Manager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		leeway:   leeway,
	}, nil
}

// Issue signs a token for the user ID.
func (m *Manager) Issue(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		Audience:  jwt.ClaimStrings{m.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifySubject validates the token and returns its subject (user ID).
func (m *Manager) VerifySubject(raw string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithLeeway(m.leeway),
		jwt.WithExpirationRequired(),
	)
	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return subject, nil
}

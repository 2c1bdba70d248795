// Package server exposes the catalog over HTTP.
package server

import (
	"net/http"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/internal/ratelimit"
	"shelfmark/internal/usertoken"
	"shelfmark/internal/util"
	"shelfmark/pkg/authz"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Service      *catalog.Service
	Tokens       *usertoken.Manager
	Limiter      *ratelimit.FixedWindowLimiter
	Proxies      *util.TrustedProxies
	MaxBodyBytes int64
}

// Server exposes HTTP endpoints for the catalog service.
type Server struct {
	svc          *catalog.Service
	tokens       *usertoken.Manager
	limiter      *ratelimit.FixedWindowLimiter
	proxies      *util.TrustedProxies
	mux          *http.ServeMux
	maxBodyBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	s := &Server{
		svc:          cfg.Service,
		tokens:       cfg.Tokens,
		limiter:      cfg.Limiter,
		proxies:      cfg.Proxies,
		mux:          http.NewServeMux(),
		maxBodyBytes: maxBodyBytes,
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("catalog", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// accounts
	s.mux.Handle("/auth/register", s.rateLimited(s.handleRegister))
	s.mux.Handle("/auth/login", s.rateLimited(s.handleLogin))

	// catalog
	s.mux.Handle("/books", s.withPrincipal(s.handleBooks))
	s.mux.HandleFunc("/books/bestsellers", s.handleBestsellers)
	s.mux.Handle("/books/", s.withPrincipal(s.handleBookSubtree))
	s.mux.Handle("/reviews/", s.withPrincipal(s.handleReviewByID))
	s.mux.Handle("/authors", s.withPrincipal(s.handleAuthors))
	s.mux.Handle("/authors/", s.withPrincipal(s.handleAuthorByID))
	s.mux.Handle("/categories", s.withPrincipal(s.handleCategories))
	s.mux.Handle("/categories/", s.withPrincipal(s.handleCategoryByID))
	s.mux.Handle("/publishers", s.withPrincipal(s.handlePublishers))
	s.mux.Handle("/publishers/", s.withPrincipal(s.handlePublisherByID))

	// orders
	s.mux.Handle("/orders", s.withPrincipal(s.handleOrders))

	// webhook management
	s.mux.Handle("/webhooks", s.withPrincipal(s.handleWebhooks))
	s.mux.Handle("/webhooks/", s.withPrincipal(s.handleWebhookSubtree))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// principalHandler receives the resolved principal; for requests without
// credentials this is the anonymous principal, not an error. Reads stay
// public that way and writes fail with 401 inside the policy.
type principalHandler func(http.ResponseWriter, *http.Request, authz.Principal)

func (s *Server) withPrincipal(next principalHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := authz.Anonymous
		if token, ok := bearerToken(r); ok {
			userID, err := s.tokens.VerifySubject(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			user, err := s.svc.GetUser(userID)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			p = authz.ForUser(user)
		}
		if s.limiter != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !s.limiter.Allow(util.ClientIP(r, s.proxies)) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next(w, r, p)
	})
}

func (s *Server) rateLimited(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(util.ClientIP(r, s.proxies)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

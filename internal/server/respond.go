package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/pkg/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForCatalog(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForCatalog(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized", message == "authentication required":
		return "AUTH_INVALID_TOKEN"
	case message == "invalid email or password":
		return "AUTH_INVALID_CREDENTIALS"
	case message == "forbidden":
		return "CATALOG_FORBIDDEN"
	case message == "invalid json body":
		return "CATALOG_INVALID_REQUEST"
	case message == "rate limit exceeded":
		return "SYSTEM_RATE_LIMITED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case strings.HasPrefix(message, "conflict on"):
		return "CATALOG_CONFLICT"
	case strings.HasPrefix(message, "invalid "):
		return "CATALOG_INVALID_REQUEST"
	}

	switch status {
	case http.StatusBadRequest:
		return "CATALOG_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "CATALOG_FORBIDDEN"
	case http.StatusNotFound:
		return "CATALOG_NOT_FOUND"
	case http.StatusConflict:
		return "CATALOG_CONFLICT"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

// respondError maps domain errors onto HTTP statuses. The 401/403 split is
// load-bearing: missing identity and insufficient rights are different
// answers.
func respondError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, catalog.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, s.maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

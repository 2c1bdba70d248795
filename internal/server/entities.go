package server

import (
	"net/http"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/pkg/authz"
)

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	switch r.Method {
	case http.MethodGet:
		authors, err := s.svc.ListAuthors()
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": authors, "count": len(authors)})
	case http.MethodPost:
		var in catalog.AuthorInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		author, err := s.svc.CreateAuthor(r.Context(), p, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, author)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAuthorByID(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	id := pathID(r.URL.Path, "/authors/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		author, err := s.svc.GetAuthor(id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, author)
	case http.MethodPut:
		var in catalog.AuthorInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		author, err := s.svc.UpdateAuthor(r.Context(), p, id, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, author)
	case http.MethodDelete:
		if err := s.svc.DeleteAuthor(r.Context(), p, id); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	switch r.Method {
	case http.MethodGet:
		categories, err := s.svc.ListCategories()
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": categories, "count": len(categories)})
	case http.MethodPost:
		var in catalog.CategoryInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		category, err := s.svc.CreateCategory(r.Context(), p, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, category)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	id := pathID(r.URL.Path, "/categories/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		category, err := s.svc.GetCategory(id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodPut:
		var in catalog.CategoryInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		category, err := s.svc.UpdateCategory(r.Context(), p, id, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodDelete:
		if err := s.svc.DeleteCategory(r.Context(), p, id); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePublishers(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	switch r.Method {
	case http.MethodGet:
		publishers, err := s.svc.ListPublishers()
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": publishers, "count": len(publishers)})
	case http.MethodPost:
		var in catalog.PublisherInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		publisher, err := s.svc.CreatePublisher(r.Context(), p, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, publisher)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePublisherByID(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	id := pathID(r.URL.Path, "/publishers/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		publisher, err := s.svc.GetPublisher(id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, publisher)
	case http.MethodPut:
		var in catalog.PublisherInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		publisher, err := s.svc.UpdatePublisher(r.Context(), p, id, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, publisher)
	case http.MethodDelete:
		if err := s.svc.DeletePublisher(r.Context(), p, id); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// pathID extracts a single trailing path segment; nested paths return "".
func pathID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

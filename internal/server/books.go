package server

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/pkg/authz"
)

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	switch r.Method {
	case http.MethodGet:
		s.handleQueryBooks(w, r)
	case http.MethodPost:
		s.handleCreateBook(w, r, p)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleQueryBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := catalog.QueryParams{
		Status:      q.Get("status"),
		AuthorID:    q.Get("author"),
		PublisherID: q.Get("publisher"),
		CategoryID:  q.Get("category"),
		Search:      q.Get("search"),
	}
	if raw := q.Get("ordering"); raw != "" {
		params.Ordering = strings.Split(raw, ",")
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page: must be a positive integer")
			return
		}
		params.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page_size: must be a positive integer")
			return
		}
		params.PageSize = n
	}
	page, err := s.svc.QueryBooks(params)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	var in catalog.BookInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	book, err := s.svc.CreateBook(r.Context(), p, in)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleBestsellers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.svc.Bestsellers()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

// /books/{id}, /books/{id}/cover, /books/{id}/reviews
func (s *Server) handleBookSubtree(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "cover":
			s.handleBookCover(w, r, p, id)
		case "reviews":
			s.handleBookReviews(w, r, p, id)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
		return
	}
	s.handleBookByID(w, r, p, id)
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, p authz.Principal, id string) {
	switch r.Method {
	case http.MethodGet:
		book, err := s.svc.GetBook(id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodPut:
		var in catalog.BookInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		book, err := s.svc.UpdateBook(r.Context(), p, id, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodDelete:
		if err := s.svc.DeleteBook(r.Context(), p, id); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBookCover(w http.ResponseWriter, r *http.Request, p authz.Principal, id string) {
	switch r.Method {
	case http.MethodGet:
		url, err := s.svc.CoverURL(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	case http.MethodPost:
		if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()
		ext := filepath.Ext(header.Filename)
		if err := s.svc.UploadCover(r.Context(), p, id, ext, file, header.Size); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
	default:
		methodNotAllowed(w)
	}
}

const maxCoverBytes = 10 << 20

func (s *Server) handleBookReviews(w http.ResponseWriter, r *http.Request, p authz.Principal, bookID string) {
	switch r.Method {
	case http.MethodGet:
		reviews, err := s.svc.ListReviews(bookID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": reviews,
			"count": len(reviews),
		})
	case http.MethodPost:
		var in catalog.ReviewInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		review, err := s.svc.CreateReview(r.Context(), p, bookID, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, review)
	default:
		methodNotAllowed(w)
	}
}

// /reviews/{id}
func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	id := strings.TrimPrefix(r.URL.Path, "/reviews/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		review, err := s.svc.GetReview(id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	case http.MethodPut:
		var in catalog.ReviewInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		review, err := s.svc.UpdateReview(r.Context(), p, id, in)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	case http.MethodDelete:
		if err := s.svc.DeleteReview(r.Context(), p, id); err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

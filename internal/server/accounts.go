package server

import (
	"net/http"

	"shelfmark/internal/catalog"
	"shelfmark/pkg/authz"
)

type authResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in catalog.RegisterInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	user, err := s.svc.Register(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}
	user, err := s.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request, p authz.Principal) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in struct {
		Items []catalog.OrderItemInput `json:"items"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}
	order, err := s.svc.CreateOrder(r.Context(), p, in.Items)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

package httpapi

import (
	"net/http"
	"strings"

	"olympreg/internal/auth"
	dErrors "olympreg/pkg/domain-errors"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Kind      string `json:"kind"`
	CountryID string `json:"country_id,omitempty"`
	PersonID  string `json:"person_id,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, actor, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Failed logins are 401, not the 403 the permission code
		// otherwise maps to.
		if dErrors.HasCode(err, dErrors.CodePermissionDenied) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "invalid_credentials",
				"message": err.Error(),
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		Kind:      string(actor.Kind),
		CountryID: actor.CountryID,
		PersonID:  actor.PersonID,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if err := s.auth.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createAccountRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Kind      string `json:"kind"`
	CountryID string `json:"country_id,omitempty"`
	PersonID  string `json:"person_id,omitempty"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := s.auth.CreateAccount(r.Context(), auth.ActorFrom(r.Context()), auth.Account{
		Username:  req.Username,
		Kind:      auth.Kind(req.Kind),
		CountryID: req.CountryID,
		PersonID:  req.PersonID,
	}, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       account.ID,
		"username": account.Username,
	})
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"olympreg/internal/auth"
	"olympreg/internal/country"
)

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.countries.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleGetCountry(w http.ResponseWriter, r *http.Request) {
	c, err := s.countries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCountry(w http.ResponseWriter, r *http.Request) {
	var in country.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := s.countries.Create(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCountry(w http.ResponseWriter, r *http.Request) {
	var in country.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := s.countries.Update(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRetireCountry(w http.ResponseWriter, r *http.Request) {
	if err := s.countries.Retire(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

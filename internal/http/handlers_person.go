package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"olympreg/internal/auth"
	"olympreg/internal/person"
)

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.people.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handlePeopleByCountry(w http.ResponseWriter, r *http.Request) {
	people, err := s.people.ByCountry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.people.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var in person.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := s.people.Create(r.Context(), auth.ActorFrom(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	var in person.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := s.people.Update(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRetirePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.people.Retire(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

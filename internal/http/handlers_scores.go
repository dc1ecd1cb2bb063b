package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"olympreg/internal/auth"
	dErrors "olympreg/pkg/domain-errors"
)

type enterScoresRequest struct {
	// Entries maps person ID to the raw score cell: digits, or blank to
	// clear.
	Entries map[string]string `json:"entries"`
}

func (s *Server) handleEnterScores(w http.ResponseWriter, r *http.Request) {
	problem, err := strconv.Atoi(chi.URLParam(r, "problem"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeFormatInvalid, "Invalid problem number"))
		return
	}
	var req enterScoresRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	countryID := chi.URLParam(r, "id")
	if err := s.scores.Enter(r.Context(), auth.ActorFrom(r.Context()), countryID, problem, req.Entries); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := s.scores.Standings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

package httpapi

import (
	"fmt"
	"net/http"

	"olympreg/internal/auth"
)

func serveCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportCountries(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.Countries(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	serveCSV(w, "countries.csv", data)
}

func (s *Server) handleExportPeople(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.People(r.Context(), auth.ActorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	serveCSV(w, "people.csv", data)
}

func (s *Server) handleExportScores(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.Scores(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	serveCSV(w, "scores.csv", data)
}

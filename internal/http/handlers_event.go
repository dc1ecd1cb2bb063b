package httpapi

import (
	"net/http"

	"olympreg/internal/auth"
	"olympreg/internal/event"
)

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	state, err := s.events.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type flagsRequest struct {
	RegistrationEnabled    *bool `json:"registration_enabled"`
	PreregistrationEnabled *bool `json:"preregistration_enabled"`
	SelfScoringEnabled     *bool `json:"self_scoring_enabled"`
}

func (s *Server) handleSetFlags(w http.ResponseWriter, r *http.Request) {
	var req flagsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := s.events.SetFlags(r.Context(), auth.ActorFrom(r.Context()), event.FlagsInput{
		RegistrationEnabled:    req.RegistrationEnabled,
		PreregistrationEnabled: req.PreregistrationEnabled,
		SelfScoringEnabled:     req.SelfScoringEnabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type boundariesRequest struct {
	// Each field keeps the current value when absent and unsets it when
	// blank.
	Gold   *string `json:"gold"`
	Silver *string `json:"silver"`
	Bronze *string `json:"bronze"`
}

func (s *Server) handleSetBoundaries(w http.ResponseWriter, r *http.Request) {
	var req boundariesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := s.events.SetBoundaries(r.Context(), auth.ActorFrom(r.Context()), event.BoundariesInput{
		Gold:   req.Gold,
		Silver: req.Silver,
		Bronze: req.Bronze,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"olympreg/internal/auth"
	"olympreg/internal/files"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/platform/sentinel"
)

// handleDownloadFile serves one stored upload. Visibility is resolved fresh
// per request from the owning record's current consent state; denial is a
// plain 403 with no hint whether the file exists.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.files.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, dErrors.New(dErrors.CodeNotFound, "file not found"))
			return
		}
		writeError(w, err)
		return
	}

	owner, err := s.ownerOf(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	actor := auth.ActorFrom(r.Context())
	state := files.Resolve(f, owner)
	if !files.CanView(state, actor, owner) {
		s.metrics.CountFileDenied()
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   "forbidden",
			"message": "you may not view this file",
		})
		return
	}

	s.metrics.CountFileServed()
	w.Header().Set("Content-Type", f.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Content)
}

// ownerOf finds the record a file currently belongs to and snapshots its
// consent-relevant fields. A file no record references is only reachable as
// superseded, which resolves to admin-only regardless of owner.
func (s *Server) ownerOf(ctx context.Context, f files.File) (files.Owner, error) {
	switch f.Kind {
	case files.KindFlag:
		countries, err := s.countries.List(ctx)
		if err != nil {
			return files.Owner{}, err
		}
		for _, c := range countries {
			if c.FlagFileID == f.ID {
				return files.Owner{CountryID: c.ID, CountryRetired: c.Retired}, nil
			}
		}
	case files.KindPhoto, files.KindConsentForm:
		people, err := s.people.List(ctx)
		if err != nil {
			return files.Owner{}, err
		}
		for _, p := range people {
			if p.PhotoFileID != f.ID && p.ConsentFormFileID != f.ID {
				continue
			}
			c, err := s.countries.Get(ctx, p.CountryID)
			if err != nil {
				return files.Owner{}, err
			}
			return files.Owner{
				CountryID:      p.CountryID,
				PersonID:       p.ID,
				CountryRetired: c.Retired,
				PersonRetired:  p.Retired,
				ConsentUI:      s.eventCfg.ConsentUI,
				PhotoConsent:   p.PhotoConsent,
			}, nil
		}
	}
	return files.Owner{}, nil
}

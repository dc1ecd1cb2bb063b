package country

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/event"
	"olympreg/internal/files"
	"olympreg/internal/platform/metrics"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/platform/sentinel"
)

// PeopleCascade is what retiring a country needs from the person domain.
// Person depends on country for its own auditing, so this direction stays an
// interface to keep the packages acyclic.
type PeopleCascade interface {
	RetireByCountry(ctx context.Context, countryID string) error
	PruneGuideFor(ctx context.Context, countryID string) error
}

// AccountsCascade is what retiring a country needs from the auth domain:
// its delegate and self-registration logins stop working.
type AccountsCascade interface {
	DisableByCountry(ctx context.Context, countryID string) error
}

// Service orchestrates country mutations: access gate, auditor, store commit,
// then notification. Business rules live in the auditor.
type Service struct {
	store    Store
	fileSt   files.Store
	auditor  *Auditor
	events   event.Store
	people   PeopleCascade
	accounts AccountsCascade
	pub      audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(store Store, fileSt files.Store, auditor *Auditor, events event.Store, pub audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		fileSt:  fileSt,
		auditor: auditor,
		events:  events,
		pub:     pub,
		metrics: m,
		logger:  logger,
	}
}

// SetPeopleCascade wires the person domain in after construction.
func (s *Service) SetPeopleCascade(people PeopleCascade) { s.people = people }

// SetAccountsCascade wires the auth domain in after construction.
func (s *Service) SetAccountsCascade(accounts AccountsCascade) { s.accounts = accounts }

// Store exposes the uniqueness view for the bulk import overlay.
func (s *Service) Store() Store { return s.store }

// Auditor exposes the rulebook for the bulk import pipeline.
func (s *Service) Auditor() *Auditor { return s.auditor }

// Create validates and commits a new country.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Country, error) {
	state, err := s.events.Get(ctx)
	if err != nil {
		return Country{}, err
	}
	out, flag, err := s.auditor.Audit(ctx, state, actor, in, nil, s.store)
	if err != nil {
		return Country{}, err
	}
	out.ID = uuid.NewString()
	if flag != nil {
		if err := s.fileSt.Save(ctx, *flag); err != nil {
			return Country{}, fmt.Errorf("save flag: %w", err)
		}
	}
	if err := s.store.Save(ctx, out); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Country{}, dErrors.Wrap(dErrors.CodeUniqueness,
				fmt.Sprintf("A country with code %s already exists", out.Code), err)
		}
		return Country{}, fmt.Errorf("save country: %w", err)
	}
	s.metrics.CountRegistration("country")
	s.pub.Emit(ctx, audit.Event{
		Action:    audit.ActionCountryCreated,
		Entity:    "country",
		EntityID:  out.ID,
		CountryID: out.ID,
		ActorKind: string(actor.Kind),
		Summary:   fmt.Sprintf("Country %s (%s) registered", out.Name, out.Code),
	})
	return out, nil
}

// Update validates and commits an edit of an existing country.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in Input) (Country, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return Country{}, err
	}
	if !actor.IsAdmin() && !actor.CanActFor(id) {
		return Country{}, dErrors.New(dErrors.CodePermissionDenied,
			"You may only edit your own country")
	}
	state, err := s.events.Get(ctx)
	if err != nil {
		return Country{}, err
	}
	out, flag, err := s.auditor.Audit(ctx, state, actor, in, &prev, s.store)
	if err != nil {
		return Country{}, err
	}
	if flag != nil {
		if err := s.fileSt.Save(ctx, *flag); err != nil {
			return Country{}, fmt.Errorf("save flag: %w", err)
		}
		// The old flag leaves public visibility for good.
		if prev.FlagFileID != "" {
			if err := s.fileSt.Supersede(ctx, prev.FlagFileID); err != nil {
				return Country{}, fmt.Errorf("supersede flag: %w", err)
			}
		}
	}
	if err := s.store.Update(ctx, out); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Country{}, dErrors.Wrap(dErrors.CodeUniqueness,
				fmt.Sprintf("A country with code %s already exists", out.Code), err)
		}
		return Country{}, fmt.Errorf("update country: %w", err)
	}
	s.pub.Emit(ctx, audit.Event{
		Action:    audit.ActionCountryUpdated,
		Entity:    "country",
		EntityID:  out.ID,
		CountryID: out.ID,
		ActorKind: string(actor.Kind),
		Summary:   fmt.Sprintf("Country %s (%s) updated", out.Name, out.Code),
	})
	return out, nil
}

// Retire soft-deletes a country and cascades: its people are retired, guides
// of other countries stop guiding it, and its files drop out of anonymous
// visibility through the resolver on the next read.
func (s *Service) Retire(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsAdmin() {
		return dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may retire countries")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsStaff {
		return dErrors.New(dErrors.CodePermissionDenied,
			"The staff country cannot be retired")
	}
	if c.Retired {
		return nil
	}
	if s.people != nil {
		if err := s.people.RetireByCountry(ctx, id); err != nil {
			return fmt.Errorf("retire people: %w", err)
		}
		if err := s.people.PruneGuideFor(ctx, id); err != nil {
			return fmt.Errorf("prune guides: %w", err)
		}
	}
	if s.accounts != nil {
		if err := s.accounts.DisableByCountry(ctx, id); err != nil {
			return fmt.Errorf("disable accounts: %w", err)
		}
	}
	c.Retired = true
	if err := s.store.Update(ctx, c); err != nil {
		return fmt.Errorf("retire country: %w", err)
	}
	s.pub.Emit(ctx, audit.Event{
		Action:    audit.ActionCountryRetired,
		Entity:    "country",
		EntityID:  c.ID,
		CountryID: c.ID,
		ActorKind: string(actor.Kind),
		Summary:   fmt.Sprintf("Country %s (%s) retired", c.Name, c.Code),
	})
	return nil
}

// Get returns one country by ID.
func (s *Service) Get(ctx context.Context, id string) (Country, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Country{}, dErrors.New(dErrors.CodeNotFound, "country not found")
		}
		return Country{}, err
	}
	return c, nil
}

// List returns all countries, retired ones included; callers filter.
func (s *Service) List(ctx context.Context) ([]Country, error) {
	return s.store.List(ctx)
}

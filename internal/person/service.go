package person

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/country"
	"olympreg/internal/event"
	"olympreg/internal/files"
	"olympreg/internal/platform/metrics"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/platform/sentinel"
)

// CountryDirectory resolves country references during audits.
type CountryDirectory interface {
	Country(ctx context.Context, id string) (CountryView, error)
}

type countryDirectory struct {
	store country.Store
}

// NewCountryDirectory adapts the country store into the auditor's view.
func NewCountryDirectory(store country.Store) CountryDirectory {
	return countryDirectory{store: store}
}

func (d countryDirectory) Country(ctx context.Context, id string) (CountryView, error) {
	c, err := d.store.Get(ctx, id)
	if err != nil {
		return CountryView{}, err
	}
	return CountryView{
		ID:             c.ID,
		IsStaff:        c.IsStaff,
		ParticipantsOK: c.ParticipantsOK,
		Retired:        c.Retired,
	}, nil
}

// storeLookup joins the country directory with the person store's role
// uniqueness view.
type storeLookup struct {
	CountryDirectory
	store Store
}

func (l storeLookup) RoleTaken(ctx context.Context, countryID, role, excludeID string) (bool, error) {
	return l.store.RoleTaken(ctx, countryID, role, excludeID)
}

// Service orchestrates person mutations. It also implements the cascade the
// country domain triggers when a country is retired.
type Service struct {
	store     Store
	fileSt    files.Store
	auditor   *Auditor
	events    event.Store
	countries CountryDirectory
	pub       audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(store Store, fileSt files.Store, auditor *Auditor, events event.Store, countries CountryDirectory, pub audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		fileSt:    fileSt,
		auditor:   auditor,
		events:    events,
		countries: countries,
		pub:       pub,
		metrics:   m,
		logger:    logger,
	}
}

// Store exposes the role uniqueness view for the bulk import overlay.
func (s *Service) Store() Store { return s.store }

// Auditor exposes the rulebook for the bulk import pipeline.
func (s *Service) Auditor() *Auditor { return s.auditor }

func (s *Service) lookup() Lookup {
	return storeLookup{CountryDirectory: s.countries, store: s.store}
}

// Create validates and commits a new person.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in Input) (Person, error) {
	switch actor.Kind {
	case auth.KindAdmin, auth.KindDelegate:
	default:
		return Person{}, dErrors.New(dErrors.CodePermissionDenied,
			"You do not have permission to register participants")
	}
	state, err := s.events.Get(ctx)
	if err != nil {
		return Person{}, err
	}
	res, err := s.auditor.Audit(ctx, state, actor, in, nil, s.lookup())
	if err != nil {
		return Person{}, err
	}
	res.Person.ID = uuid.NewString()
	if err := s.saveUploads(ctx, res); err != nil {
		return Person{}, err
	}
	if err := s.store.Save(ctx, res.Person); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Person{}, dErrors.Wrap(dErrors.CodeUniqueness,
				"A person with this role already exists", err)
		}
		return Person{}, fmt.Errorf("save person: %w", err)
	}
	s.metrics.CountRegistration("person")
	s.emit(ctx, audit.ActionPersonCreated, actor, res.Person, "registered")
	return res.Person, nil
}

// Update validates and commits an edit of an existing person.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in Input) (Person, error) {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return Person{}, err
	}
	if !actor.OwnsPerson(prev.ID, prev.CountryID) {
		return Person{}, dErrors.New(dErrors.CodePermissionDenied,
			"You may only edit people from your own country")
	}
	if prev.Retired {
		return Person{}, dErrors.New(dErrors.CodeStateConflict,
			"This registration has been withdrawn")
	}
	state, err := s.events.Get(ctx)
	if err != nil {
		return Person{}, err
	}
	res, err := s.auditor.Audit(ctx, state, actor, in, &prev, s.lookup())
	if err != nil {
		return Person{}, err
	}
	if err := s.saveUploads(ctx, res); err != nil {
		return Person{}, err
	}
	// A replaced photo or consent form permanently leaves circulation.
	if res.Photo != nil && prev.PhotoFileID != "" {
		if err := s.fileSt.Supersede(ctx, prev.PhotoFileID); err != nil {
			return Person{}, fmt.Errorf("supersede photo: %w", err)
		}
	}
	if res.ConsentForm != nil && prev.ConsentFormFileID != "" {
		if err := s.fileSt.Supersede(ctx, prev.ConsentFormFileID); err != nil {
			return Person{}, fmt.Errorf("supersede consent form: %w", err)
		}
	}
	if err := s.store.Update(ctx, res.Person); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Person{}, dErrors.Wrap(dErrors.CodeUniqueness,
				"A person with this role already exists", err)
		}
		return Person{}, fmt.Errorf("update person: %w", err)
	}
	s.emit(ctx, audit.ActionPersonUpdated, actor, res.Person, "updated")
	return res.Person, nil
}

// Retire withdraws one registration. Files stay stored; the visibility
// resolver hides them on the next read.
func (s *Service) Retire(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsAdmin() {
		return dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may retire registrations")
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Retired {
		return nil
	}
	p.Retired = true
	if err := s.store.Update(ctx, p); err != nil {
		return fmt.Errorf("retire person: %w", err)
	}
	s.emit(ctx, audit.ActionPersonRetired, actor, p, "retired")
	return nil
}

// RetireByCountry implements the cascade for country retirement.
func (s *Service) RetireByCountry(ctx context.Context, countryID string) error {
	retired, err := s.store.RetireByCountry(ctx, countryID)
	if err != nil {
		return fmt.Errorf("retire people of country: %w", err)
	}
	for _, p := range retired {
		s.pub.Emit(ctx, audit.Event{
			Action:    audit.ActionPersonRetired,
			Entity:    "person",
			EntityID:  p.ID,
			CountryID: p.CountryID,
			ActorKind: string(auth.KindAdmin),
			Summary:   fmt.Sprintf("%s %s retired with their country", p.GivenName, p.FamilyName),
		})
	}
	return nil
}

// PruneGuideFor implements the cascade for country retirement: guides stop
// guiding the retired country.
func (s *Service) PruneGuideFor(ctx context.Context, countryID string) error {
	return s.store.PruneGuideFor(ctx, countryID)
}

// Get returns one person by ID.
func (s *Service) Get(ctx context.Context, id string) (Person, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Person{}, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return Person{}, err
	}
	return p, nil
}

// List returns all people, retired ones included; callers filter.
func (s *Service) List(ctx context.Context) ([]Person, error) {
	return s.store.List(ctx)
}

// ByCountry returns all people of one country.
func (s *Service) ByCountry(ctx context.Context, countryID string) ([]Person, error) {
	return s.store.ByCountry(ctx, countryID)
}

func (s *Service) saveUploads(ctx context.Context, res Result) error {
	if res.Photo != nil {
		if err := s.fileSt.Save(ctx, *res.Photo); err != nil {
			return fmt.Errorf("save photo: %w", err)
		}
	}
	if res.ConsentForm != nil {
		if err := s.fileSt.Save(ctx, *res.ConsentForm); err != nil {
			return fmt.Errorf("save consent form: %w", err)
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, actor auth.Actor, p Person, verb string) {
	s.pub.Emit(ctx, audit.Event{
		Action:    action,
		Entity:    "person",
		EntityID:  p.ID,
		CountryID: p.CountryID,
		ActorKind: string(actor.Kind),
		Summary:   fmt.Sprintf("%s %s (%s) %s", p.GivenName, p.FamilyName, p.PrimaryRole, verb),
	})
}

package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/event"
	"olympreg/internal/person"
	"olympreg/internal/platform/metrics"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/validate"
)

// PeopleView is what scoring needs from the person domain.
type PeopleView interface {
	ByCountry(ctx context.Context, countryID string) ([]person.Person, error)
	List(ctx context.Context) ([]person.Person, error)
}

// Service enters score cells and reports standings. Cell mutation is open
// only between registration closing and medal boundaries being set.
type Service struct {
	cfg     event.Config
	store   Store
	people  PeopleView
	events  event.Store
	pub     audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(cfg event.Config, store Store, people PeopleView, events event.Store, pub audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		people:  people,
		events:  events,
		pub:     pub,
		metrics: m,
		logger:  logger,
	}
}

type cellChange struct {
	personID string
	score    int
	entered  bool
}

// Enter submits one problem's scores for a country's contestants. Values are
// strings as typed: blank clears the cell, resubmitting the current value is
// a no-op. The state gates apply only when a cell would actually change.
func (s *Service) Enter(ctx context.Context, actor auth.Actor, countryID string, problem int, entries map[string]string) error {
	if problem < 1 || problem > s.cfg.NumProblems || problem > len(s.cfg.MarksPerProblem) {
		return dErrors.New(dErrors.CodeFormatInvalid, "Invalid problem number")
	}
	if err := s.allowed(ctx, actor, countryID); err != nil {
		return err
	}

	team, err := s.people.ByCountry(ctx, countryID)
	if err != nil {
		return fmt.Errorf("load country people: %w", err)
	}
	byID := make(map[string]person.Person, len(team))
	for _, p := range team {
		byID[p.ID] = p
	}

	var changes []cellChange
	for personID, raw := range entries {
		p, ok := byID[personID]
		if !ok || p.Retired {
			return dErrors.New(dErrors.CodeReferenceInvalid, "Invalid person")
		}
		if !p.IsContestant() {
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Scores may only be entered for contestants")
		}
		score, entered, err := validate.Score(raw, s.cfg.MarksPerProblem[problem-1])
		if err != nil {
			return err
		}
		current, err := s.store.ByPerson(ctx, personID)
		if err != nil {
			return fmt.Errorf("load scores: %w", err)
		}
		prev, had := current[problem]
		if entered == had && (!entered || score == prev) {
			continue
		}
		changes = append(changes, cellChange{personID: personID, score: score, entered: entered})
	}
	if len(changes) == 0 {
		return nil
	}

	state, err := s.events.Get(ctx)
	if err != nil {
		return err
	}
	if state.RegistrationEnabled {
		return dErrors.New(dErrors.CodeStateConflict,
			"Registration must be disabled before scores are entered")
	}
	if state.Boundaries.Set() {
		return dErrors.New(dErrors.CodeStateConflict,
			"Scores cannot be entered after medal boundaries are set")
	}

	for _, c := range changes {
		if c.entered {
			err = s.store.Set(ctx, c.personID, problem, c.score)
		} else {
			err = s.store.Clear(ctx, c.personID, problem)
		}
		if err != nil {
			return err
		}
		s.metrics.CountScore()
	}
	s.pub.Emit(ctx, audit.Event{
		Action:    audit.ActionScoresEntered,
		Entity:    "score",
		CountryID: countryID,
		ActorKind: string(actor.Kind),
		Summary:   fmt.Sprintf("Scores entered for problem %d", problem),
	})
	return nil
}

func (s *Service) allowed(ctx context.Context, actor auth.Actor, countryID string) error {
	switch actor.Kind {
	case auth.KindAdmin, auth.KindScoreEntry:
		return nil
	case auth.KindDelegate:
		state, err := s.events.Get(ctx)
		if err != nil {
			return err
		}
		if state.SelfScoringEnabled && actor.CountryID == countryID {
			return nil
		}
	}
	return dErrors.New(dErrors.CodePermissionDenied,
		"You do not have permission to enter scores")
}

// Standings returns score rows for all active contestants, every country, in
// descending total order. Awards appear once boundaries are set.
func (s *Service) Standings(ctx context.Context) ([]Standing, error) {
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load people: %w", err)
	}
	state, err := s.events.Get(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}

	var out []Standing
	for _, p := range people {
		if p.Retired || !p.IsContestant() {
			continue
		}
		row := Standing{
			PersonID:   p.ID,
			CountryID:  p.CountryID,
			GivenName:  p.GivenName,
			FamilyName: p.FamilyName,
			Role:       p.PrimaryRole,
			Scores:     all[p.ID],
		}
		for _, score := range row.Scores {
			row.Total += score
		}
		row.Award = state.Boundaries.Award(row.Total)
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out, nil
}

// AllScoresEntered reports whether every active contestant has a score for
// every problem. Medal boundaries cannot be set before this holds.
func (s *Service) AllScoresEntered(ctx context.Context) (bool, error) {
	people, err := s.people.List(ctx)
	if err != nil {
		return false, fmt.Errorf("load people: %w", err)
	}
	all, err := s.store.All(ctx)
	if err != nil {
		return false, fmt.Errorf("load scores: %w", err)
	}
	for _, p := range people {
		if p.Retired || !p.IsContestant() {
			continue
		}
		if len(all[p.ID]) < s.cfg.NumProblems {
			return false, nil
		}
	}
	return true, nil
}

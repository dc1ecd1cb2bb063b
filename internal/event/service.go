package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/validate"
)

// ScoresChecker reports whether every contestant's scores are in. The
// scoring service implements it; the indirection keeps the packages acyclic.
type ScoresChecker interface {
	AllScoresEntered(ctx context.Context) (bool, error)
}

// BoundariesInput carries medal boundary edits. A nil field keeps the
// current value, an empty string unsets it.
type BoundariesInput struct {
	Gold   *string
	Silver *string
	Bronze *string
}

// FlagsInput carries registration flag toggles. A nil field keeps the
// current value.
type FlagsInput struct {
	RegistrationEnabled    *bool
	PreregistrationEnabled *bool
	SelfScoringEnabled     *bool
}

// Service mutates the event singleton: the enable flags and the medal
// boundary triple with its one-way freeze of score entry.
type Service struct {
	cfg    Config
	store  Store
	scores ScoresChecker
	pub    audit.Publisher
	logger *slog.Logger
}

func NewService(cfg Config, store Store, pub audit.Publisher, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, store: store, pub: pub, logger: logger}
}

// SetScoresChecker wires the scoring domain in after construction.
func (s *Service) SetScoresChecker(scores ScoresChecker) { s.scores = scores }

// Get returns the current event state.
func (s *Service) Get(ctx context.Context) (State, error) {
	return s.store.Get(ctx)
}

// SetBoundaries edits the medal boundary triple. The first set must supply
// all three at once and is gated on registration being closed and every
// score being in; individual boundaries may be adjusted afterwards, and
// unsetting all three together re-opens score entry.
func (s *Service) SetBoundaries(ctx context.Context, actor auth.Actor, in BoundariesInput) (State, error) {
	if !actor.IsAdmin() {
		return State{}, dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may set medal boundaries")
	}
	maxBoundary := s.cfg.TotalMarks() + 1

	state, err := s.store.Update(ctx, func(st *State) error {
		wasSet := st.Boundaries.Set()
		gold, err := mergeBoundary("gold_boundary", in.Gold, st.Boundaries.Gold, maxBoundary)
		if err != nil {
			return err
		}
		silver, err := mergeBoundary("silver_boundary", in.Silver, st.Boundaries.Silver, maxBoundary)
		if err != nil {
			return err
		}
		bronze, err := mergeBoundary("bronze_boundary", in.Bronze, st.Boundaries.Bronze, maxBoundary)
		if err != nil {
			return err
		}

		setCount := 0
		for _, b := range []*int{gold, silver, bronze} {
			if b != nil {
				setCount++
			}
		}
		switch setCount {
		case 0:
			st.Boundaries = MedalBoundaries{}
			return nil
		case 3:
		default:
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Must set all medal boundaries at once")
		}

		if *gold < *silver || *silver < *bronze {
			return dErrors.New(dErrors.CodeFormatInvalid,
				"Medal boundaries must not increase from gold to bronze")
		}

		if !wasSet {
			if st.RegistrationEnabled {
				return dErrors.New(dErrors.CodeStateConflict,
					"Registration must be disabled before medal boundaries are set")
			}
			done, err := s.scores.AllScoresEntered(ctx)
			if err != nil {
				return err
			}
			if !done {
				return dErrors.New(dErrors.CodeStateConflict,
					"Scores not all entered")
			}
		}
		st.Boundaries = MedalBoundaries{Gold: gold, Silver: silver, Bronze: bronze}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	action := audit.ActionBoundariesSet
	summary := "Medal boundaries set"
	if !state.Boundaries.Set() {
		action = audit.ActionBoundariesUnset
		summary = "Medal boundaries unset, score entry re-opened"
	}
	s.pub.Emit(ctx, audit.Event{
		Action:    action,
		Entity:    "event",
		ActorKind: string(actor.Kind),
		Summary:   summary,
	})
	return state, nil
}

func mergeBoundary(field string, proposed *string, current *int, max int) (*int, error) {
	if proposed == nil {
		return current, nil
	}
	if *proposed == "" {
		return nil, nil
	}
	n, err := validate.BoundedInt(field, *proposed, max)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// SetFlags toggles the registration, preregistration, and self-scoring
// switches.
func (s *Service) SetFlags(ctx context.Context, actor auth.Actor, in FlagsInput) (State, error) {
	if !actor.IsAdmin() {
		return State{}, dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may change event flags")
	}
	var changed []string
	state, err := s.store.Update(ctx, func(st *State) error {
		if in.RegistrationEnabled != nil && *in.RegistrationEnabled != st.RegistrationEnabled {
			st.RegistrationEnabled = *in.RegistrationEnabled
			changed = append(changed, flagChange("registration", st.RegistrationEnabled))
		}
		if in.PreregistrationEnabled != nil && *in.PreregistrationEnabled != st.PreregistrationEnabled {
			st.PreregistrationEnabled = *in.PreregistrationEnabled
			changed = append(changed, flagChange("preregistration", st.PreregistrationEnabled))
		}
		if in.SelfScoringEnabled != nil && *in.SelfScoringEnabled != st.SelfScoringEnabled {
			st.SelfScoringEnabled = *in.SelfScoringEnabled
			changed = append(changed, flagChange("self-scoring", st.SelfScoringEnabled))
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}
	if len(changed) > 0 {
		s.pub.Emit(ctx, audit.Event{
			Action:    audit.ActionEventFlags,
			Entity:    "event",
			ActorKind: string(actor.Kind),
			Summary:   fmt.Sprintf("Event flags changed: %s", strings.Join(changed, ", ")),
		})
	}
	return state, nil
}

func flagChange(name string, enabled bool) string {
	if enabled {
		return name + " enabled"
	}
	return name + " disabled"
}

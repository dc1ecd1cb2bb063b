package scoring

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/event"
	"olympreg/internal/person"
	dErrors "olympreg/pkg/domain-errors"
)

var admin = auth.Actor{Kind: auth.KindAdmin}

func intp(n int) *int { return &n }

type ScoringSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	people  *person.InMemoryStore
	events  *event.InMemoryStore
	pub     *audit.InMemoryPublisher
	service *Service
}

func TestScoringSuite(t *testing.T) {
	suite.Run(t, new(ScoringSuite))
}

func (s *ScoringSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.people = person.NewInMemoryStore()
	// Registration already closed, the normal state during the contest.
	s.events = event.NewInMemoryStore(event.State{})
	s.pub = audit.NewInMemoryPublisher()
	cfg := event.Config{NumProblems: 3, MarksPerProblem: []int{7, 7, 7}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(cfg, s.store, s.people, s.events, s.pub, nil, logger)

	for _, p := range []person.Person{
		{ID: "c1p1", CountryID: "no1", GivenName: "Ada", FamilyName: "Lovelace", PrimaryRole: "Contestant 1"},
		{ID: "c1p2", CountryID: "no1", GivenName: "Alan", FamilyName: "Turing", PrimaryRole: "Contestant 2"},
		{ID: "c1lead", CountryID: "no1", GivenName: "Grace", FamilyName: "Hopper", PrimaryRole: "Leader"},
		{ID: "c2p1", CountryID: "no2", GivenName: "Emmy", FamilyName: "Noether", PrimaryRole: "Contestant 1"},
	} {
		s.Require().NoError(s.people.Save(s.ctx, p))
	}
}

func (s *ScoringSuite) setState(fn func(*event.State)) {
	_, err := s.events.Update(s.ctx, func(st *event.State) error {
		fn(st)
		return nil
	})
	s.Require().NoError(err)
}

func (s *ScoringSuite) TestEnterAndStandings() {
	err := s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{
		"c1p1": "7",
		"c1p2": "3",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 2, map[string]string{"c1p1": "5"}))
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no2", 1, map[string]string{"c2p1": "6"}))

	standings, err := s.service.Standings(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(standings, 3)
	s.Equal("c1p1", standings[0].PersonID)
	s.Equal(12, standings[0].Total)
	s.Empty(standings[0].Award)

	s.Require().Len(s.pub.Events(), 3)
	s.Equal(audit.ActionScoresEntered, s.pub.Events()[0].Action)
}

func (s *ScoringSuite) TestInvalidProblemNumber() {
	for _, problem := range []int{0, 4, -1} {
		err := s.service.Enter(s.ctx, admin, "no1", problem, map[string]string{"c1p1": "5"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeFormatInvalid))
		s.Equal("Invalid problem number", err.Error())
	}
}

func (s *ScoringSuite) TestScoreRange() {
	err := s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "8"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeFormatInvalid))

	err = s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "07"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeFormatInvalid))

	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "0"}))
}

func (s *ScoringSuite) TestOnlyContestants() {
	err := s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1lead": "5"})
	s.Require().Error(err)
	s.Equal("Scores may only be entered for contestants", err.Error())

	err = s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"ghost": "5"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeReferenceInvalid))
	s.Equal("Invalid person", err.Error())

	// People from another country are invalid in this batch too.
	err = s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c2p1": "5"})
	s.Require().Error(err)
	s.Equal("Invalid person", err.Error())
}

func (s *ScoringSuite) TestPermissions() {
	delegate := auth.Actor{Kind: auth.KindDelegate, CountryID: "no1"}
	err := s.service.Enter(s.ctx, delegate, "no1", 1, map[string]string{"c1p1": "5"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))

	s.setState(func(st *event.State) { st.SelfScoringEnabled = true })
	s.Require().NoError(s.service.Enter(s.ctx, delegate, "no1", 1, map[string]string{"c1p1": "5"}))

	// Self-scoring never reaches other countries.
	err = s.service.Enter(s.ctx, delegate, "no2", 1, map[string]string{"c2p1": "5"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))

	scorer := auth.Actor{Kind: auth.KindScoreEntry}
	s.Require().NoError(s.service.Enter(s.ctx, scorer, "no2", 1, map[string]string{"c2p1": "5"}))
}

func (s *ScoringSuite) TestRegistrationMustBeDisabled() {
	s.setState(func(st *event.State) { st.RegistrationEnabled = true })
	err := s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "5"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	s.Equal("Registration must be disabled before scores are entered", err.Error())
}

func (s *ScoringSuite) TestBoundariesFreezeScores() {
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "5"}))

	s.setState(func(st *event.State) {
		st.Boundaries = event.MedalBoundaries{Gold: intp(12), Silver: intp(9), Bronze: intp(6)}
	})

	err := s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "6"})
	s.Require().Error(err)
	s.Equal("Scores cannot be entered after medal boundaries are set", err.Error())

	// Resubmitting the frozen value changes nothing and passes.
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "5"}))

	// Unsetting the triple re-opens entry.
	s.setState(func(st *event.State) { st.Boundaries = event.MedalBoundaries{} })
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "6"}))
}

func (s *ScoringSuite) TestBlankClearsCell() {
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "5"}))
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": ""}))

	cells, err := s.store.ByPerson(s.ctx, "c1p1")
	s.Require().NoError(err)
	s.Empty(cells)

	// Clearing an already blank cell is a no-op even once frozen.
	s.setState(func(st *event.State) {
		st.Boundaries = event.MedalBoundaries{Gold: intp(12), Silver: intp(9), Bronze: intp(6)}
	})
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": ""}))
}

func (s *ScoringSuite) TestAllScoresEntered() {
	done, err := s.service.AllScoresEntered(s.ctx)
	s.Require().NoError(err)
	s.False(done)

	for _, personID := range []string{"c1p1", "c1p2", "c2p1"} {
		for problem := 1; problem <= 3; problem++ {
			s.Require().NoError(s.store.Set(s.ctx, personID, problem, 4))
		}
	}
	done, err = s.service.AllScoresEntered(s.ctx)
	s.Require().NoError(err)
	s.True(done)
}

func (s *ScoringSuite) TestAwardsOnceBoundariesSet() {
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 1, map[string]string{"c1p1": "7", "c1p2": "3"}))
	s.Require().NoError(s.service.Enter(s.ctx, admin, "no1", 2, map[string]string{"c1p1": "5", "c1p2": "3"}))

	s.setState(func(st *event.State) {
		st.Boundaries = event.MedalBoundaries{Gold: intp(12), Silver: intp(9), Bronze: intp(6)}
	})
	standings, err := s.service.Standings(s.ctx)
	s.Require().NoError(err)
	byID := map[string]Standing{}
	for _, row := range standings {
		byID[row.PersonID] = row
	}
	s.Equal("Gold", byID["c1p1"].Award)
	s.Equal("Bronze", byID["c1p2"].Award)
	s.Equal("", byID["c2p1"].Award)
}

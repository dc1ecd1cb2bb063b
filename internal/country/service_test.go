package country

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"olympreg/internal/audit"
	"olympreg/internal/auth"
	"olympreg/internal/event"
	"olympreg/internal/files"
	dErrors "olympreg/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	fileSt  *files.InMemoryStore
	events  *event.InMemoryStore
	pub     *audit.InMemoryPublisher
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.fileSt = files.NewInMemoryStore()
	s.events = event.NewInMemoryStore(event.State{RegistrationEnabled: true})
	s.pub = audit.NewInMemoryPublisher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.store, s.fileSt, NewAuditor(testConfig()), s.events, s.pub, nil, logger)
}

type fakeCascade struct {
	retiredCountry string
	prunedCountry  string
}

func (f *fakeCascade) RetireByCountry(_ context.Context, id string) error {
	f.retiredCountry = id
	return nil
}

func (f *fakeCascade) PruneGuideFor(_ context.Context, id string) error {
	f.prunedCountry = id
	return nil
}

func (s *ServiceSuite) TestCreateEmitsAudit() {
	out, err := s.service.Create(s.ctx, admin, minimalInput())
	s.Require().NoError(err)
	s.NotEmpty(out.ID)

	events := s.pub.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionCountryCreated, events[0].Action)
	s.Equal("Country Zedland (ZZA) registered", events[0].Summary)
}

func (s *ServiceSuite) TestCreateDuplicateFails() {
	_, err := s.service.Create(s.ctx, admin, minimalInput())
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, admin, minimalInput())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUniqueness))
	s.Len(s.pub.Events(), 1)
}

func (s *ServiceSuite) TestUpdateScopesToOwnCountry() {
	out, err := s.service.Create(s.ctx, admin, minimalInput())
	s.Require().NoError(err)

	other := auth.Actor{Kind: auth.KindDelegate, CountryID: "someone-else"}
	_, err = s.service.Update(s.ctx, other, out.ID, Input{ExpectedContestants: str("3")})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func (s *ServiceSuite) TestFlagReplacementSupersedesOldFile() {
	in := minimalInput()
	in.Flag = &files.Upload{Filename: "flag.png", Content: pngStub}
	created, err := s.service.Create(s.ctx, admin, in)
	s.Require().NoError(err)
	firstID := created.FlagFileID
	s.Require().NotEmpty(firstID)

	updated, err := s.service.Update(s.ctx, admin, created.ID, Input{
		Flag: &files.Upload{Filename: "flag2.png", Content: pngStub},
	})
	s.Require().NoError(err)
	s.NotEqual(firstID, updated.FlagFileID)

	old, err := s.fileSt.Get(s.ctx, firstID)
	s.Require().NoError(err)
	s.True(old.Superseded)

	current, err := s.fileSt.Get(s.ctx, updated.FlagFileID)
	s.Require().NoError(err)
	s.False(current.Superseded)
}

func (s *ServiceSuite) TestRetireCascades() {
	out, err := s.service.Create(s.ctx, admin, minimalInput())
	s.Require().NoError(err)

	cascade := &fakeCascade{}
	s.service.SetPeopleCascade(cascade)

	delegate := auth.Actor{Kind: auth.KindDelegate, CountryID: out.ID}
	err = s.service.Retire(s.ctx, delegate, out.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))

	s.Require().NoError(s.service.Retire(s.ctx, admin, out.ID))
	s.Equal(out.ID, cascade.retiredCountry)
	s.Equal(out.ID, cascade.prunedCountry)

	got, err := s.service.Get(s.ctx, out.ID)
	s.Require().NoError(err)
	s.True(got.Retired)

	// Retiring twice is a no-op.
	s.Require().NoError(s.service.Retire(s.ctx, admin, out.ID))
}

func (s *ServiceSuite) TestRetireStaffCountryRefused() {
	staff, err := s.service.Create(s.ctx, admin, Input{
		Code: str("STF"), Name: str("XMO 2026 Staff"), IsStaff: boolp(true),
	})
	s.Require().NoError(err)
	err = s.service.Retire(s.ctx, admin, staff.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func TestGetUnknownCountry(t *testing.T) {
	store := NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, files.NewInMemoryStore(), NewAuditor(testConfig()),
		event.NewInMemoryStore(event.State{}), audit.NopPublisher{}, nil, logger)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

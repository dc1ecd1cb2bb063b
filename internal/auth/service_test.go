package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "olympreg/pkg/domain-errors"
)

type AuthSuite struct {
	suite.Suite
	ctx      context.Context
	accounts *InMemoryAccountStore
	sessions *InMemorySessionStore
	service  *Service
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.ctx = context.Background()
	s.accounts = NewInMemoryAccountStore()
	s.sessions = NewInMemorySessionStore()
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.accounts, s.sessions, issuer, logger)
}

func (s *AuthSuite) createDelegate(username, password, countryID string) Account {
	account, err := s.service.CreateAccount(s.ctx, Actor{Kind: KindAdmin}, Account{
		Username:  username,
		Kind:      KindDelegate,
		CountryID: countryID,
	}, password)
	s.Require().NoError(err)
	return account
}

func (s *AuthSuite) TestLoginRoundTrip() {
	s.createDelegate("zza-leader", "correct horse", "c1")

	token, actor, err := s.service.Login(s.ctx, "zza-leader", "correct horse")
	s.Require().NoError(err)
	s.Equal(KindDelegate, actor.Kind)
	s.Equal("c1", actor.CountryID)
	s.NotEmpty(token)
}

func (s *AuthSuite) TestLoginFailuresLookAlike() {
	s.createDelegate("zza-leader", "correct horse", "c1")

	_, _, err := s.service.Login(s.ctx, "zza-leader", "wrong")
	s.Require().Error(err)
	wrongPassword := err.Error()

	_, _, err = s.service.Login(s.ctx, "nobody", "wrong")
	s.Require().Error(err)
	s.Equal(wrongPassword, err.Error())
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func (s *AuthSuite) TestDisabledAccountCannotLogin() {
	account := s.createDelegate("zza-leader", "correct horse", "c1")
	account.Disabled = true
	s.Require().NoError(s.accounts.Update(s.ctx, account))

	_, _, err := s.service.Login(s.ctx, "zza-leader", "correct horse")
	s.Require().Error(err)
	s.Equal("Invalid username or password", err.Error())
}

func (s *AuthSuite) TestLogoutRevokesSession() {
	s.createDelegate("zza-leader", "correct horse", "c1")
	token, _, err := s.service.Login(s.ctx, "zza-leader", "correct horse")
	s.Require().NoError(err)

	issuer := s.service.issuer
	_, sessionID, err := issuer.Validate(token)
	s.Require().NoError(err)
	live, err := s.sessions.Live(s.ctx, sessionID)
	s.Require().NoError(err)
	s.True(live)

	s.Require().NoError(s.service.Logout(s.ctx, token))
	live, err = s.sessions.Live(s.ctx, sessionID)
	s.Require().NoError(err)
	s.False(live)

	// Logging out again, or with garbage, is a no-op.
	s.Require().NoError(s.service.Logout(s.ctx, token))
	s.Require().NoError(s.service.Logout(s.ctx, "not-a-token"))
}

func (s *AuthSuite) TestCreateAccountScopes() {
	admin := Actor{Kind: KindAdmin}

	_, err := s.service.CreateAccount(s.ctx, Actor{Kind: KindDelegate, CountryID: "c1"},
		Account{Username: "x", Kind: KindDelegate, CountryID: "c1"}, "pw")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))

	_, err = s.service.CreateAccount(s.ctx, admin,
		Account{Username: "x", Kind: KindDelegate}, "pw")
	s.Require().Error(err)
	s.Equal("Delegate accounts must name a country", err.Error())

	_, err = s.service.CreateAccount(s.ctx, admin,
		Account{Username: "x", Kind: KindSelfRegistration, CountryID: "c1"}, "pw")
	s.Require().Error(err)
	s.Equal("Self-registration accounts must name a country and person", err.Error())

	_, err = s.service.CreateAccount(s.ctx, admin,
		Account{Username: "x", Kind: Kind("superuser")}, "pw")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeFormatInvalid))
}

func (s *AuthSuite) TestUsernameUniqueness() {
	s.createDelegate("zza-leader", "pw1", "c1")
	_, err := s.service.CreateAccount(s.ctx, Actor{Kind: KindAdmin},
		Account{Username: "zza-leader", Kind: KindDelegate, CountryID: "c2"}, "pw2")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUniqueness))
	s.Equal("An account with username zza-leader already exists", err.Error())
}

func (s *AuthSuite) TestDisableByCountry() {
	s.createDelegate("zza-leader", "pw", "c1")
	s.createDelegate("zzb-leader", "pw", "c2")

	s.Require().NoError(s.service.DisableByCountry(s.ctx, "c1"))

	_, _, err := s.service.Login(s.ctx, "zza-leader", "pw")
	s.Require().Error(err)
	_, _, err = s.service.Login(s.ctx, "zzb-leader", "pw")
	s.Require().NoError(err)
}

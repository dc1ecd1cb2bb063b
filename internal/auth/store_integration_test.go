//go:build integration

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"olympreg/internal/auth"
	"olympreg/pkg/platform/sentinel"
	"olympreg/pkg/testutil/containers"
)

type PostgresAccountSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *auth.PostgresAccountStore
}

func TestPostgresAccountSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAccountSuite))
}

func (s *PostgresAccountSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = auth.NewPostgresAccountStore(s.pg.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresAccountSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(context.Background(), "TRUNCATE accounts")
	s.Require().NoError(err)
}

func (s *PostgresAccountSuite) TestSaveAndFind() {
	ctx := context.Background()
	want := auth.Account{
		ID: "a1", Username: "zza-leader", PasswordHash: "hash",
		Kind: auth.KindDelegate, CountryID: "c1",
	}
	s.Require().NoError(s.store.Save(ctx, want))

	got, err := s.store.FindByUsername(ctx, "zza-leader")
	s.Require().NoError(err)
	s.Equal(want, got)

	_, err = s.store.FindByUsername(ctx, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresAccountSuite) TestUsernameUnique() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, auth.Account{
		ID: "a1", Username: "zza-leader", PasswordHash: "h", Kind: auth.KindDelegate, CountryID: "c1",
	}))
	err := s.store.Save(ctx, auth.Account{
		ID: "a2", Username: "zza-leader", PasswordHash: "h", Kind: auth.KindDelegate, CountryID: "c2",
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresAccountSuite) TestByCountryAndUpdate() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, auth.Account{
		ID: "a1", Username: "zza-leader", PasswordHash: "h", Kind: auth.KindDelegate, CountryID: "c1",
	}))
	s.Require().NoError(s.store.Save(ctx, auth.Account{
		ID: "a2", Username: "zza-self", PasswordHash: "h",
		Kind: auth.KindSelfRegistration, CountryID: "c1", PersonID: "p1",
	}))
	s.Require().NoError(s.store.Save(ctx, auth.Account{
		ID: "a3", Username: "zzb-leader", PasswordHash: "h", Kind: auth.KindDelegate, CountryID: "c2",
	}))

	accounts, err := s.store.ByCountry(ctx, "c1")
	s.Require().NoError(err)
	s.Len(accounts, 2)

	accounts[0].Disabled = true
	s.Require().NoError(s.store.Update(ctx, accounts[0]))
	got, err := s.store.FindByUsername(ctx, accounts[0].Username)
	s.Require().NoError(err)
	s.True(got.Disabled)

	err = s.store.Update(ctx, auth.Account{ID: "missing", Username: "x", Kind: auth.KindAdmin})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

type RedisSessionSuite struct {
	suite.Suite
	rc    *containers.RedisContainer
	store *auth.RedisSessionStore
}

func TestRedisSessionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionSuite))
}

func (s *RedisSessionSuite) SetupSuite() {
	s.rc = containers.NewRedisContainer(s.T())
	s.store = auth.NewRedisSessionStore(s.rc.Client, time.Hour)
}

func (s *RedisSessionSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(context.Background()))
}

func (s *RedisSessionSuite) TestSessionLifecycle() {
	ctx := context.Background()
	actor := auth.Actor{Kind: auth.KindDelegate, CountryID: "c1"}

	s.Require().NoError(s.store.Create(ctx, "sess-1", actor))
	live, err := s.store.Live(ctx, "sess-1")
	s.Require().NoError(err)
	s.True(live)

	s.Require().NoError(s.store.Revoke(ctx, "sess-1"))
	live, err = s.store.Live(ctx, "sess-1")
	s.Require().NoError(err)
	s.False(live)

	live, err = s.store.Live(ctx, "never-created")
	s.Require().NoError(err)
	s.False(live)
}

func (s *RedisSessionSuite) TestSessionTTL() {
	ctx := context.Background()
	short := auth.NewRedisSessionStore(s.rc.Client, 50*time.Millisecond)
	s.Require().NoError(short.Create(ctx, "sess-ttl", auth.Actor{Kind: auth.KindAdmin}))

	time.Sleep(150 * time.Millisecond)
	live, err := short.Live(ctx, "sess-ttl")
	s.Require().NoError(err)
	s.False(live)
}

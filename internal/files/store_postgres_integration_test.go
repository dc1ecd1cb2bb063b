//go:build integration

package files_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"olympreg/internal/files"
	"olympreg/pkg/platform/sentinel"
	"olympreg/pkg/testutil/containers"
)

type PostgresFileSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *files.PostgresStore
}

func TestPostgresFileSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresFileSuite))
}

func (s *PostgresFileSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = files.NewPostgresStore(s.pg.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresFileSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(context.Background(), "TRUNCATE files")
	s.Require().NoError(err)
}

func (s *PostgresFileSuite) TestSaveAndGetRoundTrip() {
	ctx := context.Background()
	in := files.File{
		ID:         "f1",
		Kind:       files.KindPhoto,
		Format:     files.FormatJPEG,
		Filename:   "ada.jpg",
		Content:    []byte("\xff\xd8\xffjpeg-bytes"),
		UploadedAt: time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Save(ctx, in))

	got, err := s.store.Get(ctx, "f1")
	s.Require().NoError(err)
	s.Equal(in.Content, got.Content)
	s.Equal(files.KindPhoto, got.Kind)
	s.Equal(files.FormatJPEG, got.Format)
	s.False(got.Superseded)
	s.True(in.UploadedAt.Equal(got.UploadedAt))

	_, err = s.store.Get(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresFileSuite) TestSaveIsAppendOnly() {
	ctx := context.Background()
	f := files.File{ID: "f1", Kind: files.KindFlag, Format: files.FormatPNG, Filename: "zza.png", Content: []byte("png"), UploadedAt: time.Now()}
	s.Require().NoError(s.store.Save(ctx, f))
	s.ErrorIs(s.store.Save(ctx, f), sentinel.ErrConflict)
}

func (s *PostgresFileSuite) TestSupersede() {
	ctx := context.Background()
	f := files.File{ID: "f1", Kind: files.KindPhoto, Format: files.FormatJPEG, Filename: "ada.jpg", Content: []byte("x"), UploadedAt: time.Now()}
	s.Require().NoError(s.store.Save(ctx, f))

	s.Require().NoError(s.store.Supersede(ctx, "f1"))
	got, err := s.store.Get(ctx, "f1")
	s.Require().NoError(err)
	s.True(got.Superseded)

	s.ErrorIs(s.store.Supersede(ctx, "missing"), sentinel.ErrNotFound)
}

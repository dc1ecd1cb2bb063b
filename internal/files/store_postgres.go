package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"olympreg/pkg/platform/sentinel"
)

// PostgresStore persists file content in PostgreSQL so photo, flag, and
// consent form uploads survive restarts alongside the records that
// reference them.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the files table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS files (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	format      TEXT NOT NULL,
	filename    TEXT NOT NULL,
	content     BYTEA NOT NULL,
	superseded  BOOLEAN NOT NULL DEFAULT FALSE,
	uploaded_at TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate files: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, f File) error {
	const q = `
INSERT INTO files (id, kind, format, filename, content, superseded, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, q,
		f.ID, string(f.Kind), string(f.Format), f.Filename, f.Content, f.Superseded, f.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (File, error) {
	const q = `
SELECT id, kind, format, filename, content, superseded, uploaded_at
FROM files WHERE id = $1`
	var f File
	var kind, format string
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &kind, &format, &f.Filename, &f.Content, &f.Superseded, &f.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, sentinel.ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("get file: %w", err)
	}
	f.Kind = Kind(kind)
	f.Format = Format(format)
	return f, nil
}

func (s *PostgresStore) Supersede(ctx context.Context, id string) error {
	const q = `UPDATE files SET superseded = TRUE WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("supersede file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("supersede file: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

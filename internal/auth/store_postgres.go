package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"olympreg/pkg/platform/sentinel"
)

// PostgresAccountStore persists login accounts in PostgreSQL.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	kind          TEXT NOT NULL,
	country_id    TEXT NOT NULL DEFAULT '',
	person_id     TEXT NOT NULL DEFAULT '',
	disabled      BOOLEAN NOT NULL DEFAULT FALSE
)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) Save(ctx context.Context, a Account) error {
	const q = `
INSERT INTO accounts (id, username, password_hash, kind, country_id, person_id, disabled)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.Username, a.PasswordHash, string(a.Kind), a.CountryID, a.PersonID, a.Disabled)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) Update(ctx context.Context, a Account) error {
	const q = `
UPDATE accounts
SET username = $2, password_hash = $3, kind = $4, country_id = $5, person_id = $6, disabled = $7
WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q,
		a.ID, a.Username, a.PasswordHash, string(a.Kind), a.CountryID, a.PersonID, a.Disabled)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresAccountStore) FindByUsername(ctx context.Context, username string) (Account, error) {
	const q = `
SELECT id, username, password_hash, kind, country_id, person_id, disabled
FROM accounts WHERE username = $1`
	var a Account
	var kind string
	err := s.db.QueryRowContext(ctx, q, username).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &kind, &a.CountryID, &a.PersonID, &a.Disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("find account: %w", err)
	}
	a.Kind = Kind(kind)
	return a, nil
}

func (s *PostgresAccountStore) ByCountry(ctx context.Context, countryID string) ([]Account, error) {
	const q = `
SELECT id, username, password_hash, kind, country_id, person_id, disabled
FROM accounts WHERE country_id = $1 ORDER BY username`
	rows, err := s.db.QueryContext(ctx, q, countryID)
	if err != nil {
		return nil, fmt.Errorf("accounts by country: %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		var kind string
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &kind,
			&a.CountryID, &a.PersonID, &a.Disabled); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Kind = Kind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

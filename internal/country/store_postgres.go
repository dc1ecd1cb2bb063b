package country

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"olympreg/pkg/platform/sentinel"
)

// PostgresStore persists countries in PostgreSQL. Uniqueness of code and name
// among non-retired countries is enforced by partial unique indexes so the
// bulk-import commit loop hits a real constraint, not just the auditor's
// pre-check.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the countries table and its partial unique indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS countries (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	is_staff BOOLEAN NOT NULL DEFAULT FALSE,
	participants_ok BOOLEAN NOT NULL DEFAULT TRUE,
	contact_emails TEXT NOT NULL DEFAULT '',
	contact_extra TEXT NOT NULL DEFAULT '',
	expected_leaders INT NOT NULL DEFAULT 0,
	expected_deputies INT NOT NULL DEFAULT 0,
	expected_contestants INT NOT NULL DEFAULT 0,
	expected_observers_a INT NOT NULL DEFAULT 0,
	expected_observers_b INT NOT NULL DEFAULT 0,
	expected_observers_c INT NOT NULL DEFAULT 0,
	expected_single_rooms INT NOT NULL DEFAULT 0,
	numbers_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	generic_url TEXT NOT NULL DEFAULT '',
	flag_file_id TEXT NOT NULL DEFAULT '',
	leader_email TEXT NOT NULL DEFAULT '',
	physical_address TEXT NOT NULL DEFAULT '',
	retired BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS countries_code_active
	ON countries (code) WHERE NOT retired;
CREATE UNIQUE INDEX IF NOT EXISTS countries_name_active
	ON countries (name) WHERE NOT retired;
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate countries: %w", err)
	}
	return nil
}

const countryColumns = `id, code, name, is_staff, participants_ok,
	contact_emails, contact_extra,
	expected_leaders, expected_deputies, expected_contestants,
	expected_observers_a, expected_observers_b, expected_observers_c,
	expected_single_rooms, numbers_confirmed, generic_url, flag_file_id,
	leader_email, physical_address, retired`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func joinEmails(emails []string) string {
	return strings.Join(emails, ",")
}

func splitEmails(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (s *PostgresStore) Save(ctx context.Context, c Country) error {
	const query = `
		INSERT INTO countries (` + countryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Code, c.Name, c.IsStaff, c.ParticipantsOK,
		joinEmails(c.ContactEmails), joinEmails(c.ContactExtra),
		c.Expected.Leaders, c.Expected.Deputies, c.Expected.Contestants,
		c.Expected.ObserversWithLeader, c.Expected.ObserversWithDeputy,
		c.Expected.ObserversWithContestants, c.Expected.SingleRooms,
		c.NumbersConfirmed, c.GenericURL, c.FlagFileID,
		c.LeaderEmail, c.PhysicalAddress, c.Retired,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save country: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, c Country) error {
	const query = `
		UPDATE countries SET
			code = $2, name = $3, is_staff = $4, participants_ok = $5,
			contact_emails = $6, contact_extra = $7,
			expected_leaders = $8, expected_deputies = $9,
			expected_contestants = $10, expected_observers_a = $11,
			expected_observers_b = $12, expected_observers_c = $13,
			expected_single_rooms = $14, numbers_confirmed = $15,
			generic_url = $16, flag_file_id = $17,
			leader_email = $18, physical_address = $19, retired = $20
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		c.ID, c.Code, c.Name, c.IsStaff, c.ParticipantsOK,
		joinEmails(c.ContactEmails), joinEmails(c.ContactExtra),
		c.Expected.Leaders, c.Expected.Deputies, c.Expected.Contestants,
		c.Expected.ObserversWithLeader, c.Expected.ObserversWithDeputy,
		c.Expected.ObserversWithContestants, c.Expected.SingleRooms,
		c.NumbersConfirmed, c.GenericURL, c.FlagFileID,
		c.LeaderEmail, c.PhysicalAddress, c.Retired,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update country: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update country: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanCountry(row interface{ Scan(...any) error }) (Country, error) {
	var c Country
	var emails, extra string
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.IsStaff, &c.ParticipantsOK,
		&emails, &extra,
		&c.Expected.Leaders, &c.Expected.Deputies, &c.Expected.Contestants,
		&c.Expected.ObserversWithLeader, &c.Expected.ObserversWithDeputy,
		&c.Expected.ObserversWithContestants, &c.Expected.SingleRooms,
		&c.NumbersConfirmed, &c.GenericURL, &c.FlagFileID,
		&c.LeaderEmail, &c.PhysicalAddress, &c.Retired,
	)
	if err != nil {
		return Country{}, err
	}
	c.ContactEmails = splitEmails(emails)
	c.ContactExtra = splitEmails(extra)
	return c, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Country, error) {
	const query = `SELECT ` + countryColumns + ` FROM countries WHERE id = $1`
	c, err := s.scanCountry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Country{}, sentinel.ErrNotFound
		}
		return Country{}, fmt.Errorf("get country: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Country, error) {
	const query = `SELECT ` + countryColumns + ` FROM countries ORDER BY code`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()
	var out []Country
	for rows.Next() {
		c, err := s.scanCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("list countries: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CodeInUse(ctx context.Context, code, excludeID string) (bool, error) {
	return s.inUse(ctx, "code", code, excludeID)
}

func (s *PostgresStore) NameInUse(ctx context.Context, name, excludeID string) (bool, error) {
	return s.inUse(ctx, "name", name, excludeID)
}

func (s *PostgresStore) inUse(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM countries WHERE %s = $1 AND id <> $2 AND NOT retired)`,
		column)
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, value, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s in use: %w", column, err)
	}
	return exists, nil
}

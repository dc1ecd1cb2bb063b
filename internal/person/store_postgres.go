package person

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"olympreg/internal/files"
	"olympreg/internal/roles"
	"olympreg/pkg/dates"
	"olympreg/pkg/platform/sentinel"
)

// PostgresStore persists people in PostgreSQL. The one-active-holder rule
// for non-observer roles is a partial unique index, gated by a role_unique
// column the writer computes, so concurrent commits hit a real constraint.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the people table and the role-seat index.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS people (
	id TEXT PRIMARY KEY,
	country_id TEXT NOT NULL,
	given_name TEXT NOT NULL DEFAULT '',
	family_name TEXT NOT NULL DEFAULT '',
	gender TEXT NOT NULL DEFAULT '',
	primary_role TEXT NOT NULL DEFAULT '',
	other_roles TEXT NOT NULL DEFAULT '',
	guide_for TEXT NOT NULL DEFAULT '',
	passport_given_name TEXT NOT NULL DEFAULT '',
	passport_family_name TEXT NOT NULL DEFAULT '',
	date_of_birth TEXT NOT NULL DEFAULT '',
	languages TEXT NOT NULL DEFAULT '',
	diet TEXT NOT NULL DEFAULT '',
	tshirt TEXT NOT NULL DEFAULT '',
	arrival_place TEXT NOT NULL DEFAULT '',
	arrival_date TEXT NOT NULL DEFAULT '',
	arrival_time TEXT NOT NULL DEFAULT '',
	arrival_flight TEXT NOT NULL DEFAULT '',
	departure_place TEXT NOT NULL DEFAULT '',
	departure_date TEXT NOT NULL DEFAULT '',
	departure_time TEXT NOT NULL DEFAULT '',
	departure_flight TEXT NOT NULL DEFAULT '',
	room_type TEXT NOT NULL DEFAULT '',
	room_share_with TEXT NOT NULL DEFAULT '',
	room_number TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	passport_number TEXT NOT NULL DEFAULT '',
	nationality TEXT NOT NULL DEFAULT '',
	incomplete BOOLEAN NOT NULL DEFAULT FALSE,
	photo_file_id TEXT NOT NULL DEFAULT '',
	consent_form_file_id TEXT NOT NULL DEFAULT '',
	event_photos_consent BOOLEAN,
	photo_consent TEXT NOT NULL DEFAULT '',
	diet_consent BOOLEAN,
	generic_url TEXT NOT NULL DEFAULT '',
	role_unique BOOLEAN NOT NULL DEFAULT FALSE,
	retired BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS people_role_active
	ON people (country_id, primary_role) WHERE NOT retired AND role_unique;
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate people: %w", err)
	}
	return nil
}

const personColumns = `id, country_id, given_name, family_name, gender,
	primary_role, other_roles, guide_for,
	passport_given_name, passport_family_name, date_of_birth, languages,
	diet, tshirt,
	arrival_place, arrival_date, arrival_time, arrival_flight,
	departure_place, departure_date, departure_time, departure_flight,
	room_type, room_share_with, room_number,
	phone_number, passport_number, nationality, incomplete,
	photo_file_id, consent_form_file_id,
	event_photos_consent, photo_consent, diet_consent,
	generic_url, role_unique, retired`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func encodeDate(d dates.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func decodeDate(s string) (dates.Date, error) {
	if s == "" {
		return dates.Date{}, nil
	}
	return dates.Parse(s)
}

func encodeTime(t *dates.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func decodeTime(s string) (*dates.TimeOfDay, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	t, err := dates.NewTimeOfDay(hour, minute)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeNullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func decodeNullBool(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	b := nb.Bool
	return &b
}

// roleUniqueFor mirrors the in-memory seat rule for the partial index gate.
func roleUniqueFor(role string) bool {
	c, err := roles.Lookup(role)
	return err == nil && !c.Observer && !c.Staff
}

func (s *PostgresStore) args(p Person) []any {
	return []any{
		p.ID, p.CountryID, p.GivenName, p.FamilyName, p.Gender,
		p.PrimaryRole, joinList(p.OtherRoles), joinList(p.GuideFor),
		p.PassportGivenName, p.PassportFamilyName,
		encodeDate(p.DateOfBirth), joinList(p.Languages),
		p.Diet, p.TShirt,
		p.Arrival.Place, encodeDate(p.Arrival.Date),
		encodeTime(p.Arrival.Time), p.Arrival.Flight,
		p.Departure.Place, encodeDate(p.Departure.Date),
		encodeTime(p.Departure.Time), p.Departure.Flight,
		p.RoomType, p.RoomShareWith, p.RoomNumber,
		p.PhoneNumber, p.PassportNumber, p.Nationality, p.Incomplete,
		p.PhotoFileID, p.ConsentFormFileID,
		encodeNullBool(p.EventPhotosConsent), string(p.PhotoConsent),
		encodeNullBool(p.DietConsent),
		p.GenericURL, roleUniqueFor(p.PrimaryRole), p.Retired,
	}
}

func (s *PostgresStore) Save(ctx context.Context, p Person) error {
	const query = `
		INSERT INTO people (` + personColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37)
	`
	if _, err := s.db.ExecContext(ctx, query, s.args(p)...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save person: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p Person) error {
	const query = `
		UPDATE people SET
			country_id = $2, given_name = $3, family_name = $4, gender = $5,
			primary_role = $6, other_roles = $7, guide_for = $8,
			passport_given_name = $9, passport_family_name = $10,
			date_of_birth = $11, languages = $12, diet = $13, tshirt = $14,
			arrival_place = $15, arrival_date = $16, arrival_time = $17,
			arrival_flight = $18, departure_place = $19, departure_date = $20,
			departure_time = $21, departure_flight = $22,
			room_type = $23, room_share_with = $24, room_number = $25,
			phone_number = $26, passport_number = $27, nationality = $28,
			incomplete = $29, photo_file_id = $30, consent_form_file_id = $31,
			event_photos_consent = $32, photo_consent = $33,
			diet_consent = $34, generic_url = $35, role_unique = $36,
			retired = $37
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, s.args(p)...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update person: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanPerson(row interface{ Scan(...any) error }) (Person, error) {
	var p Person
	var otherRoles, guideFor, dob, languages string
	var arrDate, arrTime, depDate, depTime string
	var eventPhotos, dietConsent sql.NullBool
	var photoConsent string
	var roleUnique bool
	err := row.Scan(&p.ID, &p.CountryID, &p.GivenName, &p.FamilyName, &p.Gender,
		&p.PrimaryRole, &otherRoles, &guideFor,
		&p.PassportGivenName, &p.PassportFamilyName, &dob, &languages,
		&p.Diet, &p.TShirt,
		&p.Arrival.Place, &arrDate, &arrTime, &p.Arrival.Flight,
		&p.Departure.Place, &depDate, &depTime, &p.Departure.Flight,
		&p.RoomType, &p.RoomShareWith, &p.RoomNumber,
		&p.PhoneNumber, &p.PassportNumber, &p.Nationality, &p.Incomplete,
		&p.PhotoFileID, &p.ConsentFormFileID,
		&eventPhotos, &photoConsent, &dietConsent,
		&p.GenericURL, &roleUnique, &p.Retired,
	)
	if err != nil {
		return Person{}, err
	}
	p.OtherRoles = splitList(otherRoles)
	p.GuideFor = splitList(guideFor)
	p.Languages = splitList(languages)
	if p.DateOfBirth, err = decodeDate(dob); err != nil {
		return Person{}, err
	}
	if p.Arrival.Date, err = decodeDate(arrDate); err != nil {
		return Person{}, err
	}
	if p.Arrival.Time, err = decodeTime(arrTime); err != nil {
		return Person{}, err
	}
	if p.Departure.Date, err = decodeDate(depDate); err != nil {
		return Person{}, err
	}
	if p.Departure.Time, err = decodeTime(depTime); err != nil {
		return Person{}, err
	}
	p.EventPhotosConsent = decodeNullBool(eventPhotos)
	p.DietConsent = decodeNullBool(dietConsent)
	p.PhotoConsent = files.PhotoConsent(photoConsent)
	return p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Person, error) {
	const query = `SELECT ` + personColumns + ` FROM people WHERE id = $1`
	p, err := s.scanPerson(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Person{}, sentinel.ErrNotFound
		}
		return Person{}, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Person, error) {
	const query = `SELECT ` + personColumns + ` FROM people ORDER BY country_id, id`
	return s.query(ctx, query)
}

func (s *PostgresStore) ByCountry(ctx context.Context, countryID string) ([]Person, error) {
	const query = `SELECT ` + personColumns + ` FROM people WHERE country_id = $1 ORDER BY id`
	return s.query(ctx, query, countryID)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()
	var out []Person
	for rows.Next() {
		p, err := s.scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("query people: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RoleTaken(ctx context.Context, countryID, role, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM people
		WHERE country_id = $1 AND primary_role = $2 AND id <> $3 AND NOT retired
	)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, countryID, role, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check role in use: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) RetireByCountry(ctx context.Context, countryID string) ([]Person, error) {
	active, err := s.query(ctx,
		`SELECT `+personColumns+` FROM people WHERE country_id = $1 AND NOT retired ORDER BY id`,
		countryID)
	if err != nil {
		return nil, err
	}
	const query = `UPDATE people SET retired = TRUE WHERE country_id = $1 AND NOT retired`
	if _, err := s.db.ExecContext(ctx, query, countryID); err != nil {
		return nil, fmt.Errorf("retire people: %w", err)
	}
	return active, nil
}

func (s *PostgresStore) PruneGuideFor(ctx context.Context, countryID string) error {
	// guide_for is a comma-joined ID list; rewrite rows that mention the
	// country rather than string-replace in SQL.
	rows, err := s.query(ctx,
		`SELECT `+personColumns+` FROM people WHERE guide_for LIKE '%' || $1 || '%'`,
		countryID)
	if err != nil {
		return err
	}
	for _, p := range rows {
		kept := p.GuideFor[:0:0]
		for _, gid := range p.GuideFor {
			if gid != countryID {
				kept = append(kept, gid)
			}
		}
		if len(kept) == len(p.GuideFor) {
			continue
		}
		const query = `UPDATE people SET guide_for = $2 WHERE id = $1`
		if _, err := s.db.ExecContext(ctx, query, p.ID, joinList(kept)); err != nil {
			return fmt.Errorf("prune guides: %w", err)
		}
	}
	return nil
}

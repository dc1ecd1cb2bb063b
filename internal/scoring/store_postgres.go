package scoring

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists score cells in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scores table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS scores (
	person_id TEXT NOT NULL,
	problem INT NOT NULL,
	score INT NOT NULL,
	PRIMARY KEY (person_id, problem)
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate scores: %w", err)
	}
	return nil
}

func (s *PostgresStore) Set(ctx context.Context, personID string, problem, score int) error {
	const query = `
		INSERT INTO scores (person_id, problem, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (person_id, problem) DO UPDATE SET score = EXCLUDED.score
	`
	if _, err := s.db.ExecContext(ctx, query, personID, problem, score); err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, personID string, problem int) error {
	const query = `DELETE FROM scores WHERE person_id = $1 AND problem = $2`
	if _, err := s.db.ExecContext(ctx, query, personID, problem); err != nil {
		return fmt.Errorf("clear score: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByPerson(ctx context.Context, personID string) (map[int]int, error) {
	const query = `SELECT problem, score FROM scores WHERE person_id = $1`
	rows, err := s.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("scores by person: %w", err)
	}
	defer rows.Close()
	out := make(map[int]int)
	for rows.Next() {
		var problem, score int
		if err := rows.Scan(&problem, &score); err != nil {
			return nil, fmt.Errorf("scores by person: %w", err)
		}
		out[problem] = score
	}
	return out, rows.Err()
}

func (s *PostgresStore) All(ctx context.Context) (map[string]map[int]int, error) {
	const query = `SELECT person_id, problem, score FROM scores`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("all scores: %w", err)
	}
	defer rows.Close()
	out := make(map[string]map[int]int)
	for rows.Next() {
		var personID string
		var problem, score int
		if err := rows.Scan(&personID, &problem, &score); err != nil {
			return nil, fmt.Errorf("all scores: %w", err)
		}
		if out[personID] == nil {
			out[personID] = make(map[int]int)
		}
		out[personID][problem] = score
	}
	return out, rows.Err()
}

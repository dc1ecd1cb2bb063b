package scoring

import "context"

// Store persists score cells keyed by (person, problem). Absent cells are
// unset; Clear on an absent cell is a no-op.
type Store interface {
	Set(ctx context.Context, personID string, problem, score int) error
	Clear(ctx context.Context, personID string, problem int) error
	// ByPerson returns the entered cells of one person by problem number.
	ByPerson(ctx context.Context, personID string) (map[int]int, error)
	// All returns every entered cell grouped by person.
	All(ctx context.Context) (map[string]map[int]int, error)
}

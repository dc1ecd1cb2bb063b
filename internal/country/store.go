package country

import "context"

// Store persists countries. Save fails with sentinel.ErrConflict when another
// non-retired country already holds the code or name; that check backs the
// bulk-import race window, so real implementations must enforce it at commit
// time, not only through the auditor's pre-check.
type Store interface {
	Save(ctx context.Context, c Country) error
	Update(ctx context.Context, c Country) error
	Get(ctx context.Context, id string) (Country, error)
	// List returns all countries, retired ones included.
	List(ctx context.Context) ([]Country, error)
	CodeInUse(ctx context.Context, code, excludeID string) (bool, error)
	NameInUse(ctx context.Context, name, excludeID string) (bool, error)
}

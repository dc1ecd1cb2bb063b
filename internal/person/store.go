package person

import "context"

// Store persists person records. Implementations enforce at commit time that
// a non-observer role is held by at most one active person per country, so
// concurrent writers surface sentinel.ErrConflict instead of silently
// duplicating a seat.
type Store interface {
	// Save inserts a new record, sentinel.ErrConflict if the role seat or the
	// ID is already taken among active records.
	Save(ctx context.Context, p Person) error
	// Update replaces an existing record, sentinel.ErrNotFound when absent,
	// sentinel.ErrConflict when the role seat is taken by someone else.
	Update(ctx context.Context, p Person) error
	// Get returns one record by ID, sentinel.ErrNotFound when absent.
	Get(ctx context.Context, id string) (Person, error)
	// List returns all records, retired ones included.
	List(ctx context.Context) ([]Person, error)
	// ByCountry returns all records of one country, retired ones included.
	ByCountry(ctx context.Context, countryID string) ([]Person, error)
	// RoleTaken reports whether an active person other than excludeID holds
	// the role in the country.
	RoleTaken(ctx context.Context, countryID, role, excludeID string) (bool, error)
	// RetireByCountry retires every active person of the country and returns
	// the records as they were before retirement.
	RetireByCountry(ctx context.Context, countryID string) ([]Person, error)
	// PruneGuideFor removes the country from every guide's assignment list.
	PruneGuideFor(ctx context.Context, countryID string) error
}

package files

import "context"

// Store persists file rows. Files are append-only: Save never overwrites, and
// Supersede is the only mutation, flipping the one-way Superseded flag when a
// replacement upload takes over a slot.
type Store interface {
	Save(ctx context.Context, f File) error
	Get(ctx context.Context, id string) (File, error)
	Supersede(ctx context.Context, id string) error
}

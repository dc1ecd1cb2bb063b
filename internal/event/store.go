package event

import "context"

// Store persists the event singleton state.
type Store interface {
	Get(ctx context.Context) (State, error)
	// Update applies fn to the current state under the store's lock and
	// persists the result; fn returning an error aborts with no mutation.
	Update(ctx context.Context, fn func(*State) error) (State, error)
}

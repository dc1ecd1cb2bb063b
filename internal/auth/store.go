package auth

import "context"

// AccountStore persists login accounts. Implementations surface
// sentinel.ErrNotFound for missing records.
type AccountStore interface {
	Save(ctx context.Context, a Account) error
	Update(ctx context.Context, a Account) error
	FindByUsername(ctx context.Context, username string) (Account, error)
	ByCountry(ctx context.Context, countryID string) ([]Account, error)
}

// SessionStore tracks live sessions so tokens can be revoked before expiry.
type SessionStore interface {
	Create(ctx context.Context, sessionID string, actor Actor) error
	Live(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
}

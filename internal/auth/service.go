package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	dErrors "olympreg/pkg/domain-errors"
	"olympreg/pkg/platform/sentinel"
)

// dummyHash is a hash of no real password, compared against when the
// username does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service handles login, logout, and account lifecycle. Token issuance is
// delegated to the TokenIssuer; live sessions are tracked in the session
// store so logout revokes before token expiry.
type Service struct {
	accounts AccountStore
	sessions SessionStore
	issuer   *TokenIssuer
	logger   *slog.Logger
}

func NewService(accounts AccountStore, sessions SessionStore, issuer *TokenIssuer, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, sessions: sessions, issuer: issuer, logger: logger}
}

// Login verifies credentials and returns a signed access token. Unknown
// usernames, wrong passwords, and disabled accounts all produce the same
// error.
func (s *Service) Login(ctx context.Context, username, password string) (string, Actor, error) {
	denied := dErrors.New(dErrors.CodePermissionDenied, "Invalid username or password")

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn a bcrypt comparison so unknown usernames take as
			// long as wrong passwords.
			CheckPassword(dummyHash, password)
			return "", Actor{}, denied
		}
		return "", Actor{}, fmt.Errorf("find account: %w", err)
	}
	if !CheckPassword(account.PasswordHash, password) || account.Disabled {
		return "", Actor{}, denied
	}

	actor := account.ActorFor()
	token, sessionID, err := s.issuer.Issue(actor)
	if err != nil {
		return "", Actor{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.Create(ctx, sessionID, actor); err != nil {
		return "", Actor{}, fmt.Errorf("create session: %w", err)
	}
	s.logger.InfoContext(ctx, "login", "username", username, "kind", string(account.Kind))
	return token, actor, nil
}

// Logout revokes the session behind a token. Invalid tokens are ignored;
// logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	_, sessionID, err := s.issuer.Validate(token)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID)
}

// CreateAccount registers a new login. Admin-only.
func (s *Service) CreateAccount(ctx context.Context, actor Actor, a Account, password string) (Account, error) {
	if !actor.IsAdmin() {
		return Account{}, dErrors.New(dErrors.CodePermissionDenied,
			"Only administrators may create accounts")
	}
	switch a.Kind {
	case KindAdmin, KindScoreEntry:
	case KindDelegate:
		if a.CountryID == "" {
			return Account{}, dErrors.New(dErrors.CodeRequiredMissing,
				"Delegate accounts must name a country")
		}
	case KindSelfRegistration:
		if a.CountryID == "" || a.PersonID == "" {
			return Account{}, dErrors.New(dErrors.CodeRequiredMissing,
				"Self-registration accounts must name a country and person")
		}
	default:
		return Account{}, dErrors.Newf(dErrors.CodeFormatInvalid,
			"account kind %s not recognized", a.Kind)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	a.ID = uuid.NewString()
	a.PasswordHash = hash
	if err := s.accounts.Save(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Account{}, dErrors.Newf(dErrors.CodeUniqueness,
				"An account with username %s already exists", a.Username)
		}
		return Account{}, fmt.Errorf("save account: %w", err)
	}
	return a, nil
}

// DisableByCountry disables every account scoped to the country. The country
// retire cascade calls it.
func (s *Service) DisableByCountry(ctx context.Context, countryID string) error {
	accounts, err := s.accounts.ByCountry(ctx, countryID)
	if err != nil {
		return fmt.Errorf("accounts by country: %w", err)
	}
	for _, a := range accounts {
		if a.Disabled {
			continue
		}
		a.Disabled = true
		if err := s.accounts.Update(ctx, a); err != nil {
			return fmt.Errorf("disable account %s: %w", a.Username, err)
		}
	}
	return nil
}

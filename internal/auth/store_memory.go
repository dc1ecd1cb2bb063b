package auth

import (
	"context"
	"sync"

	"olympreg/pkg/platform/sentinel"
)

type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[string]Account)}
}

func (s *InMemoryAccountStore) Save(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.accounts {
		if other.ID == a.ID || other.Username == a.Username {
			return sentinel.ErrConflict
		}
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *InMemoryAccountStore) Update(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *InMemoryAccountStore) FindByUsername(_ context.Context, username string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return Account{}, sentinel.ErrNotFound
}

func (s *InMemoryAccountStore) ByCountry(_ context.Context, countryID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, a := range s.accounts {
		if a.CountryID == countryID {
			out = append(out, a)
		}
	}
	return out, nil
}

// InMemorySessionStore is the test double for the redis-backed store.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Actor
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]Actor)}
}

func (s *InMemorySessionStore) Create(_ context.Context, sessionID string, actor Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = actor
	return nil
}

func (s *InMemorySessionStore) Live(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *InMemorySessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

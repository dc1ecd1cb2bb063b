package country

import (
	"context"
	"sort"
	"sync"

	"olympreg/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	countries map[string]Country
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{countries: make(map[string]Country)}
}

func (s *InMemoryStore) Save(_ context.Context, c Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.countries {
		if other.ID == c.ID {
			return sentinel.ErrConflict
		}
		if !other.Retired && (other.Code == c.Code || other.Name == c.Name) {
			return sentinel.ErrConflict
		}
	}
	s.countries[c.ID] = c
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, c Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.countries[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, other := range s.countries {
		if other.ID != c.ID && !other.Retired && (other.Code == c.Code || other.Name == c.Name) {
			return sentinel.ErrConflict
		}
	}
	s.countries[c.ID] = c
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.countries[id]
	if !ok {
		return Country{}, sentinel.ErrNotFound
	}
	return c, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Country, 0, len(s.countries))
	for _, c := range s.countries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *InMemoryStore) CodeInUse(_ context.Context, code, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.countries {
		if c.ID != excludeID && !c.Retired && c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) NameInUse(_ context.Context, name, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.countries {
		if c.ID != excludeID && !c.Retired && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

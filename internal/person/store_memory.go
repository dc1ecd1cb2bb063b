package person

import (
	"context"
	"sort"
	"sync"

	"olympreg/internal/roles"
	"olympreg/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	people map[string]Person
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{people: make(map[string]Person)}
}

// roleIsSeat reports whether the role is subject to the one-per-country
// constraint. Observer and staff roles repeat freely.
func roleIsSeat(role string) bool {
	c, err := roles.Lookup(role)
	return err == nil && !c.Observer && !c.Staff
}

func (s *InMemoryStore) conflicts(p Person) bool {
	if !roleIsSeat(p.PrimaryRole) {
		return false
	}
	for _, other := range s.people {
		if other.ID != p.ID && !other.Retired &&
			other.CountryID == p.CountryID && other.PrimaryRole == p.PrimaryRole {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) Save(_ context.Context, p Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[p.ID]; ok {
		return sentinel.ErrConflict
	}
	if s.conflicts(p) {
		return sentinel.ErrConflict
	}
	s.people[p.ID] = p
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, p Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.conflicts(p) {
		return sentinel.ErrConflict
	}
	s.people[p.ID] = p
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[id]
	if !ok {
		return Person{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Person, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, p)
	}
	sortPeople(out)
	return out, nil
}

func (s *InMemoryStore) ByCountry(_ context.Context, countryID string) ([]Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Person
	for _, p := range s.people {
		if p.CountryID == countryID {
			out = append(out, p)
		}
	}
	sortPeople(out)
	return out, nil
}

func (s *InMemoryStore) RoleTaken(_ context.Context, countryID, role, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people {
		if p.ID != excludeID && !p.Retired &&
			p.CountryID == countryID && p.PrimaryRole == role {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) RetireByCountry(_ context.Context, countryID string) ([]Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var retired []Person
	for id, p := range s.people {
		if p.CountryID == countryID && !p.Retired {
			retired = append(retired, p)
			p.Retired = true
			s.people[id] = p
		}
	}
	sortPeople(retired)
	return retired, nil
}

func (s *InMemoryStore) PruneGuideFor(_ context.Context, countryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.people {
		changed := false
		kept := p.GuideFor[:0:0]
		for _, gid := range p.GuideFor {
			if gid == countryID {
				changed = true
				continue
			}
			kept = append(kept, gid)
		}
		if changed {
			p.GuideFor = kept
			s.people[id] = p
		}
	}
	return nil
}

func sortPeople(people []Person) {
	sort.Slice(people, func(i, j int) bool {
		if people[i].CountryID != people[j].CountryID {
			return people[i].CountryID < people[j].CountryID
		}
		return people[i].ID < people[j].ID
	})
}

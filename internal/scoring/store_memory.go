package scoring

import (
	"context"
	"sync"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	cells map[string]map[int]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cells: make(map[string]map[int]int)}
}

func (s *InMemoryStore) Set(_ context.Context, personID string, problem, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cells[personID] == nil {
		s.cells[personID] = make(map[int]int)
	}
	s.cells[personID][problem] = score
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, personID string, problem int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cells[personID], problem)
	return nil
}

func (s *InMemoryStore) ByPerson(_ context.Context, personID string) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]int, len(s.cells[personID]))
	for problem, score := range s.cells[personID] {
		out[problem] = score
	}
	return out, nil
}

func (s *InMemoryStore) All(_ context.Context) (map[string]map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[int]int, len(s.cells))
	for personID, cells := range s.cells {
		cp := make(map[int]int, len(cells))
		for problem, score := range cells {
			cp[problem] = score
		}
		out[personID] = cp
	}
	return out, nil
}

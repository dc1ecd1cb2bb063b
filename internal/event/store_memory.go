package event

import (
	"context"
	"sync"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	state State
}

func NewInMemoryStore(initial State) *InMemoryStore {
	return &InMemoryStore{state: initial}
}

func (s *InMemoryStore) Get(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *InMemoryStore) Update(_ context.Context, fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	if err := fn(&next); err != nil {
		return s.state, err
	}
	next.Version = s.state.Version + 1
	s.state = next
	return next, nil
}

package files

import (
	"context"
	"sync"

	"olympreg/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	files map[string]File
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{files: make(map[string]File)}
}

func (s *InMemoryStore) Save(_ context.Context, f File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[f.ID]; exists {
		return sentinel.ErrConflict
	}
	s.files[f.ID] = f
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return File{}, sentinel.ErrNotFound
	}
	return f, nil
}

func (s *InMemoryStore) Supersede(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	f.Superseded = true
	s.files[id] = f
	return nil
}

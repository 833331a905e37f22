package geocode

import (
	"context"
	"sync"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

type memoryStore struct {
	mu    sync.RWMutex
	items map[string]geo.Coordinates
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: make(map[string]geo.Coordinates)}
}

func (s *memoryStore) Get(_ context.Context, label string) (geo.Coordinates, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[label]
	return c, ok, nil
}

func (s *memoryStore) Put(_ context.Context, label string, c geo.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[label] = c
	return nil
}

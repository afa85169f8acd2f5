package memory

import (
	"context"
	"sync"
)

// StateStore holds scalar process state (session anchors, quota counters)
// in memory. Suitable for local mode and tests only.
type StateStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewStateStore() *StateStore {
	return &StateStore{
		values: make(map[string]string),
	}
}

func (s *StateStore) GetState(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *StateStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

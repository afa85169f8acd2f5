package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/driftnote/driftnote-agent/internal/domain"
)

type EntryStore struct {
	mu      sync.RWMutex
	entries []*domain.JournalEntry
}

func NewEntryStore() *EntryStore {
	return &EntryStore{}
}

func (s *EntryStore) AppendEntry(ctx context.Context, entry *domain.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

// QueryEntries returns entries newest first. A nil since means no date
// restriction.
func (s *EntryStore) QueryEntries(ctx context.Context, since *time.Time) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.JournalEntry
	for _, e := range s.entries {
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

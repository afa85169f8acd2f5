package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/driftnote/driftnote-agent/internal/domain"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.Surface][]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.Surface][]*domain.Message),
	}
}

func (s *MessageStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.Surface] = append(s.messages[msg.Surface], msg)
	return nil
}

func (s *MessageStore) MessagesSince(ctx context.Context, surface domain.Surface, since time.Time) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for _, m := range s.messages[surface] {
		if !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MessageStore) DeleteSince(ctx context.Context, surface domain.Surface, since time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*domain.Message
	for _, m := range s.messages[surface] {
		if m.CreatedAt.Before(since) {
			kept = append(kept, m)
		}
	}
	s.messages[surface] = kept
	return nil
}

package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/driftnote/driftnote-agent/internal/domain"
)

// Service holds the journal-editing surface's logic: listing and adding
// entries. The conversational core only ever reads entries (through the
// retrieval agent); writes come through here.
type Service struct {
	store domain.EntryStore
	now   func() time.Time
}

func NewService(store domain.EntryStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// ListEntries returns entries newest first. If sinceDays > 0 the read is
// restricted to the trailing window.
func (s *Service) ListEntries(ctx context.Context, sinceDays int) ([]*domain.JournalEntry, error) {
	var since *time.Time
	if sinceDays > 0 {
		t := s.now().AddDate(0, 0, -sinceDays)
		since = &t
	}
	return s.store.QueryEntries(ctx, since)
}

// AddEntry records a new journal entry with the current timestamp.
func (s *Service) AddEntry(ctx context.Context, mood, text string) (*domain.JournalEntry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("journal: entry text is required")
	}

	entry := &domain.JournalEntry{
		ID:        domain.EntryID(ulid.Make().String()),
		CreatedAt: s.now(),
		Mood:      strings.TrimSpace(mood),
		Text:      text,
	}
	if err := s.store.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

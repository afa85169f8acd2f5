package domain

import (
	"context"
	"time"
)

// JournalEntry is one dated journal record. The conversation core reads
// entries through the retrieval path; writes come only from the
// journal-editing surface.
type JournalEntry struct {
	ID        EntryID   `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Mood      string    `json:"mood"`
	Text      string    `json:"text"`
}

// EntryStore defines journal entry persistence. Query returns entries
// newest first; a nil since means no date restriction.
type EntryStore interface {
	AppendEntry(ctx context.Context, entry *JournalEntry) error
	QueryEntries(ctx context.Context, since *time.Time) ([]*JournalEntry, error)
}

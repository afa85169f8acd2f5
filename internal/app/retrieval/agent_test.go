package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/driftnote/driftnote-agent/internal/adapters/storage/memory"
	"github.com/driftnote/driftnote-agent/internal/domain"
)

func seededStore(t *testing.T, now time.Time) *memory.EntryStore {
	t.Helper()

	store := memory.NewEntryStore()
	entries := []*domain.JournalEntry{
		{ID: "old", CreatedAt: now.AddDate(0, 0, -30), Mood: "tired", Text: "a long month"},
		{ID: "week", CreatedAt: now.AddDate(0, 0, -3), Mood: "calm", Text: "walked by the river"},
		{ID: "today", CreatedAt: now.Add(-2 * time.Hour), Mood: "upbeat", Text: "good news at work"},
	}
	for _, e := range entries {
		if err := store.AppendEntry(context.Background(), e); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
	}
	return store
}

func TestLatelyRestrictsToSevenDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := NewAgent(seededStore(t, now), func() time.Time { return now })

	digest, err := agent.FetchDigest(context.Background(), "what happened lately?")
	if err != nil {
		t.Fatalf("FetchDigest failed: %v", err)
	}

	if strings.Contains(digest, "a long month") {
		t.Errorf("digest should exclude entries older than 7 days, got:\n%s", digest)
	}
	if !strings.Contains(digest, "walked by the river") || !strings.Contains(digest, "good news at work") {
		t.Errorf("digest missing recent entries:\n%s", digest)
	}
}

func TestEverythingIsUnbounded(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := NewAgent(seededStore(t, now), func() time.Time { return now })

	digest, err := agent.FetchDigest(context.Background(), "show me everything")
	if err != nil {
		t.Fatalf("FetchDigest failed: %v", err)
	}

	if !strings.Contains(digest, "a long month") {
		t.Errorf("unbounded digest should include old entries:\n%s", digest)
	}
}

func TestFirstMatchWins(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := NewAgent(seededStore(t, now), func() time.Time { return now })

	// "recent" is checked before "everything", so this stays windowed.
	digest, err := agent.FetchDigest(context.Background(), "everything recent")
	if err != nil {
		t.Fatalf("FetchDigest failed: %v", err)
	}

	if strings.Contains(digest, "a long month") {
		t.Errorf("recent-flavored query should stay windowed:\n%s", digest)
	}
}

func TestEmptyWindowReturnsSentinel(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := NewAgent(memory.NewEntryStore(), func() time.Time { return now })

	for _, query := range []string{"what happened lately?", "show me everything"} {
		digest, err := agent.FetchDigest(context.Background(), query)
		if err != nil {
			t.Fatalf("FetchDigest(%q) failed: %v", query, err)
		}
		if digest != NoEntriesDigest {
			t.Errorf("FetchDigest(%q) = %q, want sentinel", query, digest)
		}
	}
}

func TestDigestLineFormat(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := NewAgent(seededStore(t, now), func() time.Time { return now })

	digest, err := agent.FetchDigest(context.Background(), "lately")
	if err != nil {
		t.Fatalf("FetchDigest failed: %v", err)
	}

	lines := strings.Split(digest, "\n")
	if lines[0] != "[2026-03-10] (upbeat) good news at work" {
		t.Errorf("unexpected first line (newest should come first): %q", lines[0])
	}
}

func TestDigestCapsAtTwentyLines(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := memory.NewEntryStore()
	for i := 0; i < 30; i++ {
		err := store.AppendEntry(context.Background(), &domain.JournalEntry{
			ID:        domain.EntryID(fmt.Sprintf("e%02d", i)),
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
			Mood:      "steady",
			Text:      fmt.Sprintf("entry %d", i),
		})
		if err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
	}

	agent := NewAgent(store, func() time.Time { return now })
	digest, err := agent.FetchDigest(context.Background(), "lately")
	if err != nil {
		t.Fatalf("FetchDigest failed: %v", err)
	}

	lines := strings.Split(digest, "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "entry 0") {
		t.Errorf("cap should keep the most recent entries, first line: %q", lines[0])
	}
}

func TestCancelledContext(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := NewAgent(seededStore(t, now), func() time.Time { return now })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := agent.FetchDigest(ctx, "lately"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/driftnote/driftnote-agent/internal/domain"
	"github.com/driftnote/driftnote-agent/internal/observability"
)

// NoEntriesDigest is returned when the query window holds no entries.
const NoEntriesDigest = "The user has no journal entries for this period."

// recentWindow is the lookback applied to "recent"-flavored queries and
// to anything that doesn't name a window.
const recentWindow = 7 * 24 * time.Hour

// maxDigestLines caps the rendered digest at the most recent entries.
const maxDigestLines = 20

// Agent translates a free-text retrieval query into a time window, reads
// matching journal entries, and renders a bounded textual digest.
type Agent struct {
	entries domain.EntryStore
	now     func() time.Time
}

func NewAgent(entries domain.EntryStore, now func() time.Time) *Agent {
	if now == nil {
		now = time.Now
	}
	return &Agent{
		entries: entries,
		now:     now,
	}
}

// FetchDigest classifies the query, reads the entry store, and returns the
// digest text. Entries render newest first, one line each, capped at the
// 20 most recent.
func (a *Agent) FetchDigest(ctx context.Context, query string) (string, error) {
	since := a.classify(query)

	entries, err := a.entries.QueryEntries(ctx, since)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	observability.LoggerFromContext(ctx).Info("journal retrieval",
		"query", query,
		"windowed", since != nil,
		"entry_count", len(entries))

	if len(entries) == 0 {
		return NoEntriesDigest, nil
	}

	if len(entries) > maxDigestLines {
		entries = entries[:maxDigestLines]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, renderLine(e))
	}
	return strings.Join(lines, "\n"), nil
}

// classify maps a query to a lookback window. Matching is a case-
// insensitive substring check and the first match wins, so "show me
// everything recent" restricts to the last 7 days.
func (a *Agent) classify(query string) *time.Time {
	lower := strings.ToLower(query)

	if strings.Contains(lower, "lately") || strings.Contains(lower, "recent") {
		since := a.now().Add(-recentWindow)
		return &since
	}
	if strings.Contains(lower, "all") || strings.Contains(lower, "everything") {
		return nil
	}

	since := a.now().Add(-recentWindow)
	return &since
}

func renderLine(e *domain.JournalEntry) string {
	return "[" + e.CreatedAt.Format("2006-01-02") + "] (" + e.Mood + ") " + e.Text
}

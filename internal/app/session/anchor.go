package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/driftnote/driftnote-agent/internal/domain"
)

// Anchor owns the persisted session-start timestamp for one surface. The
// visible message log is exactly the messages at or after Start; resetting
// the anchor is the only way conversation history is truncated.
//
// Each surface persists its own key so clearing one surface can never
// reset the other's session.
type Anchor struct {
	state   domain.StateStore
	surface domain.Surface
	now     func() time.Time

	mu    sync.Mutex
	start time.Time
}

func stateKey(surface domain.Surface) string {
	return "session_start:" + string(surface)
}

// Load reads the anchor for a surface, initializing it to now on first use
// and rolling it forward to now when the calendar day has changed since it
// was last persisted.
func Load(ctx context.Context, state domain.StateStore, surface domain.Surface, now func() time.Time) (*Anchor, error) {
	if now == nil {
		now = time.Now
	}

	a := &Anchor{
		state:   state,
		surface: surface,
		now:     now,
	}

	raw, ok, err := state.GetState(ctx, stateKey(surface))
	if err != nil {
		return nil, fmt.Errorf("loading session anchor: %w", err)
	}

	if ok {
		start, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr == nil && sameDay(start, now()) {
			a.start = start
			return a, nil
		}
	}

	if _, err := a.Reset(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Start returns the current session start.
func (a *Anchor) Start() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.start
}

// Reset moves the anchor to now and persists it, returning the new start.
func (a *Anchor) Reset(ctx context.Context) (time.Time, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.now()
	if err := a.state.SetState(ctx, stateKey(a.surface), start.Format(time.RFC3339Nano)); err != nil {
		return time.Time{}, fmt.Errorf("persisting session anchor: %w", err)
	}
	a.start = start
	return start, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package quota

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/driftnote/driftnote-agent/internal/domain"
	"github.com/driftnote/driftnote-agent/internal/observability"
)

const dayFormat = "2006-01-02"

// Gate tracks a per-day counter of user-initiated sends on one surface.
// Privileged (subscribed) users always pass; a limit <= 0 disables the
// quota entirely (the general chat surface runs with no limit).
//
// The counter and its window anchor persist in the state store so the
// quota survives restarts. State read/write failures degrade open: the
// quota is a product limit, not a security boundary, so a broken store
// must not lock the user out.
type Gate struct {
	state        domain.StateStore
	entitlements domain.Entitlements
	surface      domain.Surface
	limit        int
	now          func() time.Time

	mu sync.Mutex
}

func NewGate(state domain.StateStore, entitlements domain.Entitlements, surface domain.Surface, limit int, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		state:        state,
		entitlements: entitlements,
		surface:      surface,
		limit:        limit,
		now:          now,
	}
}

func (g *Gate) countKey() string  { return "quota_count:" + string(g.surface) }
func (g *Gate) windowKey() string { return "quota_window:" + string(g.surface) }

// CanSend normalizes the quota window (a day change resets the counter)
// and reports whether another send is allowed today.
func (g *Gate) CanSend(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := g.normalize(ctx)

	if g.entitlements != nil && g.entitlements.IsPrivileged(ctx) {
		return true
	}
	if g.limit <= 0 {
		return true
	}
	return count < g.limit
}

// RecordSend increments the daily counter. The caller invokes it exactly
// once per accepted send, after CanSend returned true.
func (g *Gate) RecordSend(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := g.normalize(ctx)
	g.setCount(ctx, count+1)
}

// normalize resets the counter when the calendar day changed and returns
// the current count.
func (g *Gate) normalize(ctx context.Context) int {
	today := g.now().Format(dayFormat)

	window, ok, err := g.state.GetState(ctx, g.windowKey())
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("quota window read failed", "surface", g.surface, "error", err)
		return 0
	}

	if !ok || window != today {
		if err := g.state.SetState(ctx, g.windowKey(), today); err != nil {
			observability.LoggerFromContext(ctx).Warn("quota window write failed", "surface", g.surface, "error", err)
		}
		g.setCount(ctx, 0)
		return 0
	}

	raw, ok, err := g.state.GetState(ctx, g.countKey())
	if err != nil || !ok {
		return 0
	}
	count, convErr := strconv.Atoi(raw)
	if convErr != nil {
		return 0
	}
	return count
}

func (g *Gate) setCount(ctx context.Context, count int) {
	if err := g.state.SetState(ctx, g.countKey(), strconv.Itoa(count)); err != nil {
		observability.LoggerFromContext(ctx).Warn("quota count write failed", "surface", g.surface, "error", err)
	}
}

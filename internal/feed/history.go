package feed

import (
	"context"
	"sync"
	"time"

	"github.com/oddsboard/oddsboard/internal/domain"
)

const (
	// DefaultHistoryWindow bounds how far back the delta comparison reaches.
	DefaultHistoryWindow = 5 * time.Minute

	// DefaultMaxPoints caps retained points independent of age.
	DefaultMaxPoints = 100

	// DefaultPurgeInterval is the cadence of the background purge, which
	// lets deltas decay toward nil when the market goes quiet.
	DefaultPurgeInterval = 30 * time.Second
)

// History maintains a rolling time-window of observed (yes, no) prices for
// one overlay session and derives change-over-window deltas.
//
// Retention is time-based first (points older than the window are trimmed
// from the front; insertion order is time order, so this is a prefix trim)
// with a hard count cap on top to bound memory under fast polling. Because
// points age out, the "earliest retained" point drifts forward, so a delta
// approximates change over the last window rather than change since a fixed
// anchor.
type History struct {
	mu        sync.Mutex
	points    []domain.PricePoint
	window    time.Duration
	maxPoints int
	now       func() time.Time
}

// NewHistory creates a History. Non-positive arguments fall back to the
// defaults.
func NewHistory(window time.Duration, maxPoints int) *History {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &History{
		window:    window,
		maxPoints: maxPoints,
		now:       time.Now,
	}
}

// Add appends a price observation stamped with the current time. Expired
// points are trimmed before the append and the count cap is enforced after,
// dropping oldest first.
func (h *History) Add(yesPrice, noPrice int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.trimLocked(now)

	h.points = append(h.points, domain.PricePoint{
		Timestamp: now,
		YesPrice:  yesPrice,
		NoPrice:   noPrice,
	})

	if excess := len(h.points) - h.maxPoints; excess > 0 {
		h.points = h.points[excess:]
	}
}

// Deltas returns the change from the earliest retained point to the latest.
// With fewer than two retained points both deltas are nil: "no data" is
// distinguishable from "no change".
func (h *History) Deltas() (yesDelta, noDelta *int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.points) < 2 {
		return nil, nil
	}

	oldest := h.points[0]
	latest := h.points[len(h.points)-1]
	yd := latest.YesPrice - oldest.YesPrice
	nd := latest.NoPrice - oldest.NoPrice
	return &yd, &nd
}

// Points returns a copy of the retained points, oldest first.
func (h *History) Points() []domain.PricePoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.points) == 0 {
		return nil
	}
	out := make([]domain.PricePoint, len(h.points))
	copy(out, h.points)
	return out
}

// Purge drops points that have fallen outside the window.
func (h *History) Purge() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trimLocked(h.now())
}

// Run purges on a fixed cadence until ctx is cancelled, so a quiet market's
// delta does not compare against an arbitrarily old point forever.
func (h *History) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Purge()
		}
	}
}

// trimLocked removes the expired prefix. Caller holds h.mu.
func (h *History) trimLocked(now time.Time) {
	cutoff := now.Add(-h.window)
	i := 0
	for i < len(h.points) && !h.points[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		h.points = h.points[i:]
	}
}

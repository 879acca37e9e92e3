package overlay

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/feed"
)

type stubSource struct{}

func (stubSource) Market(_ context.Context, ticker string) (domain.MarketSnapshot, error) {
	return domain.MarketSnapshot{Ticker: ticker, Title: "stub", YesPrice: 50, NoPrice: 50, Status: domain.MarketStatusOpen}, nil
}

func (stubSource) Orderbook(context.Context, string) (*domain.OrderbookSnapshot, error) {
	return nil, nil
}

func (stubSource) LastTrade(context.Context, string) (*domain.TradeSnapshot, error) {
	return nil, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(stubSource{}, ManagerConfig{
		PollInterval: time.Hour, // first poll only; no background churn in tests
		IdleTTL:      time.Minute,
	}, logger)
	t.Cleanup(m.shutdown)
	return m
}

func TestManager_SharesSessionPerTicker(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	a, releaseA := m.Acquire(ctx, "KXA-26-X")
	b, releaseB := m.Acquire(ctx, "KXA-26-X")
	c, releaseC := m.Acquire(ctx, "KXB-26-Y")
	defer releaseA()
	defer releaseB()
	defer releaseC()

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, m.ActiveSessions())
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestManager_ReapSkipsHeldAndFreshSessions(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	held, _ := m.Acquire(ctx, "KXHELD-26-A")
	idle, releaseIdle := m.Acquire(ctx, "KXIDLE-26-B")
	releaseIdle()

	// Both sessions are fresh, neither is past the TTL yet.
	m.reap()
	assert.Equal(t, 2, m.ActiveSessions())

	// Backdate both. Only the released one may be reaped.
	past := time.Now().Add(-time.Hour)
	held.mu.Lock()
	held.lastUsed = past
	held.mu.Unlock()
	idle.mu.Lock()
	idle.lastUsed = past
	idle.mu.Unlock()

	m.reap()
	assert.Equal(t, 1, m.ActiveSessions())
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	sess, release := m.Acquire(context.Background(), "KXREL-26-A")
	release()
	release()

	refs, _ := sess.idleSince()
	assert.Equal(t, 0, refs)
}

func TestSession_ViewBeforeFirstCommit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := &Session{
		Fetcher: feed.NewFetcher(stubSource{}, "KXVIEW-26-A", time.Hour, logger),
		History: feed.NewHistory(time.Minute, 10),
	}

	view := sess.View()
	assert.Equal(t, feed.PhaseLoading, view.Phase)
	assert.Nil(t, view.Snapshot)
	assert.Nil(t, view.YesDelta)
}

func TestSession_ViewAfterCommit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := &Session{
		Fetcher: feed.NewFetcher(stubSource{}, "KXVIEW-26-B", time.Hour, logger),
		History: feed.NewHistory(time.Minute, 10),
	}
	sess.Fetcher.Refetch(context.Background())

	view := sess.View()
	assert.Equal(t, feed.PhaseReady, view.Phase)
	require.NotNil(t, view.Snapshot)
	assert.Equal(t, "KXVIEW-26-B", view.Snapshot.Market.Ticker)
}

func TestManager_ReapReleasesSessionResources(t *testing.T) {
	m := newTestManager(t)

	sess, release := m.Acquire(context.Background(), "KXREAP-26-A")
	states, cancelSub := sess.Subscribe()
	defer cancelSub()
	release()

	sess.mu.Lock()
	sess.lastUsed = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	m.reap()
	require.Equal(t, 0, m.ActiveSessions())

	// Stopping the fetcher must close subscriber channels so the history
	// feed and any websocket forwarders exit instead of parking forever.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-states:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("subscription channel still open after reap")
		}
	}
}

func TestManager_AcquireNeverReturnsReapedSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		sess, release := m.Acquire(ctx, "KXRACE-26-A")
		release()
		sess.mu.Lock()
		sess.lastUsed = time.Now().Add(-time.Hour)
		sess.mu.Unlock()

		done := make(chan struct{})
		go func() {
			m.reap()
			close(done)
		}()
		got, releaseGot := m.Acquire(ctx, "KXRACE-26-A")
		<-done

		// Whichever side won, the handed-out session must be live: a
		// stopped fetcher hands subscribers an already-closed channel.
		ch, cancelSub := got.Fetcher.Subscribe()
		select {
		case _, open := <-ch:
			require.True(t, open, "acquire handed out a stopped session")
		default:
		}
		cancelSub()
		releaseGot()
	}
}

package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsboard/oddsboard/internal/domain"
)

// fakeSource scripts the three per-ticker resources for fetcher tests.
type fakeSource struct {
	mu       sync.Mutex
	marketFn func(ctx context.Context, ticker string) (domain.MarketSnapshot, error)
	bookFn   func(ctx context.Context, ticker string) (*domain.OrderbookSnapshot, error)
	tradeFn  func(ctx context.Context, ticker string) (*domain.TradeSnapshot, error)
}

func (s *fakeSource) Market(ctx context.Context, ticker string) (domain.MarketSnapshot, error) {
	s.mu.Lock()
	fn := s.marketFn
	s.mu.Unlock()
	if fn == nil {
		return domain.MarketSnapshot{Ticker: ticker, YesPrice: 50, NoPrice: 50}, nil
	}
	return fn(ctx, ticker)
}

func (s *fakeSource) Orderbook(ctx context.Context, ticker string) (*domain.OrderbookSnapshot, error) {
	s.mu.Lock()
	fn := s.bookFn
	s.mu.Unlock()
	if fn == nil {
		return &domain.OrderbookSnapshot{}, nil
	}
	return fn(ctx, ticker)
}

func (s *fakeSource) LastTrade(ctx context.Context, ticker string) (*domain.TradeSnapshot, error) {
	s.mu.Lock()
	fn := s.tradeFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, ticker)
}

func (s *fakeSource) setMarket(fn func(ctx context.Context, ticker string) (domain.MarketSnapshot, error)) {
	s.mu.Lock()
	s.marketFn = fn
	s.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRefetch_Success(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src, "KXTEST-26JAN-T1", time.Second, testLogger())

	f.Refetch(context.Background())

	state := f.State()
	assert.Equal(t, PhaseReady, state.Phase)
	assert.False(t, state.Stale)
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, "KXTEST-26JAN-T1", state.Snapshot.Market.Ticker)
	assert.NotNil(t, state.Snapshot.Orderbook)
	assert.False(t, state.Snapshot.FetchedAt.IsZero())
}

func TestRefetch_FirstPollFails(t *testing.T) {
	src := &fakeSource{}
	src.setMarket(func(ctx context.Context, ticker string) (domain.MarketSnapshot, error) {
		return domain.MarketSnapshot{}, errors.New("boom")
	})
	f := NewFetcher(src, "KXTEST-26JAN-T1", time.Second, testLogger())

	f.Refetch(context.Background())

	state := f.State()
	assert.Equal(t, PhaseError, state.Phase)
	assert.Nil(t, state.Snapshot)
	assert.False(t, state.Stale, "nothing to be stale relative to")
	assert.NotEmpty(t, state.Error)
}

func TestRefetch_SecondaryFailuresTolerated(t *testing.T) {
	src := &fakeSource{
		bookFn: func(ctx context.Context, ticker string) (*domain.OrderbookSnapshot, error) {
			return nil, errors.New("orderbook down")
		},
		tradeFn: func(ctx context.Context, ticker string) (*domain.TradeSnapshot, error) {
			return nil, errors.New("trades down")
		},
	}
	f := NewFetcher(src, "KXTEST-26JAN-T1", time.Second, testLogger())

	f.Refetch(context.Background())

	state := f.State()
	assert.Equal(t, PhaseReady, state.Phase)
	require.NotNil(t, state.Snapshot)
	assert.Nil(t, state.Snapshot.Orderbook)
	assert.Nil(t, state.Snapshot.LastTrade)
}

func TestRefetch_LaterFailureGoesStale(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src, "KXTEST-26JAN-T1", time.Second, testLogger())

	f.Refetch(context.Background())
	require.Equal(t, PhaseReady, f.State().Phase)
	first := f.State().Snapshot

	src.setMarket(func(ctx context.Context, ticker string) (domain.MarketSnapshot, error) {
		return domain.MarketSnapshot{}, errors.New("upstream 500")
	})
	f.Refetch(context.Background())

	state := f.State()
	assert.Equal(t, PhaseReady, state.Phase, "never regresses to error once data was shown")
	assert.True(t, state.Stale)
	assert.Same(t, first, state.Snapshot, "last good snapshot keeps rendering")

	// A later success clears the flag and replaces the snapshot wholesale.
	src.setMarket(nil)
	f.Refetch(context.Background())

	state = f.State()
	assert.Equal(t, PhaseReady, state.Phase)
	assert.False(t, state.Stale)
	assert.NotSame(t, first, state.Snapshot)
}

func TestRefetch_SupersededCycleNeverCommits(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{}
	src.setMarket(func(ctx context.Context, ticker string) (domain.MarketSnapshot, error) {
		if ticker == "KXSLOW-26JAN-T1" {
			<-gate
		}
		return domain.MarketSnapshot{Ticker: ticker, YesPrice: 50, NoPrice: 50}, nil
	})

	f := NewFetcher(src, "KXSLOW-26JAN-T1", time.Second, testLogger())
	updates, cancelSub := f.Subscribe()
	defer cancelSub()

	slowDone := make(chan struct{})
	go func() {
		f.Refetch(context.Background())
		close(slowDone)
	}()

	// Switch tickers while the first cycle is still in flight. SetTicker
	// kicks off the new cycle asynchronously; wait for its commit.
	f.SetTicker(context.Background(), "KXFAST-26JAN-T1")

	select {
	case state := <-updates:
		require.NotNil(t, state.Snapshot)
		assert.Equal(t, "KXFAST-26JAN-T1", state.Snapshot.Market.Ticker)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the new ticker's commit")
	}

	// Let the slow cycle settle; its result must be discarded.
	close(gate)
	select {
	case <-slowDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the superseded cycle to settle")
	}

	state := f.State()
	require.NotNil(t, state.Snapshot)
	assert.Equal(t, "KXFAST-26JAN-T1", state.Snapshot.Market.Ticker,
		"late arrival from the superseded cycle must not overwrite newer data")
}

func TestSetTicker_SameTickerNoop(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src, "KXTEST-26JAN-T1", time.Second, testLogger())
	f.Refetch(context.Background())
	snap := f.State().Snapshot

	f.SetTicker(context.Background(), "KXTEST-26JAN-T1")
	assert.Same(t, snap, f.State().Snapshot)
}

func TestRefetch_EmptyTickerNoop(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src, "", time.Second, testLogger())

	f.Refetch(context.Background())

	state := f.State()
	assert.Equal(t, PhaseLoading, state.Phase)
	assert.Nil(t, state.Snapshot)
}

func TestStop_Idempotent(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src, "KXTEST-26JAN-T1", 10*time.Millisecond, testLogger())

	f.Stop()
	f.Stop()

	// Refetch after stop is a no-op.
	f.Refetch(context.Background())
	assert.Equal(t, PhaseLoading, f.State().Phase)
}

func TestSubscribe_Cancel(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src, "KXTEST-26JAN-T1", time.Second, testLogger())

	ch, cancel := f.Subscribe()
	f.Refetch(context.Background())

	select {
	case state := <-ch:
		assert.Equal(t, PhaseReady, state.Phase)
	case <-time.After(time.Second):
		t.Fatal("expected an update after a committed cycle")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open, "cancel closes the subscription channel")
}

func TestSetTicker_SupersedesBeforeNewCycleStarts(t *testing.T) {
	oldGate := make(chan struct{})
	oldEntered := make(chan struct{})
	newGate := make(chan struct{})
	src := &fakeSource{}
	src.setMarket(func(ctx context.Context, ticker string) (domain.MarketSnapshot, error) {
		switch ticker {
		case "KXOLD-26JAN-T1":
			close(oldEntered)
			<-oldGate
		case "KXNEW-26JAN-T1":
			<-newGate
		}
		return domain.MarketSnapshot{Ticker: ticker, YesPrice: 50, NoPrice: 50}, nil
	})

	f := NewFetcher(src, "KXOLD-26JAN-T1", time.Second, testLogger())

	oldDone := make(chan struct{})
	go func() {
		f.Refetch(context.Background())
		close(oldDone)
	}()
	<-oldEntered

	// The switch must supersede the old cycle synchronously: even if the old
	// ticker's fetch settles before the replacement cycle is scheduled, its
	// result may not commit.
	f.SetTicker(context.Background(), "KXNEW-26JAN-T1")
	close(oldGate)
	select {
	case <-oldDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the old ticker's cycle to settle")
	}

	state := f.State()
	assert.Equal(t, PhaseLoading, state.Phase)
	assert.Nil(t, state.Snapshot, "old ticker's late commit must be discarded")

	close(newGate)
	require.Eventually(t, func() bool {
		st := f.State()
		return st.Snapshot != nil && st.Snapshot.Market.Ticker == "KXNEW-26JAN-T1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStop_ClosesSubscribers(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src, "KXTEST-26JAN-T1", time.Second, testLogger())

	ch, cancel := f.Subscribe()
	defer cancel()

	f.Stop()

	select {
	case _, open := <-ch:
		assert.False(t, open, "stop closes subscriber channels")
	case <-time.After(time.Second):
		t.Fatal("subscription channel still open after stop")
	}

	// Late subscribers get an already-closed channel.
	late, _ := f.Subscribe()
	_, open := <-late
	assert.False(t, open)
}

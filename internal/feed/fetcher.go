// Package feed implements the live market-data pipeline behind each overlay:
// a polling fetcher that merges three upstream resources into one snapshot,
// and a rolling price history that derives change-over-window deltas.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/metrics"
)

// DefaultPollInterval matches the 5-second cadence of the overlay widgets.
const DefaultPollInterval = 5 * time.Second

// Source provides the three per-ticker resources a poll cycle fans out to.
// Implemented by the Kalshi client adapter; tests substitute fakes.
type Source interface {
	Market(ctx context.Context, ticker string) (domain.MarketSnapshot, error)
	Orderbook(ctx context.Context, ticker string) (*domain.OrderbookSnapshot, error)
	LastTrade(ctx context.Context, ticker string) (*domain.TradeSnapshot, error)
}

// Phase is the coarse presentation state derived from fetch outcomes.
type Phase string

const (
	PhaseLoading Phase = "loading" // no snapshot yet, no failure yet
	PhaseError   Phase = "error"   // no snapshot yet, last poll failed
	PhaseReady   Phase = "ready"   // snapshot available (possibly stale)
)

// State is a read-only view of the fetcher handed to consumers. Stale is
// orthogonal to Phase: stale data still renders through the ready path.
type State struct {
	Phase    Phase                    `json:"phase"`
	Stale    bool                     `json:"stale"`
	Error    string                   `json:"error,omitempty"`
	Snapshot *domain.CombinedSnapshot `json:"snapshot"`
}

// Fetcher polls one ticker's market, orderbook, and last trade on a fixed
// cadence and maintains the freshest committable CombinedSnapshot.
//
// Poll cycles are serialized by supersession: every new cycle increments a
// generation counter and cancels the previous in-flight cycle, and a settling
// cycle only commits while its generation is still current. The committed
// snapshot therefore always reflects the most recently started cycle that
// completed, never an older one racing in late.
type Fetcher struct {
	source   Source
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	ticker     string
	gen        uint64
	pollCancel context.CancelFunc
	snap       *domain.CombinedSnapshot
	errMsg     string
	stale      bool
	failures   int

	subMu   sync.Mutex
	subs    map[int]chan State
	nextSub int

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewFetcher creates a fetcher for the given ticker. The interval falls back
// to DefaultPollInterval when non-positive.
func NewFetcher(source Source, ticker string, interval time.Duration, logger *slog.Logger) *Fetcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Fetcher{
		source:   source,
		ticker:   ticker,
		interval: interval,
		logger:   logger.With(slog.String("component", "fetcher"), slog.String("ticker", ticker)),
		now:      time.Now,
		subs:     make(map[int]chan State),
		stopped:  make(chan struct{}),
	}
}

// Start begins polling until ctx is cancelled or Stop is called. It is a
// no-op when the ticker is empty. Start does not block.
func (f *Fetcher) Start(ctx context.Context) {
	f.mu.Lock()
	ticker := f.ticker
	f.mu.Unlock()
	if ticker == "" {
		return
	}

	go f.run(ctx)
}

func (f *Fetcher) run(ctx context.Context) {
	f.logger.Debug("fetcher started", slog.Duration("interval", f.interval))
	defer f.logger.Debug("fetcher stopped")

	// First cycle immediately, then on the tick. Cycles run detached so a
	// hung request never delays the next tick; supersession cancels it.
	go f.Refetch(ctx)

	t := time.NewTicker(f.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopped:
			return
		case <-t.C:
			go f.Refetch(ctx)
		}
	}
}

// Stop cancels polling and any in-flight cycle, and closes every subscriber
// channel so consumer goroutines unblock and exit. Idempotent.
func (f *Fetcher) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopped)
		f.mu.Lock()
		if f.pollCancel != nil {
			f.pollCancel()
		}
		f.mu.Unlock()

		f.subMu.Lock()
		for id, ch := range f.subs {
			delete(f.subs, id)
			close(ch)
		}
		f.subMu.Unlock()
	})
}

// SetTicker switches the fetcher to a new ticker. The current snapshot is
// discarded, any in-flight cycle is superseded, and a fresh cycle starts
// immediately. A no-op when the ticker is unchanged.
func (f *Fetcher) SetTicker(ctx context.Context, ticker string) {
	f.mu.Lock()
	if ticker == f.ticker || ticker == "" {
		f.mu.Unlock()
		return
	}
	f.ticker = ticker
	f.snap = nil
	f.errMsg = ""
	f.stale = false
	f.failures = 0
	// Supersede before the replacement cycle is even scheduled: a settling
	// poll for the old ticker must not commit into the new ticker's state.
	f.gen++
	if f.pollCancel != nil {
		f.pollCancel()
	}
	f.mu.Unlock()

	go f.Refetch(ctx)
}

// Refetch runs one complete poll cycle synchronously: it supersedes any
// in-flight cycle, fans out to the three resources, and commits the result
// unless a newer cycle has started in the meantime.
func (f *Fetcher) Refetch(ctx context.Context) {
	select {
	case <-f.stopped:
		return
	default:
	}

	f.mu.Lock()
	ticker := f.ticker
	if ticker == "" {
		f.mu.Unlock()
		return
	}
	f.gen++
	gen := f.gen
	if f.pollCancel != nil {
		f.pollCancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	f.pollCancel = cancel
	f.mu.Unlock()

	defer cancel()
	f.poll(pollCtx, gen, ticker)
}

// poll fans out to market, orderbook, and trade retrieval, waits for all
// three to settle, and commits. Orderbook and trade failures degrade to nil
// sub-resources; a market failure fails the cycle.
func (f *Fetcher) poll(ctx context.Context, gen uint64, ticker string) {
	started := f.now()

	var (
		market domain.MarketSnapshot
		book   *domain.OrderbookSnapshot
		trade  *domain.TradeSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := f.source.Market(gctx, ticker)
		if err != nil {
			return err
		}
		market = m
		return nil
	})
	g.Go(func() error {
		b, err := f.source.Orderbook(gctx, ticker)
		if err != nil {
			f.logger.Debug("orderbook fetch failed", slog.String("error", err.Error()))
			return nil
		}
		book = b
		return nil
	})
	g.Go(func() error {
		tr, err := f.source.LastTrade(gctx, ticker)
		if err != nil {
			f.logger.Debug("trade fetch failed", slog.String("error", err.Error()))
			return nil
		}
		trade = tr
		return nil
	})

	if err := g.Wait(); err != nil {
		// A superseded cycle's cancellation is not a reportable failure.
		if ctx.Err() != nil {
			metrics.PollsTotal.WithLabelValues("superseded").Inc()
			return
		}
		f.commitFailure(gen, err)
		return
	}

	f.commitSuccess(gen, &domain.CombinedSnapshot{
		Market:    market,
		Orderbook: book,
		LastTrade: trade,
		FetchedAt: f.now(),
	}, f.now().Sub(started))
}

func (f *Fetcher) commitSuccess(gen uint64, snap *domain.CombinedSnapshot, elapsed time.Duration) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		metrics.PollsTotal.WithLabelValues("superseded").Inc()
		return
	}
	f.snap = snap
	f.errMsg = ""
	f.stale = false
	f.failures = 0
	state := f.stateLocked()
	f.mu.Unlock()

	metrics.PollsTotal.WithLabelValues("ok").Inc()
	metrics.PollDuration.Observe(elapsed.Seconds())

	f.logger.Debug("poll committed",
		slog.Int("yes_price", snap.Market.YesPrice),
		slog.Duration("elapsed", elapsed),
	)
	f.notify(state)
}

func (f *Fetcher) commitFailure(gen uint64, err error) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		metrics.PollsTotal.WithLabelValues("superseded").Inc()
		return
	}
	f.failures++
	failures := f.failures
	if f.snap != nil {
		// Keep serving the last good snapshot; flag it instead of erroring.
		f.stale = true
	} else {
		f.errMsg = err.Error()
	}
	state := f.stateLocked()
	f.mu.Unlock()

	if state.Stale {
		metrics.PollsTotal.WithLabelValues("stale").Inc()
	} else {
		metrics.PollsTotal.WithLabelValues("error").Inc()
	}

	f.logger.Warn("poll failed",
		slog.String("error", err.Error()),
		slog.Int("consecutive_failures", failures),
		slog.Bool("stale", state.Stale),
	)
	f.notify(state)
}

// State returns the current presentation state. The snapshot pointer is
// shared but the snapshot itself is immutable once committed.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *Fetcher) stateLocked() State {
	s := State{
		Stale:    f.stale,
		Error:    f.errMsg,
		Snapshot: f.snap,
	}
	switch {
	case f.snap != nil:
		s.Phase = PhaseReady
	case f.errMsg != "":
		s.Phase = PhaseError
	default:
		s.Phase = PhaseLoading
	}
	return s
}

// Subscribe registers for state updates after each settled poll cycle. The
// returned cancel function must be called to release the subscription. Slow
// consumers miss intermediate states rather than blocking the fetcher. After
// Stop, Subscribe returns an already-closed channel.
func (f *Fetcher) Subscribe() (<-chan State, func()) {
	f.subMu.Lock()
	select {
	case <-f.stopped:
		f.subMu.Unlock()
		ch := make(chan State)
		close(ch)
		return ch, func() {}
	default:
	}
	id := f.nextSub
	f.nextSub++
	ch := make(chan State, 8)
	f.subs[id] = ch
	f.subMu.Unlock()

	return ch, func() {
		f.subMu.Lock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
		f.subMu.Unlock()
	}
}

func (f *Fetcher) notify(state State) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

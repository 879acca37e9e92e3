package overlay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oddsboard/oddsboard/internal/feed"
	"github.com/oddsboard/oddsboard/internal/metrics"
)

// Session is the process-local state behind one displayed ticker: a fetcher,
// a price history fed from its commits, and the goroutines that keep both
// alive. Sessions are shared by every embed of the same ticker and reaped
// once idle.
type Session struct {
	ID      string
	Ticker  string
	Fetcher *feed.Fetcher
	History *feed.History

	cancel context.CancelFunc

	mu       sync.Mutex
	refs     int
	lastUsed time.Time
}

// View returns the session's current derived view state.
func (s *Session) View() ViewState {
	return BuildViewState(s.Fetcher.State(), s.History)
}

// Subscribe streams a view state on every settled poll cycle. Release the
// subscription with the returned cancel function.
func (s *Session) Subscribe() (<-chan ViewState, func()) {
	states, cancel := s.Fetcher.Subscribe()
	out := make(chan ViewState, 8)
	go func() {
		defer close(out)
		for st := range states {
			select {
			case out <- BuildViewState(st, s.History):
			default:
			}
		}
	}()
	return out, cancel
}

func (s *Session) acquire() {
	s.mu.Lock()
	s.refs++
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) release() {
	s.mu.Lock()
	if s.refs > 0 {
		s.refs--
	}
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs, s.lastUsed
}

// ManagerConfig tunes session lifecycles.
type ManagerConfig struct {
	PollInterval  time.Duration
	HistoryWindow time.Duration
	MaxPoints     int
	PurgeInterval time.Duration
	IdleTTL       time.Duration
}

// Manager owns one session per active ticker. Each overlay embed is an
// independent process-local session; there is no cross-session coordination.
type Manager struct {
	source feed.Source
	cfg    ManagerConfig
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(source feed.Source, cfg ManagerConfig, logger *slog.Logger) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Minute
	}
	return &Manager{
		source:   source,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "overlay_manager")),
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the live session for ticker, creating and starting one on
// first use. The caller must call the returned release function when done;
// the session keeps polling until it has been idle past the TTL.
func (m *Manager) Acquire(ctx context.Context, ticker string) (*Session, func()) {
	m.mu.Lock()
	sess, ok := m.sessions[ticker]
	if !ok {
		sess = m.startSession(ctx, ticker)
		m.sessions[ticker] = sess
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	// Take the reference under m.mu so a concurrent reap cannot observe the
	// session idle between lookup and acquire and stop it mid-handoff.
	sess.acquire()
	m.mu.Unlock()

	var once sync.Once
	return sess, func() { once.Do(sess.release) }
}

// startSession wires a fetcher and history together. Caller holds m.mu.
// The session must outlive the request that created it, so its context is
// detached from the caller's cancellation.
func (m *Manager) startSession(ctx context.Context, ticker string) *Session {
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	fetcher := feed.NewFetcher(m.source, ticker, m.cfg.PollInterval, m.logger)
	history := feed.NewHistory(m.cfg.HistoryWindow, m.cfg.MaxPoints)

	sess := &Session{
		ID:       uuid.NewString(),
		Ticker:   ticker,
		Fetcher:  fetcher,
		History:  history,
		cancel:   cancel,
		lastUsed: time.Now(),
	}

	// Feed every committed snapshot into the rolling history.
	states, unsubscribe := fetcher.Subscribe()
	go func() {
		defer unsubscribe()
		for st := range states {
			if st.Phase == feed.PhaseReady && !st.Stale && st.Snapshot != nil {
				history.Add(st.Snapshot.Market.YesPrice, st.Snapshot.Market.NoPrice)
			}
		}
	}()

	go history.Run(sessCtx, m.cfg.PurgeInterval)
	fetcher.Start(sessCtx)

	m.logger.Info("overlay session started",
		slog.String("session_id", sess.ID),
		slog.String("ticker", ticker),
	)
	return sess
}

// Run reaps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-t.C:
			m.reap()
		}
	}
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) reap() {
	cutoff := time.Now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var reaped []*Session
	for ticker, sess := range m.sessions {
		refs, lastUsed := sess.idleSince()
		if refs == 0 && lastUsed.Before(cutoff) {
			delete(m.sessions, ticker)
			reaped = append(reaped, sess)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, sess := range reaped {
		sess.Fetcher.Stop()
		sess.cancel()
		m.logger.Info("overlay session reaped",
			slog.String("session_id", sess.ID),
			slog.String("ticker", sess.Ticker),
		)
	}
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Fetcher.Stop()
		sess.cancel()
	}
}

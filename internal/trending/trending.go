// Package trending assembles the curated "trending markets" feed from two
// sources: the busiest open markets on the exchange, and a configured list of
// featured events. Results are merged, deduplicated, and ranked by volume.
package trending

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/platform/kalshi"
)

const (
	openMarketsLimit = 50
	eventMarketLimit = 5
	resultLimit      = 12
	maxTitleLen      = 100
)

// DefaultFeaturedEvents is the curated fallback used when config supplies no
// featured event tickers.
var DefaultFeaturedEvents = []string{
	"KXELONMARS-99",
	"KXNEWPOPE-70",
	"KXCOLONIZEMARS-50",
	"KXWARMING-50",
	"KXMARSVRAIL-50",
	"KXPERSONPRESMAM-45",
}

// Client is the slice of the Kalshi API the trending feed needs.
type Client interface {
	GetMarkets(ctx context.Context, params kalshi.MarketsParams) ([]kalshi.Market, string, error)
	GetEvent(ctx context.Context, eventTicker string) (kalshi.EventResponse, error)
}

// Service builds trending snapshots on demand. It holds no state between
// calls; callers are expected to cache responses.
type Service struct {
	client         Client
	featuredEvents []string
	logger         *slog.Logger
}

func NewService(client Client, featuredEvents []string, logger *slog.Logger) *Service {
	if len(featuredEvents) == 0 {
		featuredEvents = DefaultFeaturedEvents
	}
	return &Service{
		client:         client,
		featuredEvents: featuredEvents,
		logger:         logger.With(slog.String("component", "trending")),
	}
}

// Trending returns up to twelve ranked markets. Each source degrades
// independently: a failed exchange scan or featured event is logged and
// skipped, so a partial result is still served.
func (s *Service) Trending(ctx context.Context) []domain.MarketSnapshot {
	collected := s.openMarkets(ctx)
	collected = append(collected, s.featuredMarkets(ctx)...)

	ranked := Rank(Dedupe(collected))
	if len(ranked) > resultLimit {
		ranked = ranked[:resultLimit]
	}
	return ranked
}

// openMarkets scans the busiest open markets and keeps the presentable ones.
func (s *Service) openMarkets(ctx context.Context) []domain.MarketSnapshot {
	markets, _, err := s.client.GetMarkets(ctx, kalshi.MarketsParams{
		Limit:  openMarketsLimit,
		Status: "open",
	})
	if err != nil {
		s.logger.Warn("open market scan failed", slog.String("error", err.Error()))
		return nil
	}

	var kept []domain.MarketSnapshot
	for _, m := range markets {
		snap := kalshi.NormalizeMarket(m)
		if Presentable(snap) {
			kept = append(kept, snap)
		}
	}
	return kept
}

// featuredMarkets fetches the configured featured events concurrently and
// takes a handful of markets from each. Individual event failures are
// tolerated.
func (s *Service) featuredMarkets(ctx context.Context) []domain.MarketSnapshot {
	results := make([][]domain.MarketSnapshot, len(s.featuredEvents))

	g, gctx := errgroup.WithContext(ctx)
	for i, eventTicker := range s.featuredEvents {
		g.Go(func() error {
			markets, err := s.eventMarkets(gctx, eventTicker)
			if err != nil {
				s.logger.Warn("featured event fetch failed",
					slog.String("event_ticker", eventTicker),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = markets
			return nil
		})
	}
	g.Wait()

	var merged []domain.MarketSnapshot
	for _, markets := range results {
		merged = append(merged, markets...)
	}
	return merged
}

func (s *Service) eventMarkets(ctx context.Context, eventTicker string) ([]domain.MarketSnapshot, error) {
	resp, err := s.client.GetEvent(ctx, eventTicker)
	if err != nil {
		return nil, err
	}

	raw, _, err := s.client.GetMarkets(ctx, kalshi.MarketsParams{
		EventTicker: eventTicker,
		Limit:       eventMarketLimit,
	})
	if err != nil {
		return nil, err
	}

	markets := make([]domain.MarketSnapshot, 0, len(raw))
	for _, m := range raw {
		snap := kalshi.NormalizeMarket(m)
		// Some event sub-markets carry no title of their own.
		if snap.Title == "" {
			snap.Title = resp.Event.Title
		}
		if snap.Title == "" {
			snap.Title = snap.Ticker
		}
		markets = append(markets, snap)
	}
	return markets, nil
}

// Presentable reports whether a market is worth showing on the trending
// board. Sports multi-game parlays and markets with concatenated or very
// long titles are excluded, as is anything not currently open.
func Presentable(m domain.MarketSnapshot) bool {
	if strings.Contains(m.Ticker, "MULTIGAME") {
		return false
	}
	if strings.Contains(m.Title, ",yes ") || strings.Contains(m.Title, ",no ") {
		return false
	}
	return m.Status == domain.MarketStatusOpen && len(m.Title) < maxTitleLen
}

// Dedupe removes repeated tickers, keeping the first occurrence so the open
// market scan wins over featured event duplicates.
func Dedupe(markets []domain.MarketSnapshot) []domain.MarketSnapshot {
	seen := make(map[string]struct{}, len(markets))
	out := markets[:0:0]
	for _, m := range markets {
		if _, ok := seen[m.Ticker]; ok {
			continue
		}
		seen[m.Ticker] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Rank sorts by volume descending, breaking ties with the shorter title.
func Rank(markets []domain.MarketSnapshot) []domain.MarketSnapshot {
	sort.SliceStable(markets, func(i, j int) bool {
		if markets[i].Volume != markets[j].Volume {
			return markets[i].Volume > markets[j].Volume
		}
		return len(markets[i].Title) < len(markets[j].Title)
	})
	return markets
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/metrics"
	"github.com/oddsboard/oddsboard/internal/platform/kalshi"
)

// Cache TTLs per proxied resource. Prices churn fast; the series list is
// effectively static.
const (
	marketTTL    = 3 * time.Second
	orderbookTTL = 3 * time.Second
	tradesTTL    = 10 * time.Second
	eventTTL     = 10 * time.Second
	seriesTTL    = time.Hour
)

// tradesLimit bounds the trade page fetched for last-trade display.
const tradesLimit = 10

// MarketSource defines the slice of the Kalshi client the proxy endpoints
// require. It is declared locally so the handler package does not depend on
// the concrete client beyond its raw types.
type MarketSource interface {
	GetMarket(ctx context.Context, ticker string) (kalshi.Market, error)
	GetOrderbook(ctx context.Context, ticker string) (kalshi.Orderbook, error)
	GetTrades(ctx context.Context, ticker string, limit int) ([]kalshi.Trade, error)
	GetEvent(ctx context.Context, eventTicker string) (kalshi.EventResponse, error)
	GetSeriesList(ctx context.Context) ([]kalshi.Series, error)
}

// ProxyHandler serves the normalized read-through proxy over the Kalshi
// market-data API. Every endpoint is cacheable and side-effect free.
type ProxyHandler struct {
	source MarketSource
	cache  domain.ResponseCache
	logger *slog.Logger
}

// NewProxyHandler creates a ProxyHandler with the given source and cache.
func NewProxyHandler(source MarketSource, cache domain.ResponseCache, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		source: source,
		cache:  cache,
		logger: logHandler(logger, "kalshi_proxy"),
	}
}

// Market returns the normalized market for a ticker.
// GET /api/kalshi/market/{ticker}
func (h *ProxyHandler) Market(w http.ResponseWriter, r *http.Request) {
	ticker := pathParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker", CodeInvalidInput)
		return
	}

	h.respond(w, r, "market:"+ticker, marketTTL, "s-maxage=3, stale-while-revalidate=5",
		"failed to fetch market", func(ctx context.Context) (any, error) {
			m, err := h.source.GetMarket(ctx, ticker)
			if err != nil {
				return nil, err
			}
			return map[string]any{"market": kalshi.NormalizeMarket(m)}, nil
		})
}

// Orderbook returns the derived orderbook aggregate for a ticker.
// GET /api/kalshi/orderbook/{ticker}
func (h *ProxyHandler) Orderbook(w http.ResponseWriter, r *http.Request) {
	ticker := pathParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker", CodeInvalidInput)
		return
	}

	h.respond(w, r, "orderbook:"+ticker, orderbookTTL, "s-maxage=3, stale-while-revalidate=5",
		"failed to fetch orderbook", func(ctx context.Context) (any, error) {
			ob, err := h.source.GetOrderbook(ctx, ticker)
			if err != nil {
				return nil, err
			}
			return map[string]any{"orderbook": kalshi.NormalizeOrderbook(ob)}, nil
		})
}

// Trades returns the most recent trade for a ticker, or null when the market
// has not traded.
// GET /api/kalshi/trades/{ticker}
func (h *ProxyHandler) Trades(w http.ResponseWriter, r *http.Request) {
	ticker := pathParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker", CodeInvalidInput)
		return
	}

	h.respond(w, r, "trades:"+ticker, tradesTTL, "s-maxage=10, stale-while-revalidate=30",
		"failed to fetch trades", func(ctx context.Context) (any, error) {
			trades, err := h.source.GetTrades(ctx, ticker, tradesLimit)
			if err != nil {
				return nil, err
			}
			return map[string]any{"lastTrade": kalshi.NormalizeTrade(trades)}, nil
		})
}

// Event returns an event with all of its normalized markets.
// GET /api/kalshi/event/{eventTicker}
func (h *ProxyHandler) Event(w http.ResponseWriter, r *http.Request) {
	eventTicker := pathParam(r, "eventTicker")
	if eventTicker == "" {
		writeError(w, http.StatusBadRequest, "missing event ticker", CodeInvalidInput)
		return
	}

	h.respond(w, r, "event:"+eventTicker, eventTTL, "s-maxage=10, stale-while-revalidate=30",
		"failed to fetch event", func(ctx context.Context) (any, error) {
			resp, err := h.source.GetEvent(ctx, eventTicker)
			if err != nil {
				return nil, err
			}
			return map[string]any{"event": kalshi.NormalizeEvent(resp)}, nil
		})
}

// SeriesList returns the full series list with display names.
// GET /api/kalshi/series-list
func (h *ProxyHandler) SeriesList(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "series-list", seriesTTL, "s-maxage=3600, stale-while-revalidate=600",
		"failed to fetch series list", func(ctx context.Context) (any, error) {
			series, err := h.source.GetSeriesList(ctx)
			if err != nil {
				return nil, err
			}
			infos := make([]domain.SeriesInfo, 0, len(series))
			for _, s := range series {
				infos = append(infos, kalshi.NormalizeSeries(s))
			}
			return map[string]any{"series": infos}, nil
		})
}

// respond serves from the response cache when possible, otherwise fetches,
// caches, and writes. Cache failures are logged and bypassed; the upstream
// call is the fallback.
func (h *ProxyHandler) respond(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration,
	cacheControl, genericMsg string, fetch func(ctx context.Context) (any, error)) {

	w.Header().Set("Cache-Control", cacheControl)

	if body, err := h.cache.Get(r.Context(), key); err == nil {
		metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}
	metrics.CacheHitsTotal.WithLabelValues("miss").Inc()

	v, err := fetch(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "proxy fetch failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, genericMsg)
		return
	}

	body, err := marshalCacheable(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, genericMsg, CodeAPIError)
		return
	}
	if err := h.cache.Set(r.Context(), key, body, ttl); err != nil {
		h.logger.WarnContext(r.Context(), "response cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/trending"
)

const trendingTTL = time.Minute

// TrendingService builds the curated trending market list.
type TrendingService interface {
	Trending(ctx context.Context) []domain.MarketSnapshot
}

// TrendingHandler serves the trending markets endpoint.
type TrendingHandler struct {
	svc    TrendingService
	cache  domain.ResponseCache
	logger *slog.Logger
}

// NewTrendingHandler creates a TrendingHandler.
func NewTrendingHandler(svc TrendingService, cache domain.ResponseCache, logger *slog.Logger) *TrendingHandler {
	return &TrendingHandler{
		svc:    svc,
		cache:  cache,
		logger: logHandler(logger, "trending"),
	}
}

// Trending returns the ranked trending market list.
// GET /api/kalshi/trending
func (h *TrendingHandler) Trending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "s-maxage=60, stale-while-revalidate=120")

	if body, err := h.cache.Get(r.Context(), "trending"); err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	markets := h.svc.Trending(r.Context())
	if markets == nil {
		markets = []domain.MarketSnapshot{}
	}

	body, err := marshalCacheable(map[string]any{"markets": markets})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch trending markets", CodeAPIError)
		return
	}
	if err := h.cache.Set(r.Context(), "trending", body, trendingTTL); err != nil {
		h.logger.WarnContext(r.Context(), "response cache store failed",
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

var _ TrendingService = (*trending.Service)(nil)

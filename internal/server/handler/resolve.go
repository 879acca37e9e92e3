package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/platform/kalshi"
	"github.com/oddsboard/oddsboard/internal/resolve"
)

// ResolveHandler turns a pasted Kalshi URL or raw ticker into the market or
// event it names.
type ResolveHandler struct {
	source MarketSource
	logger *slog.Logger
}

// NewResolveHandler creates a ResolveHandler.
func NewResolveHandler(source MarketSource, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		source: source,
		logger: logHandler(logger, "resolve"),
	}
}

// resolveMarketResult is returned when the input names a single market,
// including the single-market-event collapse.
type resolveMarketResult struct {
	Type   string                `json:"type"` // "market"
	Market domain.MarketSnapshot `json:"market"`
}

// resolveEventResult is returned when the input names a multi-market event.
type resolveEventResult struct {
	Type  string               `json:"type"` // "event"
	Event domain.EventSnapshot `json:"event"`
}

// Resolve parses the url query parameter and looks the value up, trying it
// as a market ticker first and falling back to an event ticker. An event
// containing exactly one market resolves as that market.
// GET /api/resolve?url=...
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter", CodeInvalidURL)
		return
	}

	parsed := resolve.Parse(raw)
	if parsed.Type == resolve.TypeUnknown {
		writeError(w, http.StatusBadRequest, "could not parse Kalshi URL", CodeInvalidURL)
		return
	}

	w.Header().Set("Cache-Control", "s-maxage=10, stale-while-revalidate=30")

	if parsed.Type == resolve.TypeTicker {
		m, err := h.source.GetMarket(r.Context(), parsed.Value)
		if err == nil {
			writeJSON(w, http.StatusOK, resolveMarketResult{Type: "market", Market: kalshi.NormalizeMarket(m)})
			return
		}
		// A value that looks like a market ticker but is not one may still
		// be an event ticker; fall through to the event lookup.
		h.logger.DebugContext(r.Context(), "market lookup failed, trying event",
			slog.String("value", parsed.Value),
			slog.String("error", err.Error()),
		)
	}

	resp, err := h.source.GetEvent(r.Context(), parsed.Value)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market or event not found", CodeNotFound)
			return
		}
		writeDomainError(w, err, "failed to resolve URL")
		return
	}

	event := kalshi.NormalizeEvent(resp)
	if len(event.Markets) == 1 {
		writeJSON(w, http.StatusOK, resolveMarketResult{Type: "market", Market: event.Markets[0]})
		return
	}
	writeJSON(w, http.StatusOK, resolveEventResult{Type: "event", Event: event})
}

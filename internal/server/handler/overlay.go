package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/overlay"
)

// OverlayHandler serves the embeddable widget: the HTML page, the refreshed
// fragment, the JSON view state, and the embed-URL builder.
type OverlayHandler struct {
	manager  *overlay.Manager
	renderer *overlay.Renderer
	baseURL  string
	logger   *slog.Logger
}

// NewOverlayHandler creates an OverlayHandler. baseURL is the public root
// used for generated embed URLs (scheme://host[:port], no trailing slash).
func NewOverlayHandler(manager *overlay.Manager, renderer *overlay.Renderer, baseURL string, logger *slog.Logger) *OverlayHandler {
	return &OverlayHandler{
		manager:  manager,
		renderer: renderer,
		baseURL:  baseURL,
		logger:   logHandler(logger, "overlay"),
	}
}

// Page serves the full embeddable overlay document.
// GET /overlay?ticker=...&preset=...&theme=...
func (h *OverlayHandler) Page(w http.ResponseWriter, r *http.Request) {
	cfg := domain.OverlayConfigFromQuery(r.URL.Query())
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidInput)
		return
	}

	sess, release := h.manager.Acquire(r.Context(), cfg.Ticker)
	defer release()

	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, cfg, sess.View()); err != nil {
		h.logger.ErrorContext(r.Context(), "page render failed",
			slog.String("ticker", cfg.Ticker),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to render overlay", CodeAPIError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// Fragment serves the widget markup alone, for in-place refresh.
// GET /overlay/fragment?ticker=...&preset=...&theme=...
func (h *OverlayHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	cfg := domain.OverlayConfigFromQuery(r.URL.Query())
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidInput)
		return
	}

	sess, release := h.manager.Acquire(r.Context(), cfg.Ticker)
	defer release()

	var buf bytes.Buffer
	if err := h.renderer.Widget(&buf, cfg, sess.View()); err != nil {
		h.logger.ErrorContext(r.Context(), "fragment render failed",
			slog.String("ticker", cfg.Ticker),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to render overlay", CodeAPIError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// State returns the current view state for a ticker as JSON.
// GET /api/overlay/{ticker}/state
func (h *OverlayHandler) State(w http.ResponseWriter, r *http.Request) {
	ticker := pathParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker", CodeInvalidInput)
		return
	}

	sess, release := h.manager.Acquire(r.Context(), ticker)
	defer release()

	writeJSON(w, http.StatusOK, sess.View())
}

// embedURLResponse wraps the generated embed URL and a ready-to-paste iframe
// snippet.
type embedURLResponse struct {
	URL    string               `json:"url"`
	IFrame string               `json:"iframe"`
	Config domain.OverlayConfig `json:"config"`
}

// presetSizes are the recommended iframe dimensions per preset.
var presetSizes = map[domain.OverlayPreset][2]int{
	domain.PresetBigCard:       {400, 300},
	domain.PresetCompactTicker: {480, 80},
	domain.PresetSidePanel:     {320, 480},
}

// EmbedURL builds the embed URL for a validated overlay config.
// GET /api/embed-url?ticker=...&preset=...&theme=...
func (h *OverlayHandler) EmbedURL(w http.ResponseWriter, r *http.Request) {
	cfg := domain.OverlayConfigFromQuery(r.URL.Query())
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidInput)
		return
	}

	url := cfg.OverlayURL(h.baseURL)
	size := presetSizes[cfg.Preset]
	iframe := fmt.Sprintf(
		`<iframe src=%q width="%d" height="%d" frameborder="0" scrolling="no"></iframe>`,
		url, size[0], size[1],
	)

	writeJSON(w, http.StatusOK, embedURLResponse{
		URL:    url,
		IFrame: iframe,
		Config: cfg,
	})
}

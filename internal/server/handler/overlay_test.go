package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/feed"
	"github.com/oddsboard/oddsboard/internal/overlay"
)

// blockingSource never completes a poll, so sessions stay in their loading
// state for the whole test.
type blockingSource struct{}

func (blockingSource) Market(ctx context.Context, _ string) (domain.MarketSnapshot, error) {
	<-ctx.Done()
	return domain.MarketSnapshot{}, ctx.Err()
}

func (blockingSource) Orderbook(context.Context, string) (*domain.OrderbookSnapshot, error) {
	return nil, nil
}

func (blockingSource) LastTrade(context.Context, string) (*domain.TradeSnapshot, error) {
	return nil, nil
}

func newOverlayHandler(t *testing.T) *OverlayHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := overlay.NewManager(blockingSource{}, overlay.ManagerConfig{
		PollInterval: time.Hour,
		IdleTTL:      time.Minute,
	}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)
	t.Cleanup(cancel)
	renderer, err := overlay.NewRenderer()
	require.NoError(t, err)
	return NewOverlayHandler(manager, renderer, "https://odds.example.com", logger)
}

func TestOverlayPage_RejectsMissingTicker(t *testing.T) {
	h := newOverlayHandler(t)

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/overlay", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeInvalidInput)
}

func TestOverlayPage_RendersDocument(t *testing.T) {
	h := newOverlayHandler(t)

	rec := httptest.NewRecorder()
	h.Page(rec, httptest.NewRequest(http.MethodGet, "/overlay?ticker=KXTEST-26-A", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<!doctype html>")
	assert.Contains(t, rec.Body.String(), "oddsboard")
}

func TestOverlayFragment_RendersWidget(t *testing.T) {
	h := newOverlayHandler(t)

	rec := httptest.NewRecorder()
	h.Fragment(rec, httptest.NewRequest(http.MethodGet, "/overlay/fragment?ticker=KXTEST-26-A", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!doctype html>")
	// No poll has committed, so the widget is the loading skeleton.
	assert.Contains(t, rec.Body.String(), "ob-skeleton")
}

func TestOverlayState_ReturnsViewJSON(t *testing.T) {
	h := newOverlayHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/overlay/KXTEST-26-A/state", nil)
	req.SetPathValue("ticker", "KXTEST-26-A")
	rec := httptest.NewRecorder()
	h.State(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view overlay.ViewState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, feed.PhaseLoading, view.Phase)
	assert.Nil(t, view.Snapshot)
}

func TestEmbedURL_BuildsURLAndIframe(t *testing.T) {
	h := newOverlayHandler(t)

	rec := httptest.NewRecorder()
	h.EmbedURL(rec, httptest.NewRequest(http.MethodGet,
		"/api/embed-url?ticker=KXTEST-26-A&preset=side-panel&theme=light", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		URL    string               `json:"url"`
		IFrame string               `json:"iframe"`
		Config domain.OverlayConfig `json:"config"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Contains(t, body.URL, "https://odds.example.com/overlay?")
	assert.Contains(t, body.URL, "ticker=KXTEST-26-A")
	assert.Contains(t, body.URL, "preset=side-panel")
	assert.Contains(t, body.IFrame, "<iframe src=")
	assert.Contains(t, body.IFrame, `width="320"`)
	assert.Equal(t, domain.PresetSidePanel, body.Config.Preset)
}

func TestEmbedURL_RequiresTicker(t *testing.T) {
	h := newOverlayHandler(t)

	rec := httptest.NewRecorder()
	h.EmbedURL(rec, httptest.NewRequest(http.MethodGet, "/api/embed-url?preset=big-card", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeInvalidInput)
}

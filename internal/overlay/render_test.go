package overlay

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/feed"
)

func renderWidget(t *testing.T, cfg domain.OverlayConfig, view ViewState) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Widget(&buf, cfg, view))
	return buf.String()
}

func defaultConfig() domain.OverlayConfig {
	cfg := domain.OverlayConfigFromQuery(nil)
	cfg.Ticker = "KXTEST-26-A"
	return cfg
}

func readyView() ViewState {
	return ViewState{
		Phase:    feed.PhaseReady,
		Snapshot: snapshotFixture(domain.MarketStatusOpen, ""),
	}
}

func TestRenderer_LoadingState(t *testing.T) {
	html := renderWidget(t, defaultConfig(), ViewState{Phase: feed.PhaseLoading})
	assert.Contains(t, html, "ob-loading")
	assert.Contains(t, html, "ob-skeleton")
	assert.NotContains(t, html, "Test market")
}

func TestRenderer_ErrorState(t *testing.T) {
	html := renderWidget(t, defaultConfig(), ViewState{Phase: feed.PhaseError, Error: "market not found"})
	assert.Contains(t, html, "ob-error")
	assert.Contains(t, html, "market not found")
}

func TestRenderer_ErrorStateFallbackText(t *testing.T) {
	html := renderWidget(t, defaultConfig(), ViewState{Phase: feed.PhaseError})
	assert.Contains(t, html, "Unable to load market")
}

func TestRenderer_PresetDispatch(t *testing.T) {
	tests := []struct {
		preset domain.OverlayPreset
		marker string
	}{
		{domain.PresetBigCard, "ob-big-card"},
		{domain.PresetCompactTicker, "ob-compact"},
		{domain.PresetSidePanel, "ob-side-panel"},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Preset = tt.preset
			html := renderWidget(t, cfg, readyView())
			assert.Contains(t, html, tt.marker)
			assert.Contains(t, html, "Test market")
			assert.Contains(t, html, "61")
		})
	}
}

func TestRenderer_StaleBadge(t *testing.T) {
	view := readyView()
	html := renderWidget(t, defaultConfig(), view)
	assert.NotContains(t, html, "Delayed")

	view.Stale = true
	html = renderWidget(t, defaultConfig(), view)
	assert.Contains(t, html, "Delayed")
	// Stale still renders real prices; it never falls back to the error view.
	assert.Contains(t, html, "Test market")
	assert.NotContains(t, html, "ob-error")
}

func TestRenderer_SettledBadge(t *testing.T) {
	view := ViewState{
		Phase:    feed.PhaseReady,
		Snapshot: snapshotFixture(domain.MarketStatusSettled, domain.ResultYes),
	}
	html := renderWidget(t, defaultConfig(), view)
	assert.Contains(t, html, "Settled")
	assert.Contains(t, html, "yes")
}

func TestRenderer_TradeButtonToggle(t *testing.T) {
	cfg := defaultConfig()
	html := renderWidget(t, cfg, readyView())
	assert.NotContains(t, html, "Trade on Kalshi")

	cfg.ShowButton = true
	html = renderWidget(t, cfg, readyView())
	assert.Contains(t, html, "Trade on Kalshi")
	assert.Contains(t, html, "kalshi.com")
	assert.Contains(t, html, "#"+cfg.Accent)
}

func TestRenderer_LastTradeRow(t *testing.T) {
	view := readyView()
	view.Snapshot.LastTrade = &domain.TradeSnapshot{
		Ticker:    "KXTEST-26-A",
		YesPrice:  62,
		NoPrice:   38,
		Count:     25,
		TakerSide: "no",
	}

	cfg := defaultConfig()
	require.True(t, cfg.ShowTrade)
	html := renderWidget(t, cfg, view)
	assert.Contains(t, html, "Last trade")
	assert.Contains(t, html, "38")

	cfg.ShowTrade = false
	html = renderWidget(t, cfg, view)
	assert.NotContains(t, html, "Last trade")
}

func TestRenderer_Deltas(t *testing.T) {
	up, down := 7, -3
	view := readyView()
	view.YesDelta, view.NoDelta = &up, &down

	html := renderWidget(t, defaultConfig(), view)
	assert.Contains(t, html, "+7")
	assert.Contains(t, html, "ob-delta-up")
	assert.Contains(t, html, "-3")
	assert.Contains(t, html, "ob-delta-down")
}

func TestRenderer_Page(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, defaultConfig(), readyView()))
	html := buf.String()

	assert.Contains(t, html, "<!doctype html>")
	assert.Contains(t, html, "oddsboard")
	assert.Contains(t, html, "/overlay/fragment")
	assert.Contains(t, html, "WebSocket")
	assert.Contains(t, html, "Test market")
}

func TestFmtDelta(t *testing.T) {
	assert.Empty(t, fmtDelta(nil))

	pos, neg, zero := 4, -4, 0
	assert.Equal(t, "+4", fmtDelta(&pos))
	assert.Equal(t, "-4", fmtDelta(&neg))
	assert.Equal(t, "0", fmtDelta(&zero))

	assert.Equal(t, "flat", deltaDir(nil))
	assert.Equal(t, "flat", deltaDir(&zero))
	assert.Equal(t, "up", deltaDir(&pos))
	assert.Equal(t, "down", deltaDir(&neg))
}

package domain

import (
	"fmt"
	"net/url"
	"regexp"
)

// OverlayPreset selects one of the three widget layouts.
type OverlayPreset string

const (
	PresetBigCard       OverlayPreset = "big-card"
	PresetCompactTicker OverlayPreset = "compact-ticker"
	PresetSidePanel     OverlayPreset = "side-panel"
)

// OverlayTheme selects the widget background treatment.
type OverlayTheme string

const (
	ThemeDark        OverlayTheme = "dark"
	ThemeLight       OverlayTheme = "light"
	ThemeTransparent OverlayTheme = "transparent"
)

// DefaultAccent is the Kalshi brand green, hex without the leading "#".
const DefaultAccent = "09C285"

var accentPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// OverlayConfig is the immutable description of one overlay embed, built from
// user input or query parameters.
type OverlayConfig struct {
	Ticker     string        `json:"ticker"`
	Preset     OverlayPreset `json:"preset"`
	Theme      OverlayTheme  `json:"theme"`
	ShowTrade  bool          `json:"showTrade"`
	ShowButton bool          `json:"showButton"`
	Accent     string        `json:"accent"` // 6 hex digits, no "#"
}

// OverlayConfigFromQuery builds an OverlayConfig from embed query parameters,
// applying documented defaults for everything but the ticker. Unrecognized
// preset/theme values and malformed accents fall back to defaults rather than
// erroring, so a hand-edited embed URL still renders.
func OverlayConfigFromQuery(q url.Values) OverlayConfig {
	cfg := OverlayConfig{
		Ticker:     q.Get("ticker"),
		Preset:     PresetBigCard,
		Theme:      ThemeTransparent,
		ShowTrade:  q.Get("showTrade") != "false",
		ShowButton: q.Get("showButton") == "true",
		Accent:     DefaultAccent,
	}

	switch OverlayPreset(q.Get("preset")) {
	case PresetCompactTicker:
		cfg.Preset = PresetCompactTicker
	case PresetSidePanel:
		cfg.Preset = PresetSidePanel
	}

	switch OverlayTheme(q.Get("theme")) {
	case ThemeDark:
		cfg.Theme = ThemeDark
	case ThemeLight:
		cfg.Theme = ThemeLight
	}

	if accent := q.Get("accent"); accentPattern.MatchString(accent) {
		cfg.Accent = accent
	}

	return cfg
}

// Validate checks that the config describes a renderable overlay.
func (c OverlayConfig) Validate() error {
	if c.Ticker == "" {
		return fmt.Errorf("overlay: %w: ticker is required", ErrInvalidInput)
	}
	switch c.Preset {
	case PresetBigCard, PresetCompactTicker, PresetSidePanel:
	default:
		return fmt.Errorf("overlay: %w: unknown preset %q", ErrInvalidInput, c.Preset)
	}
	switch c.Theme {
	case ThemeDark, ThemeLight, ThemeTransparent:
	default:
		return fmt.Errorf("overlay: %w: unknown theme %q", ErrInvalidInput, c.Theme)
	}
	if !accentPattern.MatchString(c.Accent) {
		return fmt.Errorf("overlay: %w: accent must be 6 hex digits", ErrInvalidInput)
	}
	return nil
}

// Query encodes the config back into embed query parameters. Only values
// that differ from the defaults are included, keeping generated URLs short.
func (c OverlayConfig) Query() url.Values {
	q := url.Values{}
	q.Set("ticker", c.Ticker)
	if c.Preset != PresetBigCard {
		q.Set("preset", string(c.Preset))
	}
	if c.Theme != ThemeTransparent {
		q.Set("theme", string(c.Theme))
	}
	if !c.ShowTrade {
		q.Set("showTrade", "false")
	}
	if c.ShowButton {
		q.Set("showButton", "true")
	}
	if c.Accent != DefaultAccent {
		q.Set("accent", c.Accent)
	}
	return q
}

// OverlayURL returns the absolute embed URL for this config under baseURL
// (scheme://host[:port], no trailing slash).
func (c OverlayConfig) OverlayURL(baseURL string) string {
	return baseURL + "/overlay?" + c.Query().Encode()
}

// KalshiURL returns the public Kalshi market page for a ticker.
func KalshiURL(ticker string) string {
	return "https://kalshi.com/markets/" + url.PathEscape(ticker)
}

package overlay

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/oddsboard/oddsboard/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer turns a view state plus overlay config into widget HTML. The
// renderer choice never affects data or polling; it is a pure presentation
// branch on the configured preset.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded widget templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("overlay").Funcs(template.FuncMap{
		"fmtDelta": fmtDelta,
		"deltaDir": deltaDir,
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("overlay: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// renderModel is the data handed to every widget template. Colors are
// precomputed here so the templates stay purely structural.
type renderModel struct {
	Cfg  domain.OverlayConfig
	View ViewState

	Accent    string // css color, e.g. "#09C285"
	BG        string
	FG        string
	Muted     string
	KalshiURL string
}

// Widget writes the HTML for the widget in its current state: a loading
// skeleton before the first snapshot, inline error text if the first load
// failed, otherwise the configured layout (with a delayed badge when stale).
func (r *Renderer) Widget(w io.Writer, cfg domain.OverlayConfig, view ViewState) error {
	return r.tmpl.ExecuteTemplate(w, "widget", newRenderModel(cfg, view))
}

// Page writes the full embeddable HTML document wrapping the widget,
// including the script that keeps it live.
func (r *Renderer) Page(w io.Writer, cfg domain.OverlayConfig, view ViewState) error {
	return r.tmpl.ExecuteTemplate(w, "page", newRenderModel(cfg, view))
}

func newRenderModel(cfg domain.OverlayConfig, view ViewState) renderModel {
	m := renderModel{
		Cfg:    cfg,
		View:   view,
		Accent: "#" + cfg.Accent,
	}

	switch cfg.Theme {
	case domain.ThemeLight:
		m.BG, m.FG, m.Muted = "#ffffff", "#18181b", "#71717a"
	case domain.ThemeDark:
		m.BG, m.FG, m.Muted = "#09090b", "#fafafa", "#a1a1aa"
	default: // transparent
		m.BG, m.FG, m.Muted = "transparent", "#fafafa", "#a1a1aa"
	}

	if view.Snapshot != nil {
		m.KalshiURL = domain.KalshiURL(view.Snapshot.Market.Ticker)
	} else {
		m.KalshiURL = domain.KalshiURL(cfg.Ticker)
	}
	return m
}

// fmtDelta renders a nullable delta as a signed cent amount. Nil means no
// data, which renders as nothing at all rather than as zero.
func fmtDelta(d *int) string {
	if d == nil {
		return ""
	}
	if *d > 0 {
		return fmt.Sprintf("+%d", *d)
	}
	return fmt.Sprintf("%d", *d)
}

func deltaDir(d *int) string {
	switch {
	case d == nil || *d == 0:
		return "flat"
	case *d > 0:
		return "up"
	default:
		return "down"
	}
}

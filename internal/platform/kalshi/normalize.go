package kalshi

import "github.com/oddsboard/oddsboard/internal/domain"

// NormalizeMarket maps a raw Kalshi market record into the normalized
// snapshot shape. The yes price prefers the last traded price and falls back
// to the best yes bid; the no price is always its complement.
func NormalizeMarket(m Market) domain.MarketSnapshot {
	yesPrice := m.LastPrice
	if yesPrice == 0 {
		yesPrice = m.YesBid
	}

	return domain.MarketSnapshot{
		Ticker:       m.Ticker,
		Title:        m.Title,
		Subtitle:     m.Subtitle,
		YesPrice:     yesPrice,
		NoPrice:      100 - yesPrice,
		Volume:       m.Volume,
		OpenInterest: m.OpenInterest,
		Status:       normalizeStatus(m.Status, m.Result),
		Result:       domain.MarketResult(m.Result),
		EventTicker:  m.EventTicker,
		CloseTime:    m.CloseTime,
		Category:     m.Category,
		ImageURL:     m.ImageURL,
	}
}

// normalizeStatus collapses Kalshi's market lifecycle (initialized, inactive,
// active, closed, determined, disputed, amended, finalized) into the three
// states the overlay distinguishes. A market in any late-lifecycle state with
// a yes/no result counts as settled; everything else unrecognized is closed.
func normalizeStatus(status, result string) domain.MarketStatus {
	switch status {
	case "active":
		return domain.MarketStatusOpen
	case "open":
		return domain.MarketStatusOpen
	case "closed":
		return domain.MarketStatusClosed
	case "determined", "settled":
		return domain.MarketStatusSettled
	}
	if result == "yes" || result == "no" {
		return domain.MarketStatusSettled
	}
	return domain.MarketStatusClosed
}

// NormalizeOrderbook derives the aggregate orderbook view. Kalshi returns
// levels sorted ascending by price, so the best bid on each side is the last
// element.
func NormalizeOrderbook(ob Orderbook) domain.OrderbookSnapshot {
	var snap domain.OrderbookSnapshot

	if n := len(ob.Yes); n > 0 {
		best := int(ob.Yes[n-1].Price())
		snap.BestYesBid = &best
	}
	if n := len(ob.No); n > 0 {
		best := int(ob.No[n-1].Price())
		snap.BestNoBid = &best
		ask := 100 - best
		snap.ImpliedYesAsk = &ask
	}
	if snap.ImpliedYesAsk != nil && snap.BestYesBid != nil {
		spread := *snap.ImpliedYesAsk - *snap.BestYesBid
		snap.Spread = &spread
	}

	for _, l := range ob.Yes {
		snap.YesDepth += l.Quantity()
	}
	for _, l := range ob.No {
		snap.NoDepth += l.Quantity()
	}

	return snap
}

// NormalizeTrade returns the most recent trade, or nil when the market has
// not traded. Absence is not an error.
func NormalizeTrade(trades []Trade) *domain.TradeSnapshot {
	if len(trades) == 0 {
		return nil
	}

	t := trades[0]
	return &domain.TradeSnapshot{
		Ticker:      t.Ticker,
		YesPrice:    t.YesPrice,
		NoPrice:     t.NoPrice,
		Count:       t.Count,
		TakerSide:   t.TakerSide,
		CreatedTime: t.CreatedTime,
	}
}

// NormalizeEvent maps an event response with all of its markets.
func NormalizeEvent(resp EventResponse) domain.EventSnapshot {
	markets := make([]domain.MarketSnapshot, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		markets = append(markets, NormalizeMarket(m))
	}
	return domain.EventSnapshot{
		EventTicker: resp.Event.EventTicker,
		Title:       resp.Event.Title,
		Category:    resp.Event.Category,
		Markets:     markets,
	}
}

// seriesDisplayNames maps well-known series tickers to friendlier names than
// the upstream titles.
var seriesDisplayNames = map[string]string{
	"KXHIGHNY":               "High Fed Funds",
	"KXHIGHNQM":              "High Fed Funds",
	"KXINFLATION":            "Inflation",
	"KXGDP":                  "GDP",
	"KXUNEMPLOYMENT":         "Unemployment",
	"KXHOUSING":              "Housing",
	"KXRETAILSALES":          "Retail Sales",
	"KXCONSUMERSENTIMENT":    "Consumer Sentiment",
	"KXGASPRICES":            "Gas Prices",
	"KXOILPRICES":            "Oil Prices",
	"KXELONMARS":             "Space - Musk on Mars",
	"KXNEWPOPE":              "New Pope",
	"KXPERSONPRESMAM":        "Presidential Election",
	"KXPERSONPRESVP":         "Vice Presidential Election",
	"KXPERSONPRESMAB":        "Presidential Election (Before)",
	"KXPERSONPRESSOBAMA":     "Press Secretary",
	"KXPERSONPRESSHARRIS":    "Press Secretary",
	"KXPERSONPRESSJFK":       "Press Secretary",
	"KXPERSONPRESSBIDEN":     "Press Secretary",
	"KXPERSONPRESSPENCE":     "Press Secretary",
	"KXPERSONPRESSRUBIO":     "Press Secretary",
	"KXPERSONPRESSCLINTON":   "Press Secretary",
	"KXPERSONPRESSTRUMP":     "Press Secretary",
	"KXPERSONPRESSMCCONNELL": "Press Secretary",
	"KXPERSONPRESSREAGAN":    "Press Secretary",
	"KXPERSONPRESSBUSH":      "Press Secretary",
	"KXPERSONPRESSCARTER":    "Press Secretary",
	"KXPERSONPRESSHWH":       "Press Secretary",
	"KXPERSONPRESSNIXON":     "Press Secretary",
	"KXPERSONPRESSFORD":      "Press Secretary",
}

// NormalizeSeries maps a series entry, attaching the friendly display name
// when one is known. The title falls back to the ticker when upstream sends
// neither.
func NormalizeSeries(s Series) domain.SeriesInfo {
	title := s.Title
	if title == "" {
		title = s.SeriesTicker
	}

	displayName := title
	if name, ok := seriesDisplayNames[s.SeriesTicker]; ok {
		displayName = name
	}

	return domain.SeriesInfo{
		SeriesTicker: s.SeriesTicker,
		Title:        title,
		DisplayName:  displayName,
		Category:     s.Category,
	}
}

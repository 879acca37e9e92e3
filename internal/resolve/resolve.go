// Package resolve classifies pasted Kalshi URLs and raw tickers.
//
// Kalshi URLs come in several forms:
//
//	https://kalshi.com/markets/kxfedcut                  series page
//	https://kalshi.com/markets/kxfedcut/kxfedcut-26jan   event page
//	https://kalshi.com/markets/KXFEDCUT-26JAN-T0.5       direct market ticker
//	KXFEDCUT-26JAN-T0.5                                  raw ticker
package resolve

import (
	"net/url"
	"regexp"
	"strings"
)

// InputType is the classification of a pasted string.
type InputType string

const (
	TypeTicker  InputType = "ticker"
	TypeEvent   InputType = "event"
	TypeSeries  InputType = "series"
	TypeUnknown InputType = "unknown"
)

// Parsed is the outcome of classifying one input string.
type Parsed struct {
	Type     InputType `json:"type"`
	Value    string    `json:"value"`
	Original string    `json:"original"`
}

var (
	rawTickerPattern = regexp.MustCompile(`(?i)^[A-Z0-9][\w.-]*$`)
	marketsPath      = regexp.MustCompile(`(?i)/markets/(.+)`)
	strikeSuffix     = regexp.MustCompile(`(?i)-(T|F|B|Y|N)\d*\.?\d*$`)
)

// Parse classifies a pasted string as a market ticker, an event ticker, or
// unknown. The ticker-vs-event split is a heuristic; callers verify against
// the API.
func Parse(input string) Parsed {
	trimmed := strings.TrimSpace(input)

	// Raw ticker: no slashes, ticker-shaped.
	if trimmed != "" && !strings.Contains(trimmed, "/") && rawTickerPattern.MatchString(trimmed) {
		value := strings.ToUpper(trimmed)
		return Parsed{Type: classifyTicker(value), Value: value, Original: trimmed}
	}

	urlString := trimmed
	if !strings.HasPrefix(urlString, "http") {
		urlString = "https://" + urlString
	}
	u, err := url.Parse(urlString)
	if err != nil || u.Hostname() == "" {
		return Parsed{Type: TypeUnknown, Original: trimmed}
	}

	if !strings.Contains(u.Hostname(), "kalshi.com") {
		return Parsed{Type: TypeUnknown, Original: trimmed}
	}

	m := marketsPath.FindStringSubmatch(u.Path)
	if m == nil {
		return Parsed{Type: TypeUnknown, Original: trimmed}
	}

	var segments []string
	for _, s := range strings.Split(m[1], "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return Parsed{Type: TypeUnknown, Original: trimmed}
	}

	// With two or more path segments the second one names the event or
	// market; a single segment is itself the ticker or event.
	value := strings.ToUpper(segments[0])
	if len(segments) >= 2 {
		value = strings.ToUpper(segments[1])
	}
	return Parsed{Type: classifyTicker(value), Value: value, Original: trimmed}
}

// classifyTicker guesses whether a ticker names a single market or an event.
// Market tickers carry a strike segment: three or more hyphen-separated parts
// (KXFEDCUT-26JAN-T0.5) or a bracket suffix like -T0.5 / -B2. Two-part
// tickers without a strike are events (KXFEDCUT-26JAN).
func classifyTicker(value string) InputType {
	if strings.Count(value, "-") >= 2 {
		return TypeTicker
	}
	if strikeSuffix.MatchString(value) {
		return TypeTicker
	}
	return TypeEvent
}

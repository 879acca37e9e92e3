package domain

// MarketStatus is the simplified lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusOpen    MarketStatus = "open"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// MarketResult is the settlement outcome of a binary market. Empty until the
// market settles.
type MarketResult string

const (
	ResultNone MarketResult = ""
	ResultYes  MarketResult = "yes"
	ResultNo   MarketResult = "no"
)

// MarketSnapshot is the normalized view of a single Kalshi binary market.
// Snapshots are value objects: rebuilt wholesale on every successful poll and
// never mutated in place.
type MarketSnapshot struct {
	Ticker       string       `json:"ticker"`
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle"`
	YesPrice     int          `json:"yesPrice"` // cents, 0-100
	NoPrice      int          `json:"noPrice"`  // always 100 - YesPrice
	Volume       int64        `json:"volume"`
	OpenInterest int64        `json:"openInterest"`
	Status       MarketStatus `json:"status"`
	Result       MarketResult `json:"result"`
	EventTicker  string       `json:"eventTicker"`
	CloseTime    string       `json:"closeTime"`
	Category     string       `json:"category"`
	ImageURL     string       `json:"imageUrl"`
}

// EventSnapshot groups the normalized markets belonging to one Kalshi event.
type EventSnapshot struct {
	EventTicker string           `json:"eventTicker"`
	Title       string           `json:"title"`
	Category    string           `json:"category"`
	Markets     []MarketSnapshot `json:"markets"`
}

// SeriesInfo is a single entry of the upstream series list with a
// user-friendly display name attached.
type SeriesInfo struct {
	SeriesTicker string `json:"seriesTicker"`
	Title        string `json:"title"`
	DisplayName  string `json:"displayName"`
	Category     string `json:"category"`
}

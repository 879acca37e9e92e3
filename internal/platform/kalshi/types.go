package kalshi

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi REST API.
type Market struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Status       string `json:"status"` // initialized, inactive, active, closed, determined, disputed, amended, finalized
	YesBid       int    `json:"yes_bid"`
	YesAsk       int    `json:"yes_ask"`
	NoBid        int    `json:"no_bid"`
	NoAsk        int    `json:"no_ask"`
	LastPrice    int    `json:"last_price"`
	Volume       int64  `json:"volume"`
	Volume24H    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
	Result       string `json:"result"` // "yes", "no", "" (unsettled)
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
	Category     string `json:"category"`
	ImageURL     string `json:"image_url"`
}

// Event represents an event (a group of related markets).
type Event struct {
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	SubTitle     string `json:"sub_title"`
	Category     string `json:"category"`
	SeriesTicker string `json:"series_ticker"`
}

// EventResponse is the /events/{ticker} payload. The markets array sits at
// the root of the response, not inside the event object.
type EventResponse struct {
	Event   Event    `json:"event"`
	Markets []Market `json:"markets"`
}

// PriceLevel is a [price_cents, quantity] pair. Kalshi encodes orderbook
// levels as two-element JSON arrays sorted ascending by price.
type PriceLevel [2]int64

// Price returns the price component in cents.
func (l PriceLevel) Price() int64 { return l[0] }

// Quantity returns the number of resting contracts at this level.
func (l PriceLevel) Quantity() int64 { return l[1] }

// Orderbook represents the resting buy-side book for both sides of a market.
type Orderbook struct {
	Yes []PriceLevel `json:"yes"`
	No  []PriceLevel `json:"no"`
}

// Trade is a single executed trade.
type Trade struct {
	Ticker      string `json:"ticker"`
	YesPrice    int    `json:"yes_price"`
	NoPrice     int    `json:"no_price"`
	Count       int64  `json:"count"`
	TakerSide   string `json:"taker_side"` // "yes" or "no"
	CreatedTime string `json:"created_time"`
}

// Series is a single entry of the /series list.
type Series struct {
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	Category     string `json:"category"`
}

// ErrorResponse is the Kalshi API error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MarketsParams narrows a /markets list request.
type MarketsParams struct {
	Limit       int
	Status      string // e.g. "open"
	EventTicker string
	Cursor      string
}

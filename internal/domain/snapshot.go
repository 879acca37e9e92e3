package domain

import "time"

// OrderbookSnapshot is a derived aggregate of the resting orderbook for one
// market. It is recomputed fresh on every poll and never merged with prior
// state. Best-bid fields are nil when that side of the book is empty.
type OrderbookSnapshot struct {
	BestYesBid    *int  `json:"bestYesBid"`
	BestNoBid     *int  `json:"bestNoBid"`
	ImpliedYesAsk *int  `json:"impliedYesAsk"` // 100 - BestNoBid
	Spread        *int  `json:"spread"`        // ImpliedYesAsk - BestYesBid
	YesDepth      int64 `json:"yesDepth"`
	NoDepth       int64 `json:"noDepth"`
}

// TradeSnapshot is the most recent trade on a market. Absence of trade data
// is not an error; consumers receive a nil pointer instead.
type TradeSnapshot struct {
	Ticker      string `json:"ticker"`
	YesPrice    int    `json:"yesPrice"`
	NoPrice     int    `json:"noPrice"`
	Count       int64  `json:"count"`
	TakerSide   string `json:"takerSide"` // "yes" or "no"
	CreatedTime string `json:"createdTime"`
}

// CombinedSnapshot is the unit exchanged between the fetcher and everything
// downstream: the market record plus optional orderbook and last-trade
// sub-resources, stamped with the fetch time.
type CombinedSnapshot struct {
	Market    MarketSnapshot     `json:"market"`
	Orderbook *OrderbookSnapshot `json:"orderbook"`
	LastTrade *TradeSnapshot     `json:"lastTrade"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// PricePoint is one observed (yes, no) price pair. Points are appended in
// time order; the history tracker relies on that ordering for prefix purges.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	YesPrice  int       `json:"yesPrice"`
	NoPrice   int       `json:"noPrice"`
}

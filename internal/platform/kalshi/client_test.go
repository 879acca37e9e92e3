package kalshi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsboard/oddsboard/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestGetMarket(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/KXFEDCUT-26JAN-T0.5", r.URL.Path)
		w.Write([]byte(`{"market":{"ticker":"KXFEDCUT-26JAN-T0.5","status":"active","last_price":42,"volume":100}}`))
	})

	m, err := c.GetMarket(context.Background(), "KXFEDCUT-26JAN-T0.5")
	require.NoError(t, err)
	assert.Equal(t, "KXFEDCUT-26JAN-T0.5", m.Ticker)
	assert.Equal(t, 42, m.LastPrice)
	assert.Equal(t, int64(100), m.Volume)
}

func TestGetMarket_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"not_found","message":"market not found"}`))
	})

	_, err := c.GetMarket(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetMarket_RateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetMarket(context.Background(), "T")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGetMarket_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetMarket(context.Background(), "T")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestGetOrderbook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/T/orderbook", r.URL.Path)
		w.Write([]byte(`{"orderbook":{"yes":[[10,5],[20,3]],"no":[[15,4]]}}`))
	})

	ob, err := c.GetOrderbook(context.Background(), "T")
	require.NoError(t, err)
	require.Len(t, ob.Yes, 2)
	assert.Equal(t, int64(20), ob.Yes[1].Price())
	assert.Equal(t, int64(3), ob.Yes[1].Quantity())
}

func TestGetTrades(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "T", r.URL.Query().Get("ticker"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"trades":[{"ticker":"T","yes_price":55,"no_price":45,"count":2,"taker_side":"yes"}]}`))
	})

	trades, err := c.GetTrades(context.Background(), "T", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 55, trades[0].YesPrice)
}

func TestGetMarkets_Params(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		w.Write([]byte(`{"markets":[{"ticker":"A"},{"ticker":"B"}],"cursor":"next"}`))
	})

	markets, cursor, err := c.GetMarkets(context.Background(), MarketsParams{Limit: 50, Status: "open"})
	require.NoError(t, err)
	assert.Len(t, markets, 2)
	assert.Equal(t, "next", cursor)
}

func TestGetEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/KXFEDCUT-26JAN", r.URL.Path)
		w.Write([]byte(`{"event":{"event_ticker":"KXFEDCUT-26JAN","title":"Fed cuts"},"markets":[{"ticker":"KXFEDCUT-26JAN-T0.5"}]}`))
	})

	resp, err := c.GetEvent(context.Background(), "KXFEDCUT-26JAN")
	require.NoError(t, err)
	assert.Equal(t, "KXFEDCUT-26JAN", resp.Event.EventTicker)
	require.Len(t, resp.Markets, 1)
}

package feed

import (
	"context"

	"github.com/oddsboard/oddsboard/internal/domain"
	"github.com/oddsboard/oddsboard/internal/platform/kalshi"
)

// KalshiSource adapts the Kalshi REST client to the Source interface,
// normalizing each resource on the way through.
type KalshiSource struct {
	client *kalshi.Client
}

// NewKalshiSource wraps a Kalshi client.
func NewKalshiSource(client *kalshi.Client) *KalshiSource {
	return &KalshiSource{client: client}
}

func (s *KalshiSource) Market(ctx context.Context, ticker string) (domain.MarketSnapshot, error) {
	m, err := s.client.GetMarket(ctx, ticker)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return kalshi.NormalizeMarket(m), nil
}

func (s *KalshiSource) Orderbook(ctx context.Context, ticker string) (*domain.OrderbookSnapshot, error) {
	ob, err := s.client.GetOrderbook(ctx, ticker)
	if err != nil {
		return nil, err
	}
	snap := kalshi.NormalizeOrderbook(ob)
	return &snap, nil
}

func (s *KalshiSource) LastTrade(ctx context.Context, ticker string) (*domain.TradeSnapshot, error) {
	trades, err := s.client.GetTrades(ctx, ticker, 1)
	if err != nil {
		return nil, err
	}
	return kalshi.NormalizeTrade(trades), nil
}

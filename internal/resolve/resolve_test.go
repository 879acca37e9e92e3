package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantType  InputType
		wantValue string
	}{
		{"market ticker", "KXFEDCUT-26JAN-T0.5", TypeTicker, "KXFEDCUT-26JAN-T0.5"},
		{"event ticker", "KXFEDCUT-26JAN", TypeEvent, "KXFEDCUT-26JAN"},
		{"lowercase raw ticker", "kxfedcut-26jan-t0.5", TypeTicker, "KXFEDCUT-26JAN-T0.5"},
		{"event url", "https://kalshi.com/markets/kxfedcut/kxfedcut-26jan", TypeEvent, "KXFEDCUT-26JAN"},
		{"market url", "https://kalshi.com/markets/KXFEDCUT-26JAN-T0.5", TypeTicker, "KXFEDCUT-26JAN-T0.5"},
		{"url without scheme", "kalshi.com/markets/kxfedcut/kxfedcut-26jan", TypeEvent, "KXFEDCUT-26JAN"},
		{"series-only url", "https://kalshi.com/markets/kxfedcut", TypeEvent, "KXFEDCUT"},
		{"bracket suffix", "KXHIGH-B2", TypeTicker, "KXHIGH-B2"},
		{"plain words", "not a url", TypeUnknown, ""},
		{"wrong host", "https://example.com/markets/KXFEDCUT-26JAN", TypeUnknown, ""},
		{"kalshi non-market path", "https://kalshi.com/about", TypeUnknown, ""},
		{"empty", "", TypeUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantValue, got.Value)
		})
	}
}

func TestParse_KeepsOriginal(t *testing.T) {
	got := Parse("  KXFEDCUT-26JAN  ")
	assert.Equal(t, "KXFEDCUT-26JAN", got.Original)
}

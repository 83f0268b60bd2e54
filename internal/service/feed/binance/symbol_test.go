package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exchangeInfoBody = `{
  "timezone": "UTC",
  "serverTime": 1700000000000,
  "rateLimits": [],
  "exchangeFilters": [],
  "symbols": [
    {"symbol": "ETHUSDT", "status": "TRADING", "baseAsset": "ETH", "quoteAsset": "USDT"},
    {"symbol": "BTCUSDT", "status": "TRADING", "baseAsset": "BTC", "quoteAsset": "USDT"},
    {"symbol": "ETHBTC", "status": "TRADING", "baseAsset": "ETH", "quoteAsset": "BTC"},
    {"symbol": "LUNAUSDT", "status": "BREAK", "baseAsset": "LUNA", "quoteAsset": "USDT"}
  ]
}`

func initTestClient(t *testing.T, handler http.HandlerFunc) *binance.Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cli := binance.NewClient("", "")
	cli.BaseURL = srv.URL
	return cli
}

func TestSymbolFeed_Fetch(t *testing.T) {
	cli := initTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		_, _ = w.Write([]byte(exchangeInfoBody))
	})

	testCases := []struct {
		name string
		opts []Option
		want []string
	}{
		{
			name: "all symbols",
			want: []string{"BTCUSDT", "ETHBTC", "ETHUSDT", "LUNAUSDT"},
		},
		{
			name: "only trading",
			opts: []Option{WithOnlyTrading()},
			want: []string{"BTCUSDT", "ETHBTC", "ETHUSDT"},
		},
		{
			name: "only trading usdt",
			opts: []Option{WithOnlyTrading(), WithQuotes("usdt")},
			want: []string{"BTCUSDT", "ETHUSDT"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewSymbolFeed(cli, tc.opts...)
			snapshot, err := f.Fetch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, snapshot.Members)
		})
	}
}

func TestSymbolFeed_Fetch_Empty(t *testing.T) {
	cli := initTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbols": []}`))
	})

	_, err := NewSymbolFeed(cli).Fetch(context.Background())
	var fetchErr *feed.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, feed.ErrEmptySnapshot)
}

func TestSymbolFeed_Fetch_ServerError(t *testing.T) {
	cli := initTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := NewSymbolFeed(cli).Fetch(context.Background())
	var fetchErr *feed.FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestTickerReport_Fetch(t *testing.T) {
	cli := initTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"symbol": "ETHUSDT", "lastPrice": "3100.5", "priceChangePercent": "-1.234"},
			{"symbol": "BTCUSDT", "lastPrice": "67000", "priceChangePercent": "2.5"}
		]`))
	})

	lines, err := NewTickerReport(cli, "BTCUSDT", "ETHUSDT").Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"• BTCUSDT: $67000.00 (+2.50%)",
		"• ETHUSDT: $3100.50 (-1.23%)",
	}, lines)
}

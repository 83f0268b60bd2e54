package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/KNICEX/watch-agent/pkg/decimalx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairFeed_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search/", r.URL.Path)
		switch r.URL.Query().Get("chain") {
		case "bsc":
			_, _ = w.Write([]byte(`{"pairs": [
				{"baseToken": {"symbol": "FROG"}, "priceChange": {"h1": 26.0}, "volume": {"h1": 15000}},
				{"token": {"symbol": "CAT"}, "priceChange": {"h1": "-30.5"}, "volume": {"h1": "14999"}},
				{"baseToken": {"name": "Nameless"}, "priceChange": 12.5},
				{"symbol": "BAD", "priceChange": {"h1": "n/a"}, "volume": null},
				"not an object"
			]}`))
		case "eth":
			_, _ = w.Write([]byte(`[{"priceChange": {"h1": 1}, "volume": {"h1": 2}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewPairFeed(Config{BaseURL: srv.URL, Chains: []string{"bsc", "eth"}}, srv.Client())
	snapshot, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Records, 5)

	want := []feed.Record{
		{Identifier: "FROG", Source: "BSC", Change1h: decimalx.MustFromString("26.0"), Volume1h: decimalx.MustFromString("15000")},
		{Identifier: "CAT", Source: "BSC", Change1h: decimalx.MustFromString("-30.5"), Volume1h: decimalx.MustFromString("14999")},
		{Identifier: "Nameless", Source: "BSC", Change1h: decimalx.MustFromString("12.5")},
		{Identifier: "BAD", Source: "BSC"},
		{Identifier: "UNKNOWN", Source: "ETH", Change1h: decimalx.MustFromString("1"), Volume1h: decimalx.MustFromString("2")},
	}
	for i, w := range want {
		got := snapshot.Records[i]
		assert.Equal(t, w.Identifier, got.Identifier)
		assert.Equal(t, w.Source, got.Source)
		assert.True(t, w.Change1h.Equal(got.Change1h), "%s change: %s", w.Identifier, got.Change1h)
		assert.True(t, w.Volume1h.Equal(got.Volume1h), "%s volume: %s", w.Identifier, got.Volume1h)
	}
}

func TestPairFeed_Fetch_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"symbol": "A"}, {"symbol": "B"}, {"symbol": "C"}]}`))
	}))
	defer srv.Close()

	f := NewPairFeed(Config{BaseURL: srv.URL, Chains: []string{"sol"}, Limit: 2}, srv.Client())
	snapshot, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Records, 2)
	assert.Equal(t, "B", snapshot.Records[1].Identifier)
}

func TestPairFeed_Fetch_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chain") == "eth" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"pairs": [{"symbol": "OK"}]}`))
	}))
	defer srv.Close()

	f := NewPairFeed(Config{BaseURL: srv.URL, Chains: []string{"bsc", "eth"}}, srv.Client())
	snapshot, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Records, 1)
	assert.Equal(t, "OK", snapshot.Records[0].Identifier)
}

func TestPairFeed_Fetch_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	f := NewPairFeed(Config{BaseURL: srv.URL, Chains: []string{"bsc", "eth"}}, srv.Client())
	snapshot, err := f.Fetch(context.Background())
	var fetchErr *feed.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, feed.ErrMalformed)
	assert.Empty(t, snapshot.Records)
}

package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type containsFilter string

func (f containsFilter) Relevant(_ context.Context, text string) bool {
	return strings.Contains(strings.ToLower(text), string(f))
}

func TestTweetFeed_Fetch(t *testing.T) {
	var lookups atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/2/users/by/username/cz_binance":
			lookups.Add(1)
			_, _ = w.Write([]byte(`{"data": {"id": "100", "username": "cz_binance"}}`))
		case "/2/users/100/tweets":
			assert.Equal(t, "5", r.URL.Query().Get("max_results"))
			_, _ = w.Write([]byte(`{"data": [
				{"id": "9001", "text": "Binance will list FROG"},
				{"id": "9002", "text": "good morning"}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewTweetFeed(Config{
		BaseURL: srv.URL,
		Bearer:  "secret",
		Handles: []string{" @cz_binance "},
	}, containsFilter("list"), srv.Client())

	for i := 0; i < 2; i++ {
		snapshot, err := f.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"9001"}, snapshot.Members)
		assert.Equal(t, "@cz_binance: Binance will list FROG", snapshot.Label("9001"))
	}
	// user id 只查询一次
	assert.Equal(t, int32(1), lookups.Load())
}

func TestTweetFeed_Fetch_UnknownUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"title": "Not Found Error"}]}`))
	}))
	defer srv.Close()

	f := NewTweetFeed(Config{BaseURL: srv.URL, Handles: []string{"ghost"}}, nil, srv.Client())
	_, err := f.Fetch(context.Background())
	var fetchErr *feed.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, errUserNotFound)
}

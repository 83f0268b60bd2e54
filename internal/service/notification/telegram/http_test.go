package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSink_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "-1001", r.PostForm.Get("chat_id"))
		if r.PostForm.Get("text") == "blocked" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"ok": false, "description": "Forbidden: bot was blocked by the user"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 1}}`))
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "123:abc", -1001, srv.Client())
	require.NoError(t, sink.Send(context.Background(), "🚀 SOLUSDT listed"))

	err := sink.Send(context.Background(), "blocked")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by the user")
	assert.NotContains(t, err.Error(), "123:abc")
}

func TestHTTPSink_Send_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	sink := NewHTTPSink(srv.URL, "123:abc", 1, nil)
	err := sink.Send(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "123:abc")
}

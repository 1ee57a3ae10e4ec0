package wsrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekInput struct {
	Seconds float64 `json:"seconds"`
}

func TestServeConnDispatches(t *testing.T) {
	got := make(chan string, 8)

	r := New()
	r.Use(func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			got <- "mw:" + GetMessageTypeFromCtx(ctx)
			return next(ctx, conn, payload)
		}
	})
	Bind(r, "seek", func(_ context.Context, _ *websocket.Conn, in seekInput) error {
		got <- "seek"
		assert.Equal(t, 42.5, in.Seconds)
		return nil
	})
	r.OnError(func(ctx context.Context, _ *websocket.Conn, err error) {
		assert.ErrorIs(t, err, ErrUnknownMessageType)
		got <- "error:" + GetMessageTypeFromCtx(ctx)
	})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if !assert.NoError(t, err) {
			return
		}
		_ = r.ServeConn(context.Background(), conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "seek", "payload": map[string]any{"seconds": 42.5}}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "nope"}))

	want := []string{"mw:seek", "seek", "mw:nope", "error:nope"}
	for _, w := range want {
		select {
		case g := <-got:
			assert.Equal(t, w, g)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", w)
		}
	}
}

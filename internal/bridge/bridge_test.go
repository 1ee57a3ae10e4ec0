package bridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/player"
	"github.com/sharetube/syncwatch/internal/playlist"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type fakeCommands struct {
	Commands
	calls chan string
}

func (f *fakeCommands) AddVideo(_ context.Context, videoURL string) error {
	f.calls <- "add:" + videoURL
	return nil
}

func (f *fakeCommands) Skip(context.Context) error {
	f.calls <- "skip"
	return nil
}

func newTestBridge(t *testing.T) (*Bridge, *clock.Mock, *httptest.Server) {
	t.Helper()
	clk := clock.NewMock()
	b := New(clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, clk, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) inbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg inbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestServesPage(t *testing.T) {
	_, _, srv := newTestBridge(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "youtube.com/iframe_api")
}

func TestReplaysViewOnConnect(t *testing.T) {
	b, _, srv := newTestBridge(t)

	b.RenderPlaylist([]domain.Video{domain.FallbackVideo("abcdefghijk")}, 0, playlist.Changes{})
	b.SetOverlay(true)
	require.NoError(t, b.LoadVideoByID("abcdefghijk"))

	conn := dial(t, srv)
	types := map[string]inbound{}
	for i := 0; i < 4; i++ {
		msg := read(t, conn)
		types[msg.Type] = msg
	}

	assert.Contains(t, types, "playlist")
	assert.Contains(t, types, "overlay")
	assert.Contains(t, types, "seek")
	require.Contains(t, types, "load")
	assert.JSONEq(t, `{"video_id":"abcdefghijk"}`, string(types["load"].Payload))
}

func TestForwardsPlayerReports(t *testing.T) {
	b, clk, srv := newTestBridge(t)

	states := make(chan int, 4)
	errs := make(chan int, 4)
	b.OnStateChange(func(code int) { states <- code })
	b.OnError(func(code int) { errs <- code })

	conn := dial(t, srv)
	waitFor(t, b.Connected)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "state", "payload": map[string]any{"code": 1, "time": 10}}))
	select {
	case code := <-states:
		assert.Equal(t, player.CodePlaying, code)
	case <-time.After(2 * time.Second):
		t.Fatal("no state change")
	}
	assert.Equal(t, player.CodePlaying, b.GetPlayerState())

	clk.Add(2 * time.Second)
	assert.InDelta(t, 12.0, b.GetCurrentTime(), 0.001)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "error", "payload": map[string]any{"code": 150}}))
	select {
	case code := <-errs:
		assert.Equal(t, 150, code)
	case <-time.After(2 * time.Second):
		t.Fatal("no error")
	}
}

func TestDrivesPage(t *testing.T) {
	b, _, srv := newTestBridge(t)
	conn := dial(t, srv)
	waitFor(t, b.Connected)

	require.NoError(t, b.SeekTo(42, true))
	msg := read(t, conn)
	assert.Equal(t, "seek", msg.Type)
	assert.JSONEq(t, `{"seconds":42,"allow_seek_ahead":true}`, string(msg.Payload))
	assert.Equal(t, 42.0, b.GetCurrentTime())

	require.NoError(t, b.PauseVideo())
	assert.Equal(t, "pause", read(t, conn).Type)
	assert.Equal(t, player.CodePaused, b.GetPlayerState())

	b.ShowMessage("hello")
	msg = read(t, conn)
	assert.Equal(t, "message", msg.Type)
	assert.JSONEq(t, `{"text":"hello"}`, string(msg.Payload))
}

func TestForwardsCommands(t *testing.T) {
	b, _, srv := newTestBridge(t)
	conn := dial(t, srv)
	waitFor(t, b.Connected)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "skip"}))
	msg := read(t, conn)
	assert.Equal(t, "message", msg.Type)
	assert.Contains(t, string(msg.Payload), ErrNotReady.Error())

	cmds := &fakeCommands{calls: make(chan string, 4)}
	b.Attach(cmds)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "add_video", "payload": map[string]any{"url": "https://youtu.be/abcdefghijk"}}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "skip"}))
	for _, want := range []string{"add:https://youtu.be/abcdefghijk", "skip"} {
		select {
		case got := <-cmds.calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	msg = read(t, conn)
	assert.Equal(t, "message", msg.Type)
	assert.Contains(t, string(msg.Payload), "unknown message type")
}

func TestNewPageReplacesOld(t *testing.T) {
	b, _, srv := newTestBridge(t)
	first := dial(t, srv)
	waitFor(t, b.Connected)

	second := dial(t, srv)
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	require.NoError(t, b.PlayVideo())
	assert.Equal(t, "play", read(t, second).Type)
}

package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sharetube/syncwatch/pkg/ctxlogger"
	"github.com/sharetube/syncwatch/pkg/wsrouter"
)

// Commands are the session operations a page can trigger.
type Commands interface {
	AddVideo(ctx context.Context, videoURL string) error
	ImportPlaylist(ctx context.Context, playlistURL string) error
	RemoveVideo(ctx context.Context, videoID string) error
	MoveVideo(ctx context.Context, videoID string, newPos int) error
	PlayVideo(ctx context.Context, index int) error
	Skip(ctx context.Context) error
	TogglePlayPause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume int) error
	Kick(ctx context.Context, userID string) error
}

func (b *Bridge) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(b.wsRequestIdMw, b.loggerWSMw)
	mux.OnError(b.handleError)

	// player
	mux.Handle("ready", b.handleReady)
	wsrouter.Bind(mux, "state", b.handleState)
	wsrouter.Bind(mux, "time", b.handleTime)
	wsrouter.Bind(mux, "error", b.handlePlayerError)

	// playlist
	wsrouter.Bind(mux, "add_video", b.handleAddVideo)
	wsrouter.Bind(mux, "import_playlist", b.handleImportPlaylist)
	wsrouter.Bind(mux, "remove_video", b.handleRemoveVideo)
	wsrouter.Bind(mux, "move_video", b.handleMoveVideo)
	wsrouter.Bind(mux, "play_video", b.handlePlayVideo)
	mux.Handle("skip", b.handleSkip)

	// playback
	mux.Handle("toggle", b.handleToggle)
	wsrouter.Bind(mux, "seek_to", b.handleSeekTo)
	wsrouter.Bind(mux, "set_volume", b.handleSetVolume)

	// members
	wsrouter.Bind(mux, "kick", b.handleKick)

	return mux
}

func (b *Bridge) wsRequestIdMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", uuid.NewString()))
		return next(ctx, conn, payload)
	}
}

func (b *Bridge) loggerWSMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		msgType := wsrouter.GetMessageTypeFromCtx(ctx)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", msgType))

		start := time.Now()
		err := next(ctx, conn, payload)

		// position reports arrive several times a second
		if msgType != "time" {
			b.logger.DebugContext(ctx, "websocket message handled", "processing_time_us", time.Since(start).Microseconds())
		}
		return err
	}
}

func (b *Bridge) handleError(ctx context.Context, _ *websocket.Conn, err error) {
	b.logger.InfoContext(ctx, "failed to handle page message", "error", err)
	b.ShowMessage(err.Error())
}

func (b *Bridge) handleReady(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	b.logger.InfoContext(ctx, "player ready")
	return nil
}

type urlInput struct {
	URL string `json:"url"`
}

func (b *Bridge) handleAddVideo(ctx context.Context, _ *websocket.Conn, input urlInput) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.AddVideo(ctx, input.URL)
}

func (b *Bridge) handleImportPlaylist(ctx context.Context, _ *websocket.Conn, input urlInput) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.ImportPlaylist(ctx, input.URL)
}

type videoInput struct {
	VideoID  string `json:"video_id"`
	Position int    `json:"position"`
}

func (b *Bridge) handleRemoveVideo(ctx context.Context, _ *websocket.Conn, input videoInput) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.RemoveVideo(ctx, input.VideoID)
}

func (b *Bridge) handleMoveVideo(ctx context.Context, _ *websocket.Conn, input videoInput) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.MoveVideo(ctx, input.VideoID, input.Position)
}

type indexInput struct {
	Index int `json:"index"`
}

func (b *Bridge) handlePlayVideo(ctx context.Context, _ *websocket.Conn, input indexInput) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.PlayVideo(ctx, input.Index)
}

func (b *Bridge) handleSkip(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.Skip(ctx)
}

func (b *Bridge) handleToggle(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.TogglePlayPause(ctx)
}

func (b *Bridge) handleSeekTo(ctx context.Context, _ *websocket.Conn, input seekPayload) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.Seek(ctx, input.Seconds)
}

func (b *Bridge) handleSetVolume(ctx context.Context, _ *websocket.Conn, input volumePayload) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.SetVolume(ctx, input.Volume)
}

type kickInput struct {
	UserID string `json:"user_id"`
}

func (b *Bridge) handleKick(ctx context.Context, _ *websocket.Conn, input kickInput) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	return s.Kick(ctx, input.UserID)
}

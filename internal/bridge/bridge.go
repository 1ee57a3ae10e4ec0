package bridge

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sharetube/syncwatch/internal/player"
	"github.com/sharetube/syncwatch/pkg/ctxlogger"
	"github.com/sharetube/syncwatch/pkg/wsrouter"
)

//go:embed static/index.html
var indexHTML []byte

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 20 * time.Second
)

var ErrNotReady = errors.New("session is not ready")

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Bridge connects a session to a browser page hosting the embedded player.
// It is the player widget and the view at the same time. Only the most
// recently connected page is driven.
type Bridge struct {
	clock    clock.Clock
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   *wsrouter.WSRouter

	mu       sync.Mutex
	conn     *websocket.Conn
	connMu   *sync.Mutex
	commands Commands
	// sticky holds the latest view message per type for pages that connect
	// later.
	sticky map[string]Output

	videoID    string
	state      int
	position   float64
	reportedAt time.Time
	volume     int
	onState    func(code int)
	onError    func(code int)
}

func New(clk clock.Clock, logger *slog.Logger) *Bridge {
	if clk == nil {
		clk = clock.New()
	}
	b := &Bridge{
		clock:  clk,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:      func(r *http.Request) bool { return true },
			HandshakeTimeout: 10 * time.Second,
		},
		sticky: make(map[string]Output),
		state:  player.CodeUnstarted,
		volume: 100,
	}
	b.router = b.getWSRouter()
	return b
}

// Attach sets the session that page commands are forwarded to.
func (b *Bridge) Attach(commands Commands) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = commands
}

func (b *Bridge) session() (Commands, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.commands == nil {
		return nil, ErrNotReady
	}
	return b.commands, nil
}

func (b *Bridge) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(b.requestIdMw)

	r.Get("/", b.serveIndex)
	r.Get("/ws", b.serveWS)

	return r
}

func (b *Bridge) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", uuid.NewString()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b *Bridge) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexHTML); err != nil {
		b.logger.DebugContext(r.Context(), "failed to write page", "error", err)
	}
}

func (b *Bridge) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	ctx := r.Context()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	connMu := b.connect(ctx, conn)
	defer b.disconnect(ctx, conn)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				connMu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				connMu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	b.logger.InfoContext(ctx, "player page connected", "remote_addr", r.RemoteAddr)
	if err := b.router.ServeConn(ctx, conn); err != nil {
		b.logger.InfoContext(ctx, "player page disconnected", "error", err)
	}
}

// connect makes conn the driven page and replays the current view to it.
func (b *Bridge) connect(ctx context.Context, conn *websocket.Conn) *sync.Mutex {
	b.mu.Lock()
	old, oldMu := b.conn, b.connMu
	connMu := &sync.Mutex{}
	b.conn, b.connMu = conn, connMu

	replay := make([]Output, 0, len(b.sticky)+2)
	for _, out := range b.sticky {
		replay = append(replay, out)
	}
	if b.videoID != "" {
		replay = append(replay,
			Output{Type: "load", Payload: loadPayload{VideoID: b.videoID}},
			Output{Type: "seek", Payload: seekPayload{Seconds: b.positionLocked(), AllowSeekAhead: true}},
		)
	}
	b.mu.Unlock()

	if old != nil {
		oldMu.Lock()
		_ = old.SetWriteDeadline(time.Now().Add(writeWait))
		_ = old.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"))
		_ = old.Close()
		oldMu.Unlock()
	}

	for _, out := range replay {
		if err := writeTo(conn, connMu, &out); err != nil {
			b.logger.InfoContext(ctx, "failed to replay view", "error", err)
			break
		}
	}
	return connMu
}

func (b *Bridge) disconnect(ctx context.Context, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == conn {
		b.conn, b.connMu = nil, nil
	}
}

func writeTo(conn *websocket.Conn, mu *sync.Mutex, out *Output) error {
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(out)
}

// send writes to the driven page, if any. Sticky messages are remembered for
// pages that connect later.
func (b *Bridge) send(msgType string, payload any, sticky bool) {
	out := Output{Type: msgType, Payload: payload}

	b.mu.Lock()
	if sticky {
		b.sticky[msgType] = out
	}
	conn, connMu := b.conn, b.connMu
	b.mu.Unlock()

	if conn == nil {
		return
	}
	if err := writeTo(conn, connMu, &out); err != nil {
		b.logger.Info("failed to write to player page", "type", msgType, "error", err)
	}
}

// Connected reports whether a page is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/sharetube/syncwatch/internal/bridge"
	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/player"
	"github.com/sharetube/syncwatch/internal/reconcile"
)

const leaveTimeout = 5 * time.Second

type WatchParams struct {
	RoomID   string
	Username string
	Password string
	// Console, when set, is read for line commands.
	Console io.Reader
	Output  io.Writer
}

// Session is one joined room with a running engine.
type Session struct {
	client *Client
	room   *domain.Room
	engine *reconcile.Engine
	// Sim is set for headless sessions.
	Sim     *player.SimWidget
	server  *http.Server
	console *console
}

// Enter joins the room and prepares a session for it without starting it.
func (c *Client) Enter(ctx context.Context, params *WatchParams) (*Session, error) {
	rm, err := c.JoinRoom(ctx, &JoinRoomParams{
		RoomID:   params.RoomID,
		Username: params.Username,
		Password: params.Password,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{client: c, room: rm}
	logger := c.logger.With("room_id", rm.ID)

	var (
		widget player.Widget
		view   reconcile.View
		br     *bridge.Bridge
	)
	switch c.cfg.Player {
	case PlayerSim:
		s.Sim = player.NewSimWidget(c.clock)
		widget = s.Sim
		view = reconcile.NewLogView(logger)
	default:
		br = bridge.New(c.clock, logger)
		widget, view = br, br
		s.server = &http.Server{
			Addr:    c.cfg.BridgeAddr,
			Handler: br.Handler(),
		}
	}

	s.engine = reconcile.New(&reconcile.Params{
		Config: c.cfg.Engine,
		Store:  c.store,
		Player: player.NewAdapter(widget, c.clock, logger),
		View:   view,
		Clock:  c.clock,
		Logger: logger,
		UserID: c.userID,
		Room:   rm,
	})
	if br != nil {
		br.Attach(s.engine)
	}

	if params.Console != nil {
		out := params.Output
		if out == nil {
			out = io.Discard
		}
		s.console = newConsole(s.engine, params.Console, out)
	}

	return s, nil
}

func (s *Session) Room() *domain.Room {
	return s.room.Clone()
}

func (s *Session) Engine() *reconcile.Engine {
	return s.engine
}

// Run drives the session until ctx is done or the session ends. A cancelled
// session leaves the room.
func (s *Session) Run(ctx context.Context) error {
	s.client.store.CheckHealth(ctx)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	p := pool.New().WithErrors()

	if s.server != nil {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
		}
		s.client.logger.InfoContext(ctx, "open the player page", "url", "http://"+ln.Addr().String())

		p.Go(func() error {
			defer stop()
			if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("player page server failed: %w", err)
			}
			return nil
		})
		p.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
			defer cancel()
			return s.server.Shutdown(shutdownCtx)
		})
	}

	if s.console != nil {
		p.Go(func() error {
			s.console.run(runCtx)
			return nil
		})
	}

	var runErr error
	p.Go(func() error {
		defer stop()
		runErr = s.engine.Run(runCtx)
		return nil
	})

	if err := p.Wait(); err != nil {
		return err
	}

	// the engine returns nil on cancellation without leaving
	if runErr == nil && ctx.Err() != nil {
		leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		if err := s.client.LeaveRoom(leaveCtx, s.room.ID); err != nil {
			s.client.logger.WarnContext(leaveCtx, "failed to leave room", "error", err)
		}
	}

	return runErr
}

// Watch joins a room and runs the session until it ends.
func (c *Client) Watch(ctx context.Context, params *WatchParams) error {
	s, err := c.Enter(ctx, params)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/permission"
	"github.com/sharetube/syncwatch/internal/player"
	"github.com/sharetube/syncwatch/pkg/randstr"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotLeader        = errors.New("only the room leader can do this")
	ErrKicked           = errors.New("removed from the room")
	ErrRoomClosed       = errors.New("room no longer exists")
	ErrStopped          = errors.New("session stopped")
	ErrNoVideo          = errors.New("no video loaded")
)

// RoomStore is the part of the room store a session needs.
type RoomStore interface {
	Fetch(ctx context.Context, roomID string) (*domain.Room, error)
	UpdateRoom(ctx context.Context, roomID string, patch *domain.RoomPatch) error
	LeaveRoom(ctx context.Context, roomID, userID string) (*domain.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	VideoMetadata(ctx context.Context, videoURL string) (domain.VideoMetadata, error)
	PlaylistMetadata(ctx context.Context, playlistURL, playlistID string) (domain.PlaylistMetadata, error)
}

type task struct {
	at time.Time
	fn func(ctx context.Context)
}

// pushed records which shared fields the session's latest patch carried.
type pushed struct {
	state bool
	time  bool
}

// Engine keeps one participant's player in step with the shared room. All
// state is owned by the goroutine running Run; the exported operations are
// marshalled onto it.
type Engine struct {
	cfg    Config
	store  RoomStore
	player player.Player
	view   View
	clock  clock.Clock
	logger *slog.Logger

	userID string
	origin string
	roomID string

	// room mirrors the last known shared state plus local edits.
	room     *domain.Room
	current  int
	loadedID string
	isLeader bool
	playing  bool

	lastPermissions domain.Permissions
	lastState       domain.VideoState
	lastTime        *float64
	lastIndex       int

	syncingUntil     time.Time
	autoPlayingUntil time.Time
	skipUntil        time.Time
	addingUntil      time.Time
	processingUntil  time.Time
	userSeekingUntil time.Time

	pendingAdds int

	revision int64
	lastPush pushed

	lastSample   float64
	lastSampleAt time.Time
	lastSeekPush time.Time

	missing int
	tasks   []task
	cmds    chan func(ctx context.Context)
	done    chan struct{}
	ended   bool
	endErr  error
}

type Params struct {
	Config Config
	Store  RoomStore
	Player player.Player
	View   View
	Clock  clock.Clock
	Logger *slog.Logger
	UserID string
	// Room is the snapshot the session was entered with.
	Room *domain.Room
}

var sessionIDs = randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789"))

func New(params *Params) *Engine {
	clk := params.Clock
	if clk == nil {
		clk = clock.New()
	}
	view := params.View
	if view == nil {
		view = NewLogView(params.Logger)
	}
	room := params.Room.Clone()
	room.Normalize()

	return &Engine{
		cfg:       params.Config,
		store:     params.Store,
		player:    params.Player,
		view:      view,
		clock:     clk,
		logger:    params.Logger.With("room_id", room.ID, "user_id", params.UserID),
		userID:    params.UserID,
		origin:    params.UserID + "/" + sessionIDs.GenerateRandomString(8),
		roomID:    room.ID,
		room:      room,
		current:   -1,
		lastIndex: -1,
		lastState: domain.VideoStateStopped,
		cmds:      make(chan func(ctx context.Context)),
		done:      make(chan struct{}),
	}
}

// Start presents the entry snapshot and brings the player to it without
// pushing anything back.
func (e *Engine) start(ctx context.Context) {
	r := e.room
	e.isLeader = r.IsLeader(e.userID)
	if r.Permissions != nil {
		e.lastPermissions = *r.Permissions
	} else {
		e.lastPermissions = domain.DefaultPermissions()
	}
	e.lastState = r.VideoState
	e.lastTime = copyTime(r.VideoTime)

	e.refreshPermissions()
	e.view.RenderParticipants(r.Participants, r.Leader)

	if len(r.Playlist) == 0 {
		e.teardown()
		e.view.RenderPlaylist(r.Playlist, -1, diffAll(r.Playlist))
		return
	}

	e.view.RenderPlaylist(r.Playlist, r.CurrentVideoIndex, diffAll(r.Playlist))
	e.loadVideo(ctx, r.CurrentVideoIndex, false)
	switch r.VideoState {
	case domain.VideoStatePaused:
		e.after(e.cfg.StateSettle, func(context.Context) {
			if err := e.player.Pause(); err != nil {
				e.logger.InfoContext(ctx, "failed to pause player", "error", err)
			}
		})
	}
	if r.VideoTime != nil && *r.VideoTime > 0 {
		if err := e.player.Seek(*r.VideoTime); err != nil {
			e.logger.InfoContext(ctx, "failed to seek player", "error", err)
		}
	}
	e.after(e.cfg.LoadOverlayDelay, func(context.Context) { e.updateOverlay() })
}

// Run drives the session until ctx is done or the session ends. It returns
// nil when ctx is cancelled or the user left.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	poll := e.clock.Ticker(e.cfg.PollInterval)
	defer poll.Stop()
	seek := e.clock.Ticker(e.cfg.SeekPollInterval)
	defer seek.Stop()

	e.start(ctx)
	e.logger.InfoContext(ctx, "session started")

	for !e.ended {
		select {
		case <-ctx.Done():
			e.logger.InfoContext(ctx, "session stopped")
			return nil
		case <-poll.C:
			e.tick(ctx)
		case <-seek.C:
			e.watchSeek(ctx)
		case ev := <-e.player.Events():
			e.handlePlayerEvent(ctx, ev)
		case cmd := <-e.cmds:
			cmd(ctx)
		}
		e.runDue(ctx)
	}

	e.logger.InfoContext(ctx, "session ended", "reason", e.endErr)
	return e.endErr
}

func (e *Engine) end(err error) {
	e.ended = true
	e.endErr = err
}

// exec runs fn on the session goroutine and waits for its result.
func (e *Engine) exec(ctx context.Context, fn func(ctx context.Context) error) error {
	res := make(chan error, 1)
	select {
	case e.cmds <- func(ctx context.Context) { res <- fn(ctx) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}

	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrStopped
		}
	}
}

// after schedules fn on the session goroutine once d has passed.
func (e *Engine) after(d time.Duration, fn func(ctx context.Context)) {
	e.tasks = append(e.tasks, task{at: e.clock.Now().Add(d), fn: fn})
}

func (e *Engine) runDue(ctx context.Context) {
	now := e.clock.Now()
	var due, pending []task
	for _, t := range e.tasks {
		if t.at.After(now) {
			pending = append(pending, t)
		} else {
			due = append(due, t)
		}
	}
	e.tasks = pending
	for _, t := range due {
		t.fn(ctx)
	}
}

func (e *Engine) hold(until *time.Time, d time.Duration) {
	if t := e.clock.Now().Add(d); t.After(*until) {
		*until = t
	}
}

func (e *Engine) active(until time.Time) bool {
	return e.clock.Now().Before(until)
}

func (e *Engine) syncing() bool        { return e.active(e.syncingUntil) }
func (e *Engine) autoPlaying() bool    { return e.active(e.autoPlayingUntil) }
func (e *Engine) skipInProgress() bool { return e.active(e.skipUntil) }
func (e *Engine) addingVideo() bool    { return e.active(e.addingUntil) }
func (e *Engine) processing() bool     { return e.active(e.processingUntil) }
func (e *Engine) userSeeking() bool    { return e.active(e.userSeekingUntil) }

func (e *Engine) suppressed() bool {
	return e.syncing() || e.autoPlaying() || e.skipInProgress()
}

func (e *Engine) allowed(action permission.Action) bool {
	return permission.Allowed(action, e.room, e.isLeader)
}

func (e *Engine) nowMillis() int64 {
	return e.clock.Now().UnixMilli()
}

// push sends patch to the store, stamped with the session's origin and the
// next revision, and merges it into the local mirror.
func (e *Engine) push(ctx context.Context, patch *domain.RoomPatch) error {
	e.revision++
	rev, origin := e.revision, e.origin
	patch.Revision = &rev
	patch.Origin = &origin

	e.lastPush = pushed{state: patch.VideoState != nil, time: patch.VideoTime != nil}
	e.room.Apply(patch)
	if patch.Permissions != nil {
		e.lastPermissions = *patch.Permissions
	}
	if patch.VideoState != nil {
		e.lastState = *patch.VideoState
	}
	if patch.VideoTime != nil {
		e.lastTime = copyTime(patch.VideoTime)
	}
	if patch.CurrentVideoIndex != nil {
		e.lastIndex = *patch.CurrentVideoIndex
	}

	if err := e.store.UpdateRoom(ctx, e.roomID, patch); err != nil {
		e.logger.WarnContext(ctx, "failed to push room update", "error", err)
		return fmt.Errorf("failed to update room: %w", err)
	}
	return nil
}

// loadVideo makes index the current video and starts it. The load guards
// keep the first seconds of playback from being pushed or overridden.
func (e *Engine) loadVideo(ctx context.Context, index int, publish bool) {
	if index < 0 || index >= len(e.room.Playlist) {
		return
	}
	video := e.room.Playlist[index]

	e.hold(&e.syncingUntil, e.cfg.LoadSyncHold)
	e.hold(&e.autoPlayingUntil, e.cfg.LoadAutoPlayHold)
	e.hold(&e.skipUntil, e.cfg.LoadSkipHold)

	e.view.HideBlankState()
	if err := e.player.Load(video.ID); err != nil {
		e.logger.WarnContext(ctx, "failed to load video", "video_id", video.ID, "error", err)
	}
	e.current = index
	e.lastIndex = index
	e.loadedID = video.ID
	e.room.CurrentVideoIndex = index
	e.resetSeekBaseline(0)

	if publish {
		_ = e.push(ctx, &domain.RoomPatch{
			CurrentVideoIndex: domain.Ptr(index),
			LastUpdateTime:    domain.Ptr(e.nowMillis()),
		})
	}
}

// teardown leaves the player empty and shows the blank state.
func (e *Engine) teardown() {
	if err := e.player.Stop(); err != nil {
		e.logger.Info("failed to stop player", "error", err)
	}
	if err := e.player.Clear(); err != nil {
		e.logger.Info("failed to clear player", "error", err)
	}
	e.current = -1
	e.lastIndex = -1
	e.loadedID = ""
	e.room.CurrentVideoIndex = -1
	e.playing = false
	e.view.SetPlaying(false)
	e.view.ShowBlankState()
}

func (e *Engine) refreshPermissions() {
	perms := e.lastPermissions
	e.view.RefreshPermissions(perms, e.isLeader)
	e.updateOverlay()
}

// updateOverlay covers the player for users who may not control playback.
func (e *Engine) updateOverlay() {
	e.view.SetOverlay(len(e.room.Playlist) > 0 && !e.allowed(permission.PlayPause))
}

func copyTime(t *float64) *float64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

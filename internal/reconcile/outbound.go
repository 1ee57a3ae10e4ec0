package reconcile

import (
	"context"
	"math"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/permission"
	"github.com/sharetube/syncwatch/internal/player"
	"github.com/sharetube/syncwatch/internal/playlist"
)

func (e *Engine) handlePlayerEvent(ctx context.Context, ev player.Event) {
	switch ev.State {
	case player.StateEnded:
		e.logger.InfoContext(ctx, "video ended")
		e.advance(ctx)
	case player.StateError:
		e.logger.WarnContext(ctx, "player error, skipping video", "error", ev.Err)
		e.view.ShowMessage("Video cannot be played, skipping")
		e.advance(ctx)
	case player.StatePlaying, player.StatePaused:
		e.playing = ev.State == player.StatePlaying
		e.view.SetPlaying(e.playing)
		if e.allowed(permission.PlayPause) && !e.syncing() {
			e.after(e.cfg.StateSettle, e.pushState)
		}
	}
}

// pushState publishes the player's play/pause state. Calls within the action
// hold collapse into one trailing push.
func (e *Engine) pushState(ctx context.Context) {
	if e.syncing() || e.loadedID == "" {
		return
	}
	if e.processing() {
		e.after(e.processingUntil.Sub(e.clock.Now()), e.pushState)
		return
	}
	state := domain.VideoStatePaused
	if e.player.State() == player.StatePlaying {
		state = domain.VideoStatePlaying
	}
	if state == e.lastState {
		return
	}

	e.hold(&e.processingUntil, e.cfg.ActionHold)
	_ = e.push(ctx, &domain.RoomPatch{
		VideoState:     &state,
		LastUpdateTime: domain.Ptr(e.nowMillis()),
	})
}

// advance moves to the next video after the current one ended or failed.
// Every participant reaches the same index, so no permission is required.
func (e *Engine) advance(ctx context.Context) {
	pl := playlist.New(e.room.Playlist, e.current)
	next, ok := pl.Skip()
	if !ok {
		return
	}
	e.loadVideo(ctx, next, true)
	e.view.RenderPlaylist(e.room.Playlist, next, playlist.Changes{})
}

func (e *Engine) resetSeekBaseline(position float64) {
	e.lastSample = position
	e.lastSampleAt = e.clock.Now()
}

func (e *Engine) canSeek() bool {
	return e.allowed(permission.VideoSeek) || e.allowed(permission.PlayPause)
}

// watchSeek samples the playhead and publishes jumps that normal playback
// cannot explain.
func (e *Engine) watchSeek(ctx context.Context) {
	if e.loadedID == "" {
		return
	}
	now := e.clock.Now()
	pos := e.player.CurrentTime()
	elapsed := now.Sub(e.lastSampleAt).Seconds()
	if e.player.State() != player.StatePlaying {
		elapsed = 0
	}
	low := e.lastSample - e.cfg.SeekThreshold
	high := e.lastSample + elapsed + e.cfg.SeekThreshold
	jumped := pos < low || pos > high

	e.lastSample = pos
	e.lastSampleAt = now

	if !jumped || !e.canSeek() {
		return
	}
	if e.syncing() || e.autoPlaying() || e.userSeeking() {
		return
	}
	if now.Sub(e.lastSeekPush) < e.cfg.SeekDebounce {
		return
	}
	e.publishSeek(ctx, pos)
}

func (e *Engine) publishSeek(ctx context.Context, pos float64) {
	e.lastSeekPush = e.clock.Now()
	e.hold(&e.userSeekingUntil, e.cfg.UserSeekHold)
	e.logger.DebugContext(ctx, "publishing seek", "position", math.Round(pos*10)/10)
	_ = e.push(ctx, &domain.RoomPatch{
		VideoTime:      domain.Ptr(pos),
		LastUpdateTime: domain.Ptr(e.nowMillis()),
	})
}

package reconcile

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/exp/slices"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/player"
	"github.com/sharetube/syncwatch/internal/playlist"
	"github.com/sharetube/syncwatch/internal/roomstore"
)

// tick fetches one snapshot and applies it. Fetches are serialized on the
// session goroutine so snapshots are always applied in the order taken.
func (e *Engine) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "panic while applying room snapshot", "panic", r)
		}
	}()

	snap, err := e.store.Fetch(ctx, e.roomID)
	if err != nil {
		if errors.Is(err, roomstore.ErrRoomNotFound) {
			e.missing++
			if e.cfg.MissingRoomPolls > 0 && e.missing >= e.cfg.MissingRoomPolls {
				e.view.ShowMessage("The room has been closed")
				e.end(ErrRoomClosed)
			}
		}
		e.logger.DebugContext(ctx, "failed to fetch room", "error", err)
		return
	}
	e.missing = 0

	e.apply(ctx, snap)
}

// apply reconciles the local mirror, view and player with snap. Structural
// changes are handled first; a change of current video ends the pass.
func (e *Engine) apply(ctx context.Context, snap *domain.Room) {
	snap.Normalize()
	echo := snap.Origin != "" && snap.Origin == e.origin && snap.Revision <= e.revision

	e.room.Name = snap.Name
	e.room.Password = snap.Password
	e.room.IsActive = snap.IsActive

	if snap.Permissions != nil && *snap.Permissions != e.lastPermissions {
		e.lastPermissions = *snap.Permissions
		perms := *snap.Permissions
		e.room.Permissions = &perms
		e.refreshPermissions()
	}

	if snap.Leader != e.room.Leader {
		wasLeader := e.isLeader
		e.room.Leader = snap.Leader
		e.room.LeaderUsername = snap.LeaderUsername
		e.isLeader = e.room.IsLeader(e.userID)
		if e.isLeader && !wasLeader {
			e.view.ShowMessage("You are now the room leader")
		}
		e.refreshPermissions()
		e.view.RenderParticipants(e.room.Participants, e.room.Leader)
	}

	if !e.addingVideo() && !slices.Equal(snap.Playlist, e.room.Playlist) {
		changes := playlist.Diff(e.room.Playlist, snap.Playlist)
		e.room.Playlist = slices.Clone(snap.Playlist)
		e.view.RenderPlaylist(e.room.Playlist, e.current, changes)
		e.after(e.cfg.OverlayDelay, func(context.Context) { e.updateOverlay() })
	}

	if !domain.ParticipantsEqual(snap.Participants, e.room.Participants) {
		e.room.Participants = slices.Clone(snap.Participants)
		e.view.RenderParticipants(e.room.Participants, e.room.Leader)
		if len(e.room.Participants) > 0 && !e.room.HasParticipant(e.userID) {
			e.view.ShowMessage("You have been removed from the room")
			e.end(ErrKicked)
			return
		}
	}

	if snap.CurrentVideoIndex != e.lastIndex || e.currentReplaced(snap.CurrentVideoIndex) {
		e.applyIndex(ctx, snap)
		return
	}

	e.room.VideoState = snap.VideoState
	e.room.VideoTime = copyTime(snap.VideoTime)
	e.room.LastUpdateTime = snap.LastUpdateTime

	if e.suppressed() {
		return
	}

	if echo && e.lastPush.state {
		e.lastState = snap.VideoState
	} else {
		e.applyState(ctx, snap)
	}

	// a state change applied above holds the guards through the seek step
	if e.suppressed() {
		return
	}

	if echo && e.lastPush.time {
		e.lastTime = copyTime(snap.VideoTime)
	} else {
		e.applySeek(ctx, snap)
	}
}

// currentReplaced reports whether the video at index is no longer the loaded
// one, as after a removal of the current video at the same position.
func (e *Engine) currentReplaced(index int) bool {
	if e.loadedID == "" || index < 0 || index >= len(e.room.Playlist) {
		return false
	}
	return e.room.Playlist[index].ID != e.loadedID
}

func (e *Engine) applyIndex(ctx context.Context, snap *domain.Room) {
	e.lastIndex = snap.CurrentVideoIndex
	e.room.VideoState = snap.VideoState
	e.room.VideoTime = copyTime(snap.VideoTime)
	e.room.LastUpdateTime = snap.LastUpdateTime

	if len(e.room.Playlist) == 0 {
		e.teardown()
		e.view.RenderPlaylist(e.room.Playlist, -1, playlist.Changes{})
		e.updateOverlay()
		return
	}

	index := snap.CurrentVideoIndex
	if index >= len(e.room.Playlist) {
		// the playlist is held back while an add is in flight
		index = len(e.room.Playlist) - 1
	}
	if e.room.Playlist[index].ID == e.loadedID {
		// same video at a shifted position
		e.current = index
		e.room.CurrentVideoIndex = index
		e.view.RenderPlaylist(e.room.Playlist, index, playlist.Changes{})
		return
	}

	e.logger.InfoContext(ctx, "switching video", "index", index, "video_id", e.room.Playlist[index].ID)
	e.loadVideo(ctx, index, false)
	e.view.RenderPlaylist(e.room.Playlist, index, playlist.Changes{})
	e.after(e.cfg.LoadOverlayDelay, func(context.Context) { e.updateOverlay() })
}

func (e *Engine) age(snap *domain.Room) time.Duration {
	return time.Duration(e.nowMillis()-snap.LastUpdateTime) * time.Millisecond
}

// applyState replays a fresh remote play/pause/stop. Stale changes are not
// replayed; the mirror only advances when a change is applied.
func (e *Engine) applyState(ctx context.Context, snap *domain.Room) {
	if snap.LastUpdateTime == 0 || e.age(snap) >= e.cfg.StateWindow || snap.VideoState == e.lastState {
		return
	}
	e.lastState = snap.VideoState

	var err error
	switch snap.VideoState {
	case domain.VideoStatePlaying:
		if e.player.State() != player.StatePlaying {
			e.hold(&e.syncingUntil, e.cfg.SyncHold)
			err = e.player.Play()
		}
	case domain.VideoStatePaused:
		if e.player.State() == player.StatePlaying {
			e.hold(&e.syncingUntil, e.cfg.SyncHold)
			err = e.player.Pause()
		}
	case domain.VideoStateStopped:
		e.hold(&e.syncingUntil, e.cfg.SyncHold)
		if err = e.player.Stop(); err == nil {
			err = e.player.Clear()
		}
		e.loadedID = ""
	}
	if err != nil {
		e.logger.InfoContext(ctx, "failed to apply remote state", "state", snap.VideoState, "error", err)
	}
}

// applySeek follows a fresh remote seek when the playhead is far enough off.
func (e *Engine) applySeek(ctx context.Context, snap *domain.Room) {
	if snap.VideoTime == nil || snap.LastUpdateTime == 0 || e.age(snap) >= e.cfg.SeekWindow {
		return
	}
	if e.lastTime != nil && *e.lastTime == *snap.VideoTime {
		return
	}
	e.lastTime = copyTime(snap.VideoTime)

	target := *snap.VideoTime
	if math.Abs(e.player.CurrentTime()-target) <= e.cfg.SeekThreshold {
		return
	}

	wasPlaying := e.player.State() == player.StatePlaying
	e.hold(&e.syncingUntil, e.cfg.SeekHold)
	if err := e.player.Seek(target); err != nil {
		e.logger.InfoContext(ctx, "failed to apply remote seek", "error", err)
		return
	}
	e.resetSeekBaseline(target)
	if wasPlaying {
		e.after(e.cfg.SeekResumeDelay, func(ctx context.Context) {
			if err := e.player.Play(); err != nil {
				e.logger.InfoContext(ctx, "failed to resume after seek", "error", err)
			}
		})
	}
}

func diffAll(videos []domain.Video) playlist.Changes {
	return playlist.Diff(nil, videos)
}

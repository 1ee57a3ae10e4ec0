package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/permission"
	"github.com/sharetube/syncwatch/internal/player"
	"github.com/sharetube/syncwatch/internal/playlist"
	"github.com/sharetube/syncwatch/pkg/ytvideodata"
)

// Snapshot returns a copy of the session's view of the room.
func (e *Engine) Snapshot(ctx context.Context) (*domain.Room, error) {
	var out *domain.Room
	err := e.exec(ctx, func(context.Context) error {
		out = e.room.Clone()
		out.CurrentVideoIndex = e.current
		return nil
	})
	return out, err
}

// AddVideo appends a video. The metadata lookup runs on the caller's
// goroutine so polling continues meanwhile.
func (e *Engine) AddVideo(ctx context.Context, videoURL string) error {
	return e.addVideo(ctx, videoURL, e.exec)
}

func (e *Engine) ImportPlaylist(ctx context.Context, playlistURL string) error {
	return e.importPlaylist(ctx, playlistURL, e.exec)
}

func (e *Engine) RemoveVideo(ctx context.Context, videoID string) error {
	return e.exec(ctx, func(ctx context.Context) error { return e.removeVideo(ctx, videoID) })
}

func (e *Engine) MoveVideo(ctx context.Context, videoID string, newPos int) error {
	return e.exec(ctx, func(ctx context.Context) error { return e.moveVideo(ctx, videoID, newPos) })
}

func (e *Engine) PlayVideo(ctx context.Context, index int) error {
	return e.exec(ctx, func(ctx context.Context) error { return e.playVideo(ctx, index) })
}

func (e *Engine) Skip(ctx context.Context) error {
	return e.exec(ctx, e.skip)
}

func (e *Engine) TogglePlayPause(ctx context.Context) error {
	return e.exec(ctx, e.togglePlayPause)
}

func (e *Engine) Seek(ctx context.Context, seconds float64) error {
	return e.exec(ctx, func(ctx context.Context) error { return e.seek(ctx, seconds) })
}

func (e *Engine) SetVolume(ctx context.Context, volume int) error {
	return e.exec(ctx, func(context.Context) error { return e.player.SetVolume(volume) })
}

func (e *Engine) Kick(ctx context.Context, userID string) error {
	return e.exec(ctx, func(ctx context.Context) error { return e.kick(ctx, userID) })
}

func (e *Engine) UpdateSettings(ctx context.Context, s Settings) error {
	return e.exec(ctx, func(ctx context.Context) error { return e.updateSettings(ctx, s) })
}

func (e *Engine) Leave(ctx context.Context) error {
	return e.exec(ctx, e.leave)
}

func (e *Engine) DeleteRoom(ctx context.Context) error {
	return e.exec(ctx, e.deleteRoom)
}

func (e *Engine) require(action permission.Action) error {
	if !e.allowed(action) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, action)
	}
	return nil
}

func (e *Engine) queue() *playlist.Playlist {
	return playlist.New(e.room.Playlist, e.current)
}

// runner executes fn on the session goroutine.
type runner func(ctx context.Context, fn func(ctx context.Context) error) error

func (e *Engine) addVideo(ctx context.Context, videoURL string, run runner) error {
	var (
		videoID  string
		wasEmpty bool
	)
	err := run(ctx, func(context.Context) error {
		var err error
		videoID, wasEmpty, err = e.beginAdd(videoURL)
		return err
	})
	if err != nil || videoID == "" {
		return err
	}

	video := domain.FallbackVideo(videoID)
	meta, err := e.store.VideoMetadata(ctx, domain.WatchURL(videoID))
	if err != nil {
		e.logger.InfoContext(ctx, "failed to get video metadata, using fallback", "video_id", videoID, "error", err)
	} else {
		video = meta.Video()
		video.ID = videoID
	}

	return run(ctx, func(ctx context.Context) error { return e.finishAdd(ctx, video, wasEmpty) })
}

// beginAdd shows a placeholder for the video and holds back remote playlist
// changes until finishAdd. An empty id means there is nothing to add.
func (e *Engine) beginAdd(videoURL string) (string, bool, error) {
	if err := e.require(permission.AddVideo); err != nil {
		return "", false, err
	}
	videoID, err := ytvideodata.ExtractVideoID(videoURL)
	if err != nil {
		e.view.ShowMessage("Invalid YouTube URL")
		return "", false, err
	}

	pl := e.queue()
	wasEmpty := pl.Len() == 0
	if !pl.Append(domain.PlaceholderVideo(videoID)) {
		e.view.ShowMessage("This video is already in the playlist")
		return "", false, nil
	}
	e.startAdding()

	old := e.room.Playlist
	e.room.Playlist = pl.Videos()
	e.view.RenderPlaylist(e.room.Playlist, e.current, playlist.Diff(old, e.room.Playlist))
	return videoID, wasEmpty, nil
}

func (e *Engine) finishAdd(ctx context.Context, video domain.Video, wasEmpty bool) error {
	e.stopAdding()
	pl := e.queue()
	if err := pl.Replace(video); err != nil {
		// removed while the metadata was looked up
		return nil
	}
	return e.publishAppend(ctx, pl, wasEmpty && e.current < 0)
}

func (e *Engine) startAdding() {
	if !e.addingVideo() {
		e.pendingAdds = 0
	}
	e.pendingAdds++
	e.hold(&e.addingUntil, e.cfg.AddingTimeout)
}

func (e *Engine) stopAdding() {
	if e.pendingAdds > 0 {
		e.pendingAdds--
	}
	if e.pendingAdds == 0 {
		e.addingUntil = e.clock.Now()
	}
}

// publishAppend pushes a grown playlist. When the playlist was empty the new
// first entry becomes current in the same update and starts playing.
func (e *Engine) publishAppend(ctx context.Context, pl *playlist.Playlist, wasEmpty bool) error {
	old := e.room.Playlist
	videos := pl.Videos()
	patch := &domain.RoomPatch{Playlist: &videos}
	if wasEmpty {
		patch.CurrentVideoIndex = domain.Ptr(0)
		patch.LastUpdateTime = domain.Ptr(e.nowMillis())
	}
	err := e.push(ctx, patch)

	e.view.RenderPlaylist(e.room.Playlist, e.current, playlist.Diff(old, e.room.Playlist))
	if wasEmpty {
		e.loadVideo(ctx, 0, false)
		e.view.RenderPlaylist(e.room.Playlist, 0, playlist.Changes{})
	}
	e.updateOverlay()
	return err
}

func (e *Engine) importPlaylist(ctx context.Context, playlistURL string, run runner) error {
	var playlistID string
	err := run(ctx, func(context.Context) error {
		if err := e.require(permission.AddVideo); err != nil {
			return err
		}
		var err error
		playlistID, err = ytvideodata.ExtractPlaylistID(playlistURL)
		if err != nil {
			e.view.ShowMessage("Invalid YouTube playlist URL")
			return err
		}
		e.startAdding()
		return nil
	})
	if err != nil {
		return err
	}

	meta, metaErr := e.store.PlaylistMetadata(ctx, playlistURL, playlistID)
	return run(ctx, func(ctx context.Context) error { return e.finishImport(ctx, meta, metaErr) })
}

func (e *Engine) finishImport(ctx context.Context, meta domain.PlaylistMetadata, metaErr error) error {
	e.stopAdding()
	if metaErr != nil {
		e.view.ShowMessage("Failed to load playlist")
		return fmt.Errorf("failed to get playlist metadata: %w", metaErr)
	}

	videos := make([]domain.Video, 0, len(meta.Videos))
	for _, m := range meta.Videos {
		videos = append(videos, m.Video())
	}

	pl := e.queue()
	wasEmpty := pl.Len() == 0
	res := pl.Import(videos, func(v domain.Video, index int) {
		e.view.RenderPlaylist(pl.Videos(), e.current, playlist.Changes{
			Added: []playlist.Entry{{Index: index, Video: v}},
		})
	})
	e.logger.InfoContext(ctx, "playlist imported", "playlist_id", meta.PlaylistID, "added", res.Added, "skipped", res.Skipped)
	if res.Added == 0 {
		e.view.ShowMessage("No new videos in playlist")
		return nil
	}
	e.view.ShowMessage(fmt.Sprintf("Added %d videos", res.Added))

	return e.publishAppend(ctx, pl, wasEmpty)
}

func (e *Engine) removeVideo(ctx context.Context, videoID string) error {
	if err := e.require(permission.RemoveVideo); err != nil {
		return err
	}
	pl := e.queue()
	removal, err := pl.Remove(videoID)
	if err != nil {
		return err
	}

	old := e.room.Playlist
	videos := pl.Videos()
	patch := &domain.RoomPatch{
		Playlist:          &videos,
		CurrentVideoIndex: domain.Ptr(pl.Current()),
		LastUpdateTime:    domain.Ptr(e.nowMillis()),
	}
	if removal.Empty {
		patch.VideoState = domain.Ptr(domain.VideoStateStopped)
	}
	e.current = pl.Current()
	pushErr := e.push(ctx, patch)

	switch {
	case removal.Empty:
		e.teardown()
	case removal.LoadTarget >= 0:
		e.loadVideo(ctx, removal.LoadTarget, false)
	}
	e.view.RenderPlaylist(e.room.Playlist, e.current, playlist.Diff(old, e.room.Playlist))
	e.updateOverlay()
	return pushErr
}

func (e *Engine) moveVideo(ctx context.Context, videoID string, newPos int) error {
	if err := e.require(permission.EditPlaylist); err != nil {
		return err
	}
	pl := e.queue()
	if err := pl.Move(videoID, newPos); err != nil {
		return err
	}

	old := e.room.Playlist
	videos := pl.Videos()
	e.current = pl.Current()
	err := e.push(ctx, &domain.RoomPatch{
		Playlist:          &videos,
		CurrentVideoIndex: domain.Ptr(pl.Current()),
	})
	e.view.RenderPlaylist(e.room.Playlist, e.current, playlist.Diff(old, e.room.Playlist))
	return err
}

func (e *Engine) playVideo(ctx context.Context, index int) error {
	if err := e.require(permission.PlayPause); err != nil {
		return err
	}
	if index < 0 || index >= len(e.room.Playlist) {
		return playlist.ErrIndexOutOfRange
	}
	e.loadVideo(ctx, index, true)
	e.view.RenderPlaylist(e.room.Playlist, index, playlist.Changes{})
	return nil
}

func (e *Engine) skip(ctx context.Context) error {
	if err := e.require(permission.PlayPause); err != nil {
		return err
	}
	next, ok := e.queue().Skip()
	if !ok {
		return nil
	}
	e.loadVideo(ctx, next, true)
	e.view.RenderPlaylist(e.room.Playlist, next, playlist.Changes{})
	return nil
}

// togglePlayPause drives the player only; the resulting state event is what
// gets published.
func (e *Engine) togglePlayPause(ctx context.Context) error {
	if err := e.require(permission.PlayPause); err != nil {
		return err
	}
	if e.loadedID == "" {
		return ErrNoVideo
	}
	if e.player.State() == player.StatePlaying {
		return e.player.Pause()
	}
	return e.player.Play()
}

func (e *Engine) seek(ctx context.Context, seconds float64) error {
	if !e.canSeek() {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, permission.VideoSeek)
	}
	if e.loadedID == "" {
		return ErrNoVideo
	}
	if seconds < 0 {
		seconds = 0
	}
	if err := e.player.Seek(seconds); err != nil {
		return err
	}
	e.resetSeekBaseline(seconds)
	e.publishSeek(ctx, seconds)
	return nil
}

func (e *Engine) kick(ctx context.Context, userID string) error {
	if err := e.require(permission.KickMembers); err != nil {
		return err
	}
	if userID == e.userID || userID == e.room.Leader {
		return fmt.Errorf("%w: cannot kick %s", ErrPermissionDenied, userID)
	}
	if !e.room.HasParticipant(userID) {
		return domain.ErrParticipantNotFound
	}

	participants := make([]domain.Participant, 0, len(e.room.Participants))
	for _, p := range e.room.Participants {
		if p.ID != userID {
			participants = append(participants, p)
		}
	}
	err := e.push(ctx, &domain.RoomPatch{Participants: &participants})
	e.view.RenderParticipants(e.room.Participants, e.room.Leader)
	return err
}

// Settings is a leader-only change of room settings. Nil or empty fields are
// left as they are.
type Settings struct {
	Password    *string
	Permissions *domain.Permissions
	// TransferTo hands leadership to another participant.
	TransferTo string
}

func (e *Engine) updateSettings(ctx context.Context, s Settings) error {
	if !e.isLeader {
		return ErrNotLeader
	}

	patch := &domain.RoomPatch{
		Password:    s.Password,
		Permissions: s.Permissions,
	}
	if s.TransferTo != "" && s.TransferTo != e.userID {
		p, _, err := e.room.ParticipantByID(s.TransferTo)
		if err != nil {
			return err
		}
		patch.Leader = &p.ID
		patch.LeaderUsername = &p.Username
	}
	if patch.Empty() {
		return nil
	}

	err := e.push(ctx, patch)
	e.isLeader = e.room.IsLeader(e.userID)
	e.refreshPermissions()
	if patch.Leader != nil {
		e.view.RenderParticipants(e.room.Participants, e.room.Leader)
	}
	return err
}

func (e *Engine) leave(ctx context.Context) error {
	if _, err := e.store.LeaveRoom(ctx, e.roomID, e.userID); err != nil {
		e.logger.WarnContext(ctx, "failed to leave room", "error", err)
	}
	if err := e.player.Stop(); err != nil {
		e.logger.InfoContext(ctx, "failed to stop player", "error", err)
	}
	e.end(nil)
	return nil
}

func (e *Engine) deleteRoom(ctx context.Context) error {
	if !e.isLeader {
		return ErrNotLeader
	}
	if err := e.store.DeleteRoom(ctx, e.roomID); err != nil {
		return err
	}
	if err := e.player.Stop(); err != nil {
		e.logger.InfoContext(ctx, "failed to stop player", "error", err)
	}
	e.end(nil)
	return nil
}

// IsStopped reports whether err means the session is over.
func IsStopped(err error) bool {
	return errors.Is(err, ErrStopped)
}

package reconcile

import (
	"context"
	"log/slog"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/playlist"
)

// View is the presentation side of a session.
type View interface {
	RefreshPermissions(perms domain.Permissions, isLeader bool)
	RenderPlaylist(videos []domain.Video, current int, changes playlist.Changes)
	RenderParticipants(participants []domain.Participant, leader string)
	SetOverlay(visible bool)
	ShowBlankState()
	HideBlankState()
	SetPlaying(playing bool)
	ShowMessage(msg string)
}

// LogView renders by logging. Used for headless sessions.
type LogView struct {
	logger *slog.Logger
}

func NewLogView(logger *slog.Logger) *LogView {
	return &LogView{logger: logger}
}

func (v *LogView) RefreshPermissions(perms domain.Permissions, isLeader bool) {
	v.logger.Info("permissions", "leader", isLeader, "permissions", perms)
}

func (v *LogView) RenderPlaylist(videos []domain.Video, current int, changes playlist.Changes) {
	ctx := context.Background()
	for _, e := range changes.Removed {
		v.logger.InfoContext(ctx, "playlist entry removed", "index", e.Index, "video_id", e.Video.ID)
	}
	for _, e := range changes.Added {
		v.logger.InfoContext(ctx, "playlist entry added", "index", e.Index, "video_id", e.Video.ID, "title", e.Video.Title)
	}
	for _, m := range changes.Moved {
		v.logger.InfoContext(ctx, "playlist entry moved", "video_id", m.ID, "from", m.From, "to", m.To)
	}
	v.logger.InfoContext(ctx, "playlist", "length", len(videos), "current", current)
}

func (v *LogView) RenderParticipants(participants []domain.Participant, leader string) {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Username)
	}
	v.logger.Info("participants", "leader", leader, "usernames", names)
}

func (v *LogView) SetOverlay(visible bool) {
	v.logger.Debug("overlay", "visible", visible)
}

func (v *LogView) ShowBlankState() {
	v.logger.Info("playlist is empty")
}

func (v *LogView) HideBlankState() {}

func (v *LogView) SetPlaying(playing bool) {
	v.logger.Debug("playing", "playing", playing)
}

func (v *LogView) ShowMessage(msg string) {
	v.logger.Info(msg)
}

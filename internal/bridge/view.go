package bridge

import (
	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/playlist"
)

type permissionsPayload struct {
	Permissions domain.Permissions `json:"permissions"`
	IsLeader    bool               `json:"is_leader"`
}

type playlistPayload struct {
	Videos  []domain.Video   `json:"videos"`
	Current int              `json:"current"`
	Added   []playlist.Entry `json:"added,omitempty"`
	Removed []playlist.Entry `json:"removed,omitempty"`
	Moved   []playlist.Move  `json:"moved,omitempty"`
}

type participantsPayload struct {
	Participants []domain.Participant `json:"participants"`
	Leader       string               `json:"leader"`
}

type visiblePayload struct {
	Visible bool `json:"visible"`
}

type playingPayload struct {
	Playing bool `json:"playing"`
}

type messagePayload struct {
	Text string `json:"text"`
}

func (b *Bridge) RefreshPermissions(perms domain.Permissions, isLeader bool) {
	b.send("permissions", permissionsPayload{Permissions: perms, IsLeader: isLeader}, true)
}

func (b *Bridge) RenderPlaylist(videos []domain.Video, current int, changes playlist.Changes) {
	b.send("playlist", playlistPayload{
		Videos:  videos,
		Current: current,
		Added:   changes.Added,
		Removed: changes.Removed,
		Moved:   changes.Moved,
	}, true)
}

func (b *Bridge) RenderParticipants(participants []domain.Participant, leader string) {
	b.send("participants", participantsPayload{Participants: participants, Leader: leader}, true)
}

func (b *Bridge) SetOverlay(visible bool) {
	b.send("overlay", visiblePayload{Visible: visible}, true)
}

func (b *Bridge) ShowBlankState() {
	b.send("blank", visiblePayload{Visible: true}, true)
}

func (b *Bridge) HideBlankState() {
	b.send("blank", visiblePayload{Visible: false}, true)
}

func (b *Bridge) SetPlaying(playing bool) {
	b.send("playing", playingPayload{Playing: playing}, true)
}

func (b *Bridge) ShowMessage(msg string) {
	b.send("message", messagePayload{Text: msg}, false)
}

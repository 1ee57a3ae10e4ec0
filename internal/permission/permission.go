package permission

import (
	"errors"

	"github.com/sharetube/syncwatch/internal/domain"
)

var ErrUnknownAction = errors.New("unknown action")

type Action string

const (
	PlayPause    Action = "playPause"
	VideoSeek    Action = "videoSeek"
	AddVideo     Action = "addVideo"
	RemoveVideo  Action = "removeVideo"
	EditPlaylist Action = "editPlaylist"
	KickMembers  Action = "kickMembers"
)

func Actions() []Action {
	return []Action{PlayPause, VideoSeek, AddVideo, RemoveVideo, EditPlaylist, KickMembers}
}

func Parse(s string) (Action, error) {
	for _, a := range Actions() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", ErrUnknownAction
}

// Allowed reports whether the local user may perform action in room.
// The leader bypasses every check. A room without permissions gets the
// all-false defaults written into it.
func Allowed(action Action, room *domain.Room, isLeader bool) bool {
	if isLeader {
		return true
	}
	if room == nil {
		return false
	}
	if room.Permissions == nil {
		defaults := domain.DefaultPermissions()
		room.Permissions = &defaults
	}

	return Granted(*room.Permissions, action)
}

func Granted(p domain.Permissions, action Action) bool {
	switch action {
	case PlayPause:
		return p.PlayPause
	case VideoSeek:
		return p.VideoSeek
	case AddVideo:
		return p.AddVideo
	case RemoveVideo:
		return p.RemoveVideo
	case EditPlaylist:
		return p.EditPlaylist
	case KickMembers:
		return p.KickMembers
	}
	return false
}

// Set returns p with action toggled to value.
func Set(p domain.Permissions, action Action, value bool) domain.Permissions {
	switch action {
	case PlayPause:
		p.PlayPause = value
	case VideoSeek:
		p.VideoSeek = value
	case AddVideo:
		p.AddVideo = value
	case RemoveVideo:
		p.RemoveVideo = value
	case EditPlaylist:
		p.EditPlaylist = value
	case KickMembers:
		p.KickMembers = value
	}
	return p
}

package domain

import (
	"time"

	"golang.org/x/exp/slices"
)

type VideoState string

const (
	VideoStatePlaying VideoState = "playing"
	VideoStatePaused  VideoState = "paused"
	VideoStateStopped VideoState = "stopped"
)

func (s VideoState) Valid() bool {
	switch s {
	case VideoStatePlaying, VideoStatePaused, VideoStateStopped:
		return true
	}
	return false
}

// Room is the shared resource every participant polls.
type Room struct {
	ID                string        `json:"id" validate:"required"`
	Name              string        `json:"name"`
	Password          string        `json:"password,omitempty"`
	Leader            string        `json:"leader"`
	LeaderUsername    string        `json:"leaderUsername"`
	Participants      []Participant `json:"participants"`
	Playlist          []Video       `json:"playlist"`
	CurrentVideoIndex int           `json:"currentVideoIndex"`
	VideoState        VideoState    `json:"videoState"`
	VideoTime         *float64      `json:"videoTime,omitempty"`
	LastUpdateTime    int64         `json:"lastUpdateTime"`
	Permissions       *Permissions  `json:"permissions,omitempty"`
	IsActive          bool          `json:"isActive"`
	CreatedAt         time.Time     `json:"createdAt"`
	Revision          int64         `json:"revision,omitempty"`
	Origin            string        `json:"origin,omitempty"`
}

type NewRoomParams struct {
	ID             string
	Name           string
	Password       string
	Leader         Participant
	Permissions    Permissions
	CreatedAt      time.Time
	LastUpdateTime int64
}

func NewRoom(params *NewRoomParams) *Room {
	perms := params.Permissions
	return &Room{
		ID:                params.ID,
		Name:              params.Name,
		Password:          params.Password,
		Leader:            params.Leader.ID,
		LeaderUsername:    params.Leader.Username,
		Participants:      []Participant{params.Leader},
		Playlist:          []Video{},
		CurrentVideoIndex: -1,
		VideoState:        VideoStateStopped,
		LastUpdateTime:    params.LastUpdateTime,
		Permissions:       &perms,
		IsActive:          params.Leader.Username != "",
		CreatedAt:         params.CreatedAt,
	}
}

// Normalize restores the index invariant after decoding: the index is -1 iff
// the playlist is empty and otherwise points into it.
func (r *Room) Normalize() {
	if r.Playlist == nil {
		r.Playlist = []Video{}
	}
	if r.Participants == nil {
		r.Participants = []Participant{}
	}
	switch {
	case len(r.Playlist) == 0:
		r.CurrentVideoIndex = -1
	case r.CurrentVideoIndex < 0:
		r.CurrentVideoIndex = 0
	case r.CurrentVideoIndex >= len(r.Playlist):
		r.CurrentVideoIndex = len(r.Playlist) - 1
	}
	if !r.VideoState.Valid() {
		r.VideoState = VideoStateStopped
	}
}

func (r Room) IsLeader(userID string) bool {
	return userID != "" && r.Leader == userID
}

func (r Room) CurrentVideo() (Video, bool) {
	if r.CurrentVideoIndex < 0 || r.CurrentVideoIndex >= len(r.Playlist) {
		return Video{}, false
	}
	return r.Playlist[r.CurrentVideoIndex], true
}

// Clone returns a deep copy so callers can mutate slices freely.
func (r Room) Clone() *Room {
	c := r
	c.Participants = slices.Clone(r.Participants)
	c.Playlist = slices.Clone(r.Playlist)
	if r.VideoTime != nil {
		t := *r.VideoTime
		c.VideoTime = &t
	}
	if r.Permissions != nil {
		p := *r.Permissions
		c.Permissions = &p
	}
	return &c
}

// RoomPatch is a partial update. Nil fields are left untouched.
type RoomPatch struct {
	Name              *string        `json:"name,omitempty"`
	Password          *string        `json:"password,omitempty"`
	Leader            *string        `json:"leader,omitempty"`
	LeaderUsername    *string        `json:"leaderUsername,omitempty"`
	Participants      *[]Participant `json:"participants,omitempty"`
	Playlist          *[]Video       `json:"playlist,omitempty"`
	CurrentVideoIndex *int           `json:"currentVideoIndex,omitempty"`
	VideoState        *VideoState    `json:"videoState,omitempty"`
	VideoTime         *float64       `json:"videoTime,omitempty"`
	LastUpdateTime    *int64         `json:"lastUpdateTime,omitempty"`
	Permissions       *Permissions   `json:"permissions,omitempty"`
	IsActive          *bool          `json:"isActive,omitempty"`
	Revision          *int64         `json:"revision,omitempty"`
	Origin            *string        `json:"origin,omitempty"`
}

func (p RoomPatch) Empty() bool {
	return p == RoomPatch{}
}

// Apply shallow-merges the patch into the room.
func (r *Room) Apply(p *RoomPatch) {
	if p == nil {
		return
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Password != nil {
		r.Password = *p.Password
	}
	if p.Leader != nil {
		r.Leader = *p.Leader
	}
	if p.LeaderUsername != nil {
		r.LeaderUsername = *p.LeaderUsername
	}
	if p.Participants != nil {
		r.Participants = slices.Clone(*p.Participants)
	}
	if p.Playlist != nil {
		r.Playlist = slices.Clone(*p.Playlist)
	}
	if p.CurrentVideoIndex != nil {
		r.CurrentVideoIndex = *p.CurrentVideoIndex
	}
	if p.VideoState != nil {
		r.VideoState = *p.VideoState
	}
	if p.VideoTime != nil {
		t := *p.VideoTime
		r.VideoTime = &t
	}
	if p.LastUpdateTime != nil {
		r.LastUpdateTime = *p.LastUpdateTime
	}
	if p.Permissions != nil {
		perms := *p.Permissions
		r.Permissions = &perms
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	if p.Revision != nil {
		r.Revision = *p.Revision
	}
	if p.Origin != nil {
		r.Origin = *p.Origin
	}
}

// Ptr is a helper for building patches.
func Ptr[T any](v T) *T {
	return &v
}

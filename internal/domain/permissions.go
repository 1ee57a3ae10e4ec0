package domain

// Permissions grant non-leader participants control over the room.
// A missing object on the wire means everything is denied.
type Permissions struct {
	PlayPause    bool `json:"playPause"`
	VideoSeek    bool `json:"videoSeek"`
	AddVideo     bool `json:"addVideo"`
	RemoveVideo  bool `json:"removeVideo"`
	EditPlaylist bool `json:"editPlaylist"`
	KickMembers  bool `json:"kickMembers"`
}

func DefaultPermissions() Permissions {
	return Permissions{}
}

func PermissionsEqual(a, b *Permissions) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

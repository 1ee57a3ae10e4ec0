package playlist

import "github.com/sharetube/syncwatch/internal/domain"

type Entry struct {
	Index int          `json:"index"`
	Video domain.Video `json:"video"`
}

type Move struct {
	ID   string `json:"id"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// Changes is an ordered per-item difference between two playlists. Indexes in
// Removed refer to the old list, all others to the new one.
type Changes struct {
	Added   []Entry
	Removed []Entry
	Moved   []Move
	Updated []Entry
}

func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Moved) == 0 && len(c.Updated) == 0
}

func Diff(old, new []domain.Video) Changes {
	var c Changes

	oldIndex := make(map[string]int, len(old))
	for i, v := range old {
		oldIndex[v.ID] = i
	}
	newIndex := make(map[string]int, len(new))
	for i, v := range new {
		newIndex[v.ID] = i
	}

	for i, v := range old {
		if _, ok := newIndex[v.ID]; !ok {
			c.Removed = append(c.Removed, Entry{Index: i, Video: v})
		}
	}

	var oldCommon, newCommon []string
	for _, v := range old {
		if _, ok := newIndex[v.ID]; ok {
			oldCommon = append(oldCommon, v.ID)
		}
	}
	for i, v := range new {
		oi, ok := oldIndex[v.ID]
		if !ok {
			c.Added = append(c.Added, Entry{Index: i, Video: v})
			continue
		}
		newCommon = append(newCommon, v.ID)
		if old[oi] != v {
			c.Updated = append(c.Updated, Entry{Index: i, Video: v})
		}
	}

	// relative order among surviving entries
	for i := range newCommon {
		if oldCommon[i] != newCommon[i] {
			id := newCommon[i]
			c.Moved = append(c.Moved, Move{ID: id, From: oldIndex[id], To: newIndex[id]})
		}
	}

	return c
}

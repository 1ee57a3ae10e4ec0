package playlist

import (
	"errors"

	"golang.org/x/exp/slices"

	"github.com/sharetube/syncwatch/internal/domain"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrVideoAlreadyExists = errors.New("video already exists")
)

// Playlist is an ordered list of videos plus the index of the current one.
// The index is -1 iff the list is empty.
type Playlist struct {
	videos  []domain.Video
	current int
}

func New(videos []domain.Video, current int) *Playlist {
	p := &Playlist{videos: slices.Clone(videos), current: current}
	p.clampCurrent()
	return p
}

func (p *Playlist) clampCurrent() {
	switch {
	case len(p.videos) == 0:
		p.current = -1
	case p.current < 0:
		p.current = 0
	case p.current >= len(p.videos):
		p.current = len(p.videos) - 1
	}
}

func (p Playlist) Videos() []domain.Video {
	return slices.Clone(p.videos)
}

func (p Playlist) Len() int {
	return len(p.videos)
}

func (p Playlist) Current() int {
	return p.current
}

func (p Playlist) CurrentVideo() (domain.Video, bool) {
	if p.current < 0 {
		return domain.Video{}, false
	}
	return p.videos[p.current], true
}

func (p Playlist) At(index int) (domain.Video, error) {
	if index < 0 || index >= len(p.videos) {
		return domain.Video{}, ErrIndexOutOfRange
	}
	return p.videos[index], nil
}

func (p Playlist) IndexOf(id string) int {
	return slices.IndexFunc(p.videos, func(v domain.Video) bool { return v.ID == id })
}

func (p Playlist) Contains(id string) bool {
	return p.IndexOf(id) >= 0
}

func (p *Playlist) SetCurrent(index int) error {
	if index < 0 || index >= len(p.videos) {
		return ErrIndexOutOfRange
	}
	p.current = index
	return nil
}

// Append adds v to the end. It is a no-op returning false when a video with
// the same id is already present. Appending to an empty list makes the new
// entry current.
func (p *Playlist) Append(v domain.Video) bool {
	if p.Contains(v.ID) {
		return false
	}
	p.videos = append(p.videos, v)
	if p.current < 0 {
		p.current = 0
	}
	return true
}

// Replace swaps the entry with v's id for v, keeping its position.
func (p *Playlist) Replace(v domain.Video) error {
	i := p.IndexOf(v.ID)
	if i < 0 {
		return ErrVideoNotFound
	}
	p.videos[i] = v
	return nil
}

type Removal struct {
	Video      domain.Video
	Index      int
	WasCurrent bool
	Empty      bool
	// LoadTarget is the index that should be loaded next, or -1 when the
	// current video is unaffected or nothing is left.
	LoadTarget int
}

func (p *Playlist) Remove(id string) (Removal, error) {
	i := p.IndexOf(id)
	if i < 0 {
		return Removal{}, ErrVideoNotFound
	}
	return p.RemoveAt(i)
}

func (p *Playlist) RemoveAt(index int) (Removal, error) {
	if index < 0 || index >= len(p.videos) {
		return Removal{}, ErrIndexOutOfRange
	}

	r := Removal{
		Video:      p.videos[index],
		Index:      index,
		WasCurrent: index == p.current,
		LoadTarget: -1,
	}
	p.videos = slices.Delete(p.videos, index, index+1)

	switch {
	case len(p.videos) == 0:
		p.current = -1
		r.Empty = true
	case r.WasCurrent:
		p.current = 0
		r.LoadTarget = 0
	case p.current > index:
		p.current--
	}

	return r, nil
}

// Move relocates the video with id to newPos (clamped into range). The
// current index keeps pointing at the same video.
func (p *Playlist) Move(id string, newPos int) error {
	from := p.IndexOf(id)
	if from < 0 {
		return ErrVideoNotFound
	}
	if newPos < 0 {
		newPos = 0
	}
	if newPos >= len(p.videos) {
		newPos = len(p.videos) - 1
	}
	if from == newPos {
		return nil
	}

	v := p.videos[from]
	p.videos = slices.Delete(p.videos, from, from+1)
	p.videos = slices.Insert(p.videos, newPos, v)

	switch {
	case p.current == from:
		p.current = newPos
	case from < p.current && newPos >= p.current:
		p.current--
	case from > p.current && newPos <= p.current:
		p.current++
	}

	return nil
}

// Skip advances to the next entry, wrapping around. It reports false on an
// empty list.
func (p *Playlist) Skip() (int, bool) {
	if len(p.videos) == 0 {
		return -1, false
	}
	p.current = (p.current + 1) % len(p.videos)
	return p.current, true
}

type ImportResult struct {
	Added   int
	Skipped int
}

// Import appends videos one by one in order, skipping duplicates. onInsert is
// called after every single insertion so callers can render progressively.
func (p *Playlist) Import(videos []domain.Video, onInsert func(v domain.Video, index int)) ImportResult {
	var res ImportResult
	for _, v := range videos {
		if !p.Append(v) {
			res.Skipped++
			continue
		}
		res.Added++
		if onInsert != nil {
			onInsert(v, len(p.videos)-1)
		}
	}
	return res
}

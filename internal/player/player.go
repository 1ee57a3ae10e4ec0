package player

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidVideoID   = errors.New("invalid video id")
	ErrPlaybackFailed   = errors.New("playback failed")
	ErrVideoUnavailable = errors.New("video unavailable")
	ErrNotEmbeddable    = errors.New("video is not embeddable")
)

type State int

const (
	StateUnstarted State = iota
	StatePlaying
	StatePaused
	StateBuffering
	StateEnded
	StateCued
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateEnded:
		return "ended"
	case StateCued:
		return "cued"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Event struct {
	State State
	Err   error
	At    time.Time
}

// Player is everything the sync engine needs from a video player.
type Player interface {
	Load(videoID string) error
	Play() error
	Pause() error
	Stop() error
	// Clear unloads the current video.
	Clear() error
	Seek(seconds float64) error
	SetVolume(volume int) error
	CurrentTime() float64
	State() State
	Events() <-chan Event
}

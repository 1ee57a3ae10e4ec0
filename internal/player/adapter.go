package player

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
)

// Widget state codes as reported by the embeddable player.
const (
	CodeUnstarted = -1
	CodeEnded     = 0
	CodePlaying   = 1
	CodePaused    = 2
	CodeBuffering = 3
	CodeCued      = 5
)

// Widget is the call shape of the third-party embeddable player.
type Widget interface {
	LoadVideoByID(videoID string) error
	PlayVideo() error
	PauseVideo() error
	StopVideo() error
	SeekTo(seconds float64, allowSeekAhead bool) error
	SetVolume(volume int) error
	GetCurrentTime() float64
	GetPlayerState() int
	OnStateChange(func(code int))
	OnError(func(code int))
}

const eventsBuffer = 64

type Adapter struct {
	widget Widget
	clock  clock.Clock
	logger *slog.Logger
	events chan Event
}

func NewAdapter(widget Widget, clk clock.Clock, logger *slog.Logger) *Adapter {
	a := &Adapter{
		widget: widget,
		clock:  clk,
		logger: logger,
		events: make(chan Event, eventsBuffer),
	}
	widget.OnStateChange(func(code int) {
		a.emit(Event{State: StateFromCode(code), At: a.clock.Now()})
	})
	widget.OnError(func(code int) {
		a.emit(Event{State: StateError, Err: ErrorFromCode(code), At: a.clock.Now()})
	})

	return a
}

func (a *Adapter) emit(e Event) {
	select {
	case a.events <- e:
	default:
		a.logger.WarnContext(context.Background(), "player events dropped", "state", e.State.String())
	}
}

func (a *Adapter) Events() <-chan Event {
	return a.events
}

func (a *Adapter) Load(videoID string) error {
	if videoID == "" {
		return ErrInvalidVideoID
	}
	return a.widget.LoadVideoByID(videoID)
}

func (a *Adapter) Play() error {
	return a.widget.PlayVideo()
}

func (a *Adapter) Pause() error {
	return a.widget.PauseVideo()
}

func (a *Adapter) Stop() error {
	return a.widget.StopVideo()
}

func (a *Adapter) Clear() error {
	return a.widget.LoadVideoByID("")
}

func (a *Adapter) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	return a.widget.SeekTo(seconds, true)
}

func (a *Adapter) SetVolume(volume int) error {
	return a.widget.SetVolume(min(max(volume, 0), 100))
}

func (a *Adapter) CurrentTime() float64 {
	return a.widget.GetCurrentTime()
}

func (a *Adapter) State() State {
	return StateFromCode(a.widget.GetPlayerState())
}

func StateFromCode(code int) State {
	switch code {
	case CodeEnded:
		return StateEnded
	case CodePlaying:
		return StatePlaying
	case CodePaused:
		return StatePaused
	case CodeBuffering:
		return StateBuffering
	case CodeCued:
		return StateCued
	}
	return StateUnstarted
}

func CodeFromState(s State) int {
	switch s {
	case StateEnded:
		return CodeEnded
	case StatePlaying:
		return CodePlaying
	case StatePaused:
		return CodePaused
	case StateBuffering:
		return CodeBuffering
	case StateCued:
		return CodeCued
	}
	return CodeUnstarted
}

// ErrorFromCode maps widget error codes.
func ErrorFromCode(code int) error {
	switch code {
	case 2:
		return ErrInvalidVideoID
	case 5:
		return ErrPlaybackFailed
	case 100:
		return ErrVideoUnavailable
	case 101, 150:
		return ErrNotEmbeddable
	}
	return ErrPlaybackFailed
}

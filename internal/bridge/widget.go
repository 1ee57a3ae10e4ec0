package bridge

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/sharetube/syncwatch/internal/player"
)

type loadPayload struct {
	VideoID string `json:"video_id"`
}

type seekPayload struct {
	Seconds        float64 `json:"seconds"`
	AllowSeekAhead bool    `json:"allow_seek_ahead"`
}

type volumePayload struct {
	Volume int `json:"volume"`
}

var _ player.Widget = (*Bridge)(nil)

func (b *Bridge) LoadVideoByID(videoID string) error {
	b.mu.Lock()
	b.videoID = videoID
	b.position = 0
	b.reportedAt = b.clock.Now()
	if videoID == "" {
		b.state = player.CodeUnstarted
	} else {
		b.state = player.CodeBuffering
	}
	b.mu.Unlock()

	b.send("load", loadPayload{VideoID: videoID}, false)
	return nil
}

func (b *Bridge) PlayVideo() error {
	b.setState(player.CodePlaying)
	b.send("play", nil, false)
	return nil
}

func (b *Bridge) PauseVideo() error {
	b.setState(player.CodePaused)
	b.send("pause", nil, false)
	return nil
}

func (b *Bridge) StopVideo() error {
	b.setState(player.CodeUnstarted)
	b.send("stop", nil, false)
	return nil
}

func (b *Bridge) SeekTo(seconds float64, allowSeekAhead bool) error {
	b.mu.Lock()
	b.position = seconds
	b.reportedAt = b.clock.Now()
	b.mu.Unlock()

	b.send("seek", seekPayload{Seconds: seconds, AllowSeekAhead: allowSeekAhead}, false)
	return nil
}

func (b *Bridge) SetVolume(volume int) error {
	b.mu.Lock()
	b.volume = volume
	b.mu.Unlock()

	b.send("volume", volumePayload{Volume: volume}, true)
	return nil
}

func (b *Bridge) GetCurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positionLocked()
}

// positionLocked extrapolates the last reported position while playing.
func (b *Bridge) positionLocked() float64 {
	if b.state != player.CodePlaying {
		return b.position
	}
	return b.position + b.clock.Since(b.reportedAt).Seconds()
}

func (b *Bridge) GetPlayerState() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) OnStateChange(fn func(code int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onState = fn
}

func (b *Bridge) OnError(fn func(code int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

func (b *Bridge) setState(code int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = b.positionLocked()
	b.reportedAt = b.clock.Now()
	b.state = code
}

type stateInput struct {
	Code int     `json:"code"`
	Time float64 `json:"time"`
}

// handleState records a state change reported by the page and forwards it.
func (b *Bridge) handleState(_ context.Context, _ *websocket.Conn, input stateInput) error {
	b.mu.Lock()
	b.state = input.Code
	b.position = input.Time
	b.reportedAt = b.clock.Now()
	fn := b.onState
	b.mu.Unlock()

	if fn != nil {
		fn(input.Code)
	}
	return nil
}

// handleTime is the page's periodic position report.
func (b *Bridge) handleTime(_ context.Context, _ *websocket.Conn, input stateInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = input.Time
	b.reportedAt = b.clock.Now()
	return nil
}

type errorInput struct {
	Code int `json:"code"`
}

func (b *Bridge) handlePlayerError(_ context.Context, _ *websocket.Conn, input errorInput) error {
	b.mu.Lock()
	fn := b.onError
	b.mu.Unlock()

	if fn != nil {
		fn(input.Code)
	}
	return nil
}

package player

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// SimWidget is an in-process Widget whose playhead advances with a clock.
// It autoplays on load like the embeddable player does.
type SimWidget struct {
	mu        sync.Mutex
	clock     clock.Clock
	videoID   string
	code      int
	position  float64
	startedAt time.Time
	volume    int
	durations map[string]time.Duration
	failures  map[string]int
	endTimer  *clock.Timer
	loads     []string

	onState func(int)
	onError func(int)
}

func NewSimWidget(clk clock.Clock) *SimWidget {
	return &SimWidget{
		clock:     clk,
		code:      CodeUnstarted,
		volume:    100,
		durations: make(map[string]time.Duration),
		failures:  make(map[string]int),
	}
}

// SetDuration makes videoID end after d of playback. Zero means endless.
func (w *SimWidget) SetDuration(videoID string, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.durations[videoID] = d
}

// FailWith makes loading videoID report the given error code.
func (w *SimWidget) FailWith(videoID string, code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures[videoID] = code
}

func (w *SimWidget) OnStateChange(fn func(code int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onState = fn
}

func (w *SimWidget) OnError(fn func(code int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

func (w *SimWidget) notifyState(code int) {
	w.mu.Lock()
	fn := w.onState
	w.mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

func (w *SimWidget) notifyError(code int) {
	w.mu.Lock()
	fn := w.onError
	w.mu.Unlock()
	if fn != nil {
		fn(code)
	}
}

// positionLocked returns the playhead, folding in elapsed play time.
func (w *SimWidget) positionLocked() float64 {
	if w.code != CodePlaying {
		return w.position
	}
	return w.position + w.clock.Since(w.startedAt).Seconds()
}

func (w *SimWidget) stopTimerLocked() {
	if w.endTimer != nil {
		w.endTimer.Stop()
		w.endTimer = nil
	}
}

func (w *SimWidget) startLocked() {
	w.stopTimerLocked()
	w.code = CodePlaying
	w.startedAt = w.clock.Now()

	d := w.durations[w.videoID]
	if d <= 0 {
		return
	}
	remaining := d - time.Duration(w.position*float64(time.Second))
	if remaining < 0 {
		remaining = 0
	}
	videoID := w.videoID
	w.endTimer = w.clock.AfterFunc(remaining, func() {
		w.mu.Lock()
		if w.videoID != videoID || w.code != CodePlaying {
			w.mu.Unlock()
			return
		}
		w.position = d.Seconds()
		w.code = CodeEnded
		w.endTimer = nil
		w.mu.Unlock()
		w.notifyState(CodeEnded)
	})
}

func (w *SimWidget) LoadVideoByID(videoID string) error {
	w.mu.Lock()
	w.stopTimerLocked()
	w.videoID = videoID
	w.position = 0
	w.loads = append(w.loads, videoID)

	if videoID == "" {
		w.code = CodeUnstarted
		w.mu.Unlock()
		w.notifyState(CodeUnstarted)
		return nil
	}
	if code, ok := w.failures[videoID]; ok {
		w.code = CodeUnstarted
		w.mu.Unlock()
		w.notifyError(code)
		return nil
	}

	w.startLocked()
	w.mu.Unlock()
	w.notifyState(CodePlaying)
	return nil
}

func (w *SimWidget) PlayVideo() error {
	w.mu.Lock()
	if w.videoID == "" || w.code == CodePlaying {
		w.mu.Unlock()
		return nil
	}
	w.startLocked()
	w.mu.Unlock()
	w.notifyState(CodePlaying)
	return nil
}

func (w *SimWidget) PauseVideo() error {
	w.mu.Lock()
	if w.code != CodePlaying {
		w.mu.Unlock()
		return nil
	}
	w.position = w.positionLocked()
	w.stopTimerLocked()
	w.code = CodePaused
	w.mu.Unlock()
	w.notifyState(CodePaused)
	return nil
}

func (w *SimWidget) StopVideo() error {
	w.mu.Lock()
	w.stopTimerLocked()
	w.position = 0
	w.code = CodeUnstarted
	w.mu.Unlock()
	return nil
}

func (w *SimWidget) SeekTo(seconds float64, _ bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.position = seconds
	if w.code == CodePlaying {
		w.startLocked()
	}
	return nil
}

func (w *SimWidget) SetVolume(volume int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.volume = volume
	return nil
}

func (w *SimWidget) Volume() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.volume
}

func (w *SimWidget) GetCurrentTime() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.positionLocked()
}

func (w *SimWidget) GetPlayerState() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.code
}

func (w *SimWidget) VideoID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.videoID
}

// Loads returns every id passed to LoadVideoByID, in order.
func (w *SimWidget) Loads() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.loads...)
}

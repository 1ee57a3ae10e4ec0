package reconcile

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	PollInterval     time.Duration
	SeekPollInterval time.Duration

	// Remote changes older than these windows are not replayed.
	StateWindow time.Duration
	SeekWindow  time.Duration
	// SeekThreshold is the playhead difference in seconds that counts as a
	// deliberate seek rather than drift.
	SeekThreshold float64

	SyncHold        time.Duration
	SeekHold        time.Duration
	SeekResumeDelay time.Duration
	ActionHold      time.Duration
	StateSettle     time.Duration
	OverlayDelay    time.Duration
	AddingTimeout   time.Duration

	// Guards held after every load, released in this order.
	LoadSyncHold     time.Duration
	LoadAutoPlayHold time.Duration
	LoadSkipHold     time.Duration
	// LoadOverlayDelay is how long after a video switch the overlay is
	// recomputed.
	LoadOverlayDelay time.Duration

	SeekDebounce time.Duration
	UserSeekHold time.Duration

	// MissingRoomPolls is the number of consecutive not-found polls after
	// which the room is considered closed.
	MissingRoomPolls int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:     200 * time.Millisecond,
		SeekPollInterval: 100 * time.Millisecond,
		StateWindow:      2000 * time.Millisecond,
		SeekWindow:       1500 * time.Millisecond,
		SeekThreshold:    1.5,
		SyncHold:         500 * time.Millisecond,
		SeekHold:         1500 * time.Millisecond,
		SeekResumeDelay:  300 * time.Millisecond,
		ActionHold:       time.Second,
		StateSettle:      100 * time.Millisecond,
		OverlayDelay:     100 * time.Millisecond,
		AddingTimeout:    10 * time.Second,
		LoadOverlayDelay: 500 * time.Millisecond,
		LoadSyncHold:     4 * time.Second,
		LoadAutoPlayHold: 5 * time.Second,
		LoadSkipHold:     6 * time.Second,
		SeekDebounce:     300 * time.Millisecond,
		UserSeekHold:     2 * time.Second,
		MissingRoomPolls: 10,
	}
}

var positive = []validation.Rule{validation.Required, validation.Min(time.Millisecond)}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PollInterval, positive...),
		validation.Field(&c.SeekPollInterval, positive...),
		validation.Field(&c.StateWindow, positive...),
		validation.Field(&c.SeekWindow, positive...),
		validation.Field(&c.SeekThreshold, validation.Required, validation.Min(0.0)),
		validation.Field(&c.SyncHold, validation.Min(time.Duration(0))),
		validation.Field(&c.SeekHold, validation.Min(time.Duration(0))),
		validation.Field(&c.ActionHold, validation.Min(time.Duration(0))),
		validation.Field(&c.LoadOverlayDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.LoadSyncHold, validation.Min(time.Duration(0))),
		validation.Field(&c.LoadAutoPlayHold, validation.Min(c.LoadSyncHold)),
		validation.Field(&c.LoadSkipHold, validation.Min(c.LoadAutoPlayHold)),
		validation.Field(&c.MissingRoomPolls, validation.Min(0)),
	)
}

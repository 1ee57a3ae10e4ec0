package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/permission"
	"github.com/sharetube/syncwatch/internal/reconcile"
)

type recordingSession struct {
	room     *domain.Room
	calls    []string
	settings []reconcile.Settings
	left     bool
}

func (s *recordingSession) record(format string, args ...any) error {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
	return nil
}

func (s *recordingSession) Snapshot(context.Context) (*domain.Room, error) {
	return s.room.Clone(), nil
}

func (s *recordingSession) AddVideo(_ context.Context, videoURL string) error {
	return s.record("add %s", videoURL)
}

func (s *recordingSession) ImportPlaylist(_ context.Context, playlistURL string) error {
	return s.record("import %s", playlistURL)
}

func (s *recordingSession) RemoveVideo(_ context.Context, videoID string) error {
	return s.record("remove %s", videoID)
}

func (s *recordingSession) MoveVideo(_ context.Context, videoID string, newPos int) error {
	return s.record("move %s %d", videoID, newPos)
}

func (s *recordingSession) PlayVideo(_ context.Context, index int) error {
	return s.record("play %d", index)
}

func (s *recordingSession) Skip(context.Context) error {
	return s.record("skip")
}

func (s *recordingSession) TogglePlayPause(context.Context) error {
	return s.record("toggle")
}

func (s *recordingSession) Seek(_ context.Context, seconds float64) error {
	return s.record("seek %.1f", seconds)
}

func (s *recordingSession) SetVolume(_ context.Context, volume int) error {
	return s.record("volume %d", volume)
}

func (s *recordingSession) Kick(_ context.Context, userID string) error {
	return s.record("kick %s", userID)
}

func (s *recordingSession) UpdateSettings(_ context.Context, settings reconcile.Settings) error {
	s.settings = append(s.settings, settings)
	return s.record("settings")
}

func (s *recordingSession) Leave(context.Context) error {
	s.left = true
	return s.record("leave")
}

func (s *recordingSession) DeleteRoom(context.Context) error {
	return reconcile.ErrNotLeader
}

func newRecordingSession() *recordingSession {
	perms := domain.Permissions{AddVideo: true}
	return &recordingSession{room: &domain.Room{
		ID:             "abc123",
		Name:           "movie night",
		Leader:         "u1",
		LeaderUsername: "alice",
		Participants:   []domain.Participant{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}},
		Playlist: []domain.Video{
			domain.FallbackVideo("dQw4w9WgXcQ"),
			domain.FallbackVideo("9bZkp7q19f0"),
		},
		CurrentVideoIndex: 1,
		VideoState:        domain.VideoStatePlaying,
		Permissions:       &perms,
	}}
}

func TestConsoleDispatch(t *testing.T) {
	s := newRecordingSession()
	c := newConsole(s, nil, &bytes.Buffer{})
	ctx := context.Background()

	lines := []string{
		"add https://youtu.be/dQw4w9WgXcQ",
		"import https://www.youtube.com/playlist?list=PL123",
		"remove dQw4w9WgXcQ",
		"move 9bZkp7q19f0 0",
		"play 1",
		"SKIP",
		"toggle",
		"seek 42.5",
		"volume 30",
		"kick u2",
		"",
	}
	for _, line := range lines {
		require.NoError(t, c.exec(ctx, line), line)
	}

	assert.Equal(t, []string{
		"add https://youtu.be/dQw4w9WgXcQ",
		"import https://www.youtube.com/playlist?list=PL123",
		"remove dQw4w9WgXcQ",
		"move 9bZkp7q19f0 0",
		"play 1",
		"skip",
		"toggle",
		"seek 42.5",
		"volume 30",
		"kick u2",
	}, s.calls)
}

func TestConsoleRejectsBadInput(t *testing.T) {
	s := newRecordingSession()
	c := newConsole(s, nil, &bytes.Buffer{})
	ctx := context.Background()

	for _, line := range []string{
		"add",
		"move abc",
		"play first",
		"seek -3",
		"volume 101",
		"perm dance on",
		"perm addVideo maybe",
	} {
		assert.Error(t, c.exec(ctx, line), line)
	}
	assert.ErrorIs(t, c.exec(ctx, "rewind"), ErrUnknownCommand)
	assert.ErrorIs(t, c.exec(ctx, "perm dance on"), permission.ErrUnknownAction)
	assert.ErrorIs(t, c.exec(ctx, "delete"), reconcile.ErrNotLeader)
	assert.Empty(t, s.calls)
}

func TestConsoleSettings(t *testing.T) {
	s := newRecordingSession()
	c := newConsole(s, nil, &bytes.Buffer{})
	ctx := context.Background()

	require.NoError(t, c.exec(ctx, "perm kickMembers on"))
	require.NoError(t, c.exec(ctx, "perm addVideo off"))
	require.NoError(t, c.exec(ctx, "password open sesame"))
	require.NoError(t, c.exec(ctx, "password"))
	require.NoError(t, c.exec(ctx, "transfer u2"))
	require.Len(t, s.settings, 5)

	// permissions are derived from the snapshot, which the fake never changes
	require.NotNil(t, s.settings[0].Permissions)
	assert.Equal(t, domain.Permissions{AddVideo: true, KickMembers: true}, *s.settings[0].Permissions)
	require.NotNil(t, s.settings[1].Permissions)
	assert.Equal(t, domain.Permissions{}, *s.settings[1].Permissions)

	require.NotNil(t, s.settings[2].Password)
	assert.Equal(t, "open sesame", *s.settings[2].Password)
	require.NotNil(t, s.settings[3].Password)
	assert.Empty(t, *s.settings[3].Password)

	assert.Equal(t, "u2", s.settings[4].TransferTo)
}

func TestConsoleStatus(t *testing.T) {
	s := newRecordingSession()
	var out bytes.Buffer
	c := newConsole(s, nil, &out)

	require.NoError(t, c.exec(context.Background(), "status"))
	text := out.String()
	assert.Contains(t, text, "movie night (abc123)")
	assert.Contains(t, text, "bob")
	assert.Contains(t, text, "> 1")
	assert.Regexp(t, `perm\s+addVideo\s+true`, text)
	assert.Regexp(t, `perm\s+playPause\s+false`, text)
}

func TestConsoleRun(t *testing.T) {
	s := newRecordingSession()
	var out bytes.Buffer
	in := strings.NewReader("help\nskip\nrewind\nleave\n")
	c := newConsole(s, in, &out)

	c.run(context.Background())
	assert.Equal(t, []string{"skip", "leave"}, s.calls)
	assert.True(t, s.left)
	assert.Contains(t, out.String(), "commands:")
	assert.Contains(t, out.String(), "error: "+ErrUnknownCommand.Error())
}

func TestConsoleRunStopsWithContext(t *testing.T) {
	pr, pw := io.Pipe()
	c := newConsole(newRecordingSession(), pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop")
	}

	_, err := pw.Write([]byte("skip\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

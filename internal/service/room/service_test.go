package room

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/syncwatch/internal/domain"
	roomRedis "github.com/sharetube/syncwatch/internal/repository/room/redis"
	"github.com/sharetube/syncwatch/pkg/ytvideodata"
)

type fakeVideoData struct {
	titles      map[string]string
	playlist    *ytvideodata.PlaylistData
	playlistErr error
}

func (f fakeVideoData) Get(_ context.Context, videoId string) (*ytvideodata.VideoData, error) {
	title, ok := f.titles[videoId]
	if !ok {
		return nil, ytvideodata.ErrVideoNotFound
	}
	return &ytvideodata.VideoData{Title: title, AuthorName: "channel " + videoId}, nil
}

func (f fakeVideoData) GetPlaylist(_ context.Context, _ string, limit int) (*ytvideodata.PlaylistData, error) {
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	data := *f.playlist
	if len(data.VideoIDs) > limit {
		data.VideoIDs = data.VideoIDs[:limit]
	}
	return &data, nil
}

func newTestService(t *testing.T, videoData fakeVideoData) (*service, *clock.Mock) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewMock()
	clk.Set(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	roomRepo := roomRedis.NewRepo(rc, logger, 48*time.Hour)
	return NewService(roomRepo, videoData, clk, logger, &Config{
		PlaylistLimit:   3,
		MetadataWorkers: 4,
		RoomMaxAge:      24 * time.Hour,
	}), clk
}

func newRoom(id string, participants ...domain.Participant) domain.Room {
	rm := domain.NewRoom(&domain.NewRoomParams{
		ID:     id,
		Name:   "room " + id,
		Leader: participants[0],
	})
	rm.Participants = participants
	return *rm
}

var (
	alice = domain.Participant{ID: "user_a", Username: "alice"}
	bob   = domain.Participant{ID: "user_b", Username: "bob"}
)

func TestCreateRoom(t *testing.T) {
	s, clk := newTestService(t, fakeVideoData{})
	ctx := context.Background()

	resp, err := s.CreateRoom(ctx, &CreateRoomParams{Room: newRoom("room_1", alice)})
	require.NoError(t, err)
	assert.Equal(t, "room_1", resp.RoomID)

	rm, err := s.GetRoom(ctx, "room_1")
	require.NoError(t, err)
	assert.True(t, rm.CreatedAt.Equal(clk.Now()))
	assert.Equal(t, "alice", rm.LeaderUsername)

	_, err = s.CreateRoom(ctx, &CreateRoomParams{Room: newRoom("room_1", bob)})
	assert.ErrorIs(t, err, ErrRoomAlreadyExists)

	_, err = s.GetRoom(ctx, "room_2")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetRoomsReturnsActiveOnly(t *testing.T) {
	s, _ := newTestService(t, fakeVideoData{})
	ctx := context.Background()

	inactive := newRoom("room_2", bob)
	inactive.IsActive = false
	for _, rm := range []domain.Room{newRoom("room_1", alice), inactive} {
		_, err := s.CreateRoom(ctx, &CreateRoomParams{Room: rm})
		require.NoError(t, err)
	}

	rooms, err := s.GetRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "room_1", rooms[0].ID)

	health, err := s.GetHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Health{Status: "healthy", RoomsCount: 2}, health)
}

func TestUpdateRoomMergesPatch(t *testing.T) {
	s, _ := newTestService(t, fakeVideoData{})
	ctx := context.Background()
	_, err := s.CreateRoom(ctx, &CreateRoomParams{Room: newRoom("room_1", alice)})
	require.NoError(t, err)

	playing := domain.VideoStatePlaying
	err = s.UpdateRoom(ctx, &UpdateRoomParams{
		RoomID: "room_1",
		Patch: &domain.RoomPatch{
			VideoState:     &playing,
			VideoTime:      domain.Ptr(12.5),
			LastUpdateTime: domain.Ptr(int64(1000)),
		},
	})
	require.NoError(t, err)

	rm, err := s.GetRoom(ctx, "room_1")
	require.NoError(t, err)
	assert.Equal(t, domain.VideoStatePlaying, rm.VideoState)
	require.NotNil(t, rm.VideoTime)
	assert.Equal(t, 12.5, *rm.VideoTime)
	assert.Equal(t, int64(1000), rm.LastUpdateTime)
	assert.Equal(t, "room room_1", rm.Name)
	assert.Equal(t, "user_a", rm.Leader)

	err = s.UpdateRoom(ctx, &UpdateRoomParams{RoomID: "room_2", Patch: &domain.RoomPatch{}})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveRoom(t *testing.T) {
	s, _ := newTestService(t, fakeVideoData{})
	ctx := context.Background()
	_, err := s.CreateRoom(ctx, &CreateRoomParams{Room: newRoom("room_1", alice, bob)})
	require.NoError(t, err)

	rm, err := s.LeaveRoom(ctx, &LeaveRoomParams{RoomID: "room_1", UserID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, rm.Leader)
	assert.Equal(t, "bob", rm.LeaderUsername)
	assert.True(t, rm.IsActive)

	rm, err = s.LeaveRoom(ctx, &LeaveRoomParams{RoomID: "room_1", UserID: "user_x"})
	require.NoError(t, err)
	assert.Len(t, rm.Participants, 1)

	rm, err = s.LeaveRoom(ctx, &LeaveRoomParams{RoomID: "room_1", UserID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, rm.Participants)
	assert.False(t, rm.IsActive)

	_, err = s.LeaveRoom(ctx, &LeaveRoomParams{RoomID: "room_2", UserID: bob.ID})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRemoveRoom(t *testing.T) {
	s, _ := newTestService(t, fakeVideoData{})
	ctx := context.Background()
	_, err := s.CreateRoom(ctx, &CreateRoomParams{Room: newRoom("room_1", alice)})
	require.NoError(t, err)

	require.NoError(t, s.RemoveRoom(ctx, "room_1"))
	assert.ErrorIs(t, s.RemoveRoom(ctx, "room_1"), ErrRoomNotFound)
}

func TestGetVideoMetadata(t *testing.T) {
	s, _ := newTestService(t, fakeVideoData{titles: map[string]string{"dQw4w9WgXcQ": "Never Gonna"}})
	ctx := context.Background()

	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	metadata, err := s.GetVideoMetadata(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, domain.VideoMetadata{
		VideoID:   "dQw4w9WgXcQ",
		Title:     "Never Gonna",
		Uploader:  "channel dQw4w9WgXcQ",
		Thumbnail: "https://img.youtube.com/vi/dQw4w9WgXcQ/mqdefault.jpg",
		URL:       url,
	}, metadata)

	metadata, err = s.GetVideoMetadata(ctx, "https://youtu.be/aaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "Video aaaaaaaaaaa", metadata.Title)
	assert.Equal(t, "Unknown Channel", metadata.Uploader)

	_, err = s.GetVideoMetadata(ctx, "https://example.com/video")
	assert.ErrorIs(t, err, ErrInvalidVideoURL)
}

func TestGetPlaylistMetadata(t *testing.T) {
	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc", "ddddddddddd"}
	s, _ := newTestService(t, fakeVideoData{
		titles:   map[string]string{"bbbbbbbbbbb": "second"},
		playlist: &ytvideodata.PlaylistData{ID: "list", Title: "mix", VideoIDs: ids},
	})
	ctx := context.Background()

	metadata, err := s.GetPlaylistMetadata(ctx, &GetPlaylistMetadataParams{PlaylistID: "PL0123456789012345678901234567890a"})
	require.NoError(t, err)
	assert.Equal(t, "PL0123456789012345678901234567890a", metadata.PlaylistID)
	assert.Equal(t, "mix", metadata.Title)
	require.Len(t, metadata.Videos, 3)
	for i, video := range metadata.Videos {
		assert.Equal(t, ids[i], video.VideoID)
	}
	assert.Equal(t, "second", metadata.Videos[1].Title)
	assert.Equal(t, "Video ccccccccccc", metadata.Videos[2].Title)

	_, err = s.GetPlaylistMetadata(ctx, &GetPlaylistMetadataParams{URL: "https://www.youtube.com/watch?v=aaaaaaaaaaa"})
	assert.ErrorIs(t, err, ErrInvalidPlaylistURL)
}

func TestGetPlaylistMetadataUnavailable(t *testing.T) {
	s, _ := newTestService(t, fakeVideoData{playlistErr: ytvideodata.ErrPlaylistNotFound})

	_, err := s.GetPlaylistMetadata(context.Background(), &GetPlaylistMetadataParams{
		URL: "https://www.youtube.com/playlist?list=PL0123456789012345678901234567890a",
	})
	assert.ErrorIs(t, err, ErrPlaylistUnavailable)
	assert.ErrorIs(t, err, ytvideodata.ErrPlaylistNotFound)
}

func TestCleanup(t *testing.T) {
	s, clk := newTestService(t, fakeVideoData{})
	ctx := context.Background()

	old := newRoom("room_old", alice)
	old.CreatedAt = clk.Now().Add(-25 * time.Hour)
	empty := newRoom("room_empty", bob)
	empty.Participants = nil
	for _, rm := range []domain.Room{old, empty, newRoom("room_fresh", alice)} {
		_, err := s.CreateRoom(ctx, &CreateRoomParams{Room: rm})
		require.NoError(t, err)
	}

	removed, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = s.GetRoom(ctx, "room_fresh")
	assert.NoError(t, err)
	_, err = s.GetRoom(ctx, "room_old")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = s.GetRoom(ctx, "room_empty")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

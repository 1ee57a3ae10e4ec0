package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/repository/room"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })
	return NewRepo(rc, slog.New(slog.NewTextHandler(io.Discard, nil)), 24*time.Hour), s
}

func testRoom(id string) *domain.Room {
	return domain.NewRoom(&domain.NewRoomParams{
		ID:     id,
		Name:   "movie night",
		Leader: domain.Participant{ID: "user_a", Username: "alice"},
	})
}

func TestSetAndGetRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_1")}))
	assert.Equal(t, 24*time.Hour, s.TTL("room:room_1"))

	got, err := r.GetRoom(ctx, "room_1")
	require.NoError(t, err)
	assert.Equal(t, "movie night", got.Name)
	assert.Equal(t, -1, got.CurrentVideoIndex)
	assert.Equal(t, "user_a", got.Leader)

	err = r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_1")})
	assert.ErrorIs(t, err, room.ErrRoomAlreadyExists)

	_, err = r.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdateRoomKeepsExpiry(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_1")}))
	s.FastForward(time.Hour)

	updated, err := r.UpdateRoom(ctx, &room.UpdateRoomParams{
		RoomID: "room_1",
		Update: func(rm *domain.Room) error {
			rm.Name = "renamed"
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, 23*time.Hour, s.TTL("room:room_1"))

	got, err := r.GetRoom(ctx, "room_1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestUpdateRoomAborts(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_1")}))

	errAbort := errors.New("abort")
	_, err := r.UpdateRoom(ctx, &room.UpdateRoomParams{
		RoomID: "room_1",
		Update: func(rm *domain.Room) error {
			rm.Name = "lost"
			return errAbort
		},
	})
	assert.ErrorIs(t, err, errAbort)

	got, err := r.GetRoom(ctx, "room_1")
	require.NoError(t, err)
	assert.Equal(t, "movie night", got.Name)

	_, err = r.UpdateRoom(ctx, &room.UpdateRoomParams{
		RoomID: "missing",
		Update: func(*domain.Room) error { return nil },
	})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestGetRoomsPrunesExpired(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_1")}))
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_2")}))

	s.FastForward(25 * time.Hour)
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_3")}))

	rooms, err := r.GetRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "room_3", rooms[0].ID)

	members, err := s.SMembers("rooms")
	require.NoError(t, err)
	assert.Equal(t, []string{"room_3"}, members)
}

func TestRemoveRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{Room: testRoom("room_1")}))

	require.NoError(t, r.RemoveRoom(ctx, "room_1"))
	assert.False(t, s.Exists("room:room_1"))

	assert.ErrorIs(t, r.RemoveRoom(ctx, "room_1"), room.ErrRoomNotFound)
}

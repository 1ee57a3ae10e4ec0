package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/syncwatch/internal/domain"
	roomRedis "github.com/sharetube/syncwatch/internal/repository/room/redis"
	"github.com/sharetube/syncwatch/internal/service/room"
	"github.com/sharetube/syncwatch/pkg/ytvideodata"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Never Gonna","author_name":"Rick"}`)
	}))
	t.Cleanup(site.Close)

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roomService := room.NewService(
		roomRedis.NewRepo(rc, logger, 24*time.Hour),
		ytvideodata.New(&ytvideodata.Config{BaseURL: site.URL}),
		nil,
		logger,
		&room.Config{PlaylistLimit: 50, MetadataWorkers: 4, RoomMaxAge: 24 * time.Hour},
	)

	srv := httptest.NewServer(NewController(roomService, logger).GetMux())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, method, url string, body any, dst any) int {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func createRoom(t *testing.T, srv *httptest.Server, id string, participants ...domain.Participant) {
	t.Helper()
	rm := domain.NewRoom(&domain.NewRoomParams{ID: id, Name: "room " + id, Leader: participants[0]})
	rm.Participants = participants

	var resp domain.CreateRoomResponse
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, srv.URL+"/api/rooms", rm, &resp))
	assert.Equal(t, domain.CreateRoomResponse{Success: true, RoomID: id}, resp)
}

var (
	alice = domain.Participant{ID: "user_a", Username: "alice"}
	bob   = domain.Participant{ID: "user_b", Username: "bob"}
)

func TestRoomLifecycle(t *testing.T) {
	srv := newTestServer(t)
	createRoom(t, srv, "room_1", alice, bob)

	var errResp domain.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, srv.URL+"/api/rooms", domain.Room{ID: "room_1"}, &errResp))
	assert.Equal(t, room.ErrRoomAlreadyExists.Error(), errResp.Error)

	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, srv.URL+"/api/rooms", domain.Room{Name: "no id"}, &errResp))
	assert.Equal(t, "id is required", errResp.Error)

	var success domain.SuccessResponse
	patch := domain.RoomPatch{VideoState: domain.Ptr(domain.VideoStatePaused), VideoTime: domain.Ptr(30.0)}
	assert.Equal(t, http.StatusOK, call(t, http.MethodPut, srv.URL+"/api/rooms/room_1", patch, &success))
	assert.True(t, success.Success)

	var rm domain.Room
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+"/api/rooms/room_1", nil, &rm))
	assert.Equal(t, domain.VideoStatePaused, rm.VideoState)
	require.NotNil(t, rm.VideoTime)
	assert.Equal(t, 30.0, *rm.VideoTime)
	assert.Equal(t, "room room_1", rm.Name)

	var rooms []domain.Room
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+"/api/rooms", nil, &rooms))
	require.Len(t, rooms, 1)

	assert.Equal(t, http.StatusOK, call(t, http.MethodDelete, srv.URL+"/api/rooms/room_1", nil, &success))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, srv.URL+"/api/rooms/room_1", nil, &errResp))
	assert.Equal(t, "room not found", errResp.Error)
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodDelete, srv.URL+"/api/rooms/room_1", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodPut, srv.URL+"/api/rooms/room_1", patch, nil))
}

func TestLeaveRoom(t *testing.T) {
	srv := newTestServer(t)
	createRoom(t, srv, "room_1", alice, bob)

	var errResp domain.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, srv.URL+"/api/rooms/room_1/leave", domain.LeaveRoomRequest{}, &errResp))
	assert.Equal(t, "userId is required", errResp.Error)

	assert.Equal(t, http.StatusNotFound, call(t, http.MethodPost, srv.URL+"/api/rooms/room_2/leave", domain.LeaveRoomRequest{UserID: alice.ID}, nil))

	var resp domain.LeaveRoomResponse
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, srv.URL+"/api/rooms/room_1/leave", domain.LeaveRoomRequest{UserID: alice.ID}, &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Room)
	assert.Equal(t, bob.ID, resp.Room.Leader)
	assert.Equal(t, "bob", resp.Room.LeaderUsername)
	assert.True(t, resp.Room.IsActive)

	require.Equal(t, http.StatusOK, call(t, http.MethodPost, srv.URL+"/api/rooms/room_1/leave", domain.LeaveRoomRequest{UserID: bob.ID}, &resp))
	assert.False(t, resp.Room.IsActive)

	var rooms []domain.Room
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+"/api/rooms", nil, &rooms))
	assert.Empty(t, rooms)
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t)
	createRoom(t, srv, "room_1", alice)

	var errResp domain.ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, call(t, http.MethodPut, srv.URL+"/api/rooms/room_1", `{"name":`, &errResp))
	assert.Equal(t, "body contains badly-formed JSON", errResp.Error)
}

func TestVideoMetadata(t *testing.T) {
	srv := newTestServer(t)

	var metadata domain.VideoMetadata
	url := "https://youtu.be/dQw4w9WgXcQ"
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, srv.URL+"/api/video/metadata", domain.VideoMetadataRequest{URL: url}, &metadata))
	assert.Equal(t, "dQw4w9WgXcQ", metadata.VideoID)
	assert.Equal(t, "Never Gonna", metadata.Title)
	assert.Equal(t, "Rick", metadata.Uploader)
	assert.Equal(t, url, metadata.URL)

	var errResp domain.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, srv.URL+"/api/video/metadata", domain.VideoMetadataRequest{URL: "https://example.com"}, &errResp))
	assert.Equal(t, room.ErrInvalidVideoURL.Error(), errResp.Error)

	assert.Equal(t, http.StatusBadRequest, call(t, http.MethodPost, srv.URL+"/api/playlist/metadata", domain.PlaylistMetadataRequest{URL: "https://example.com"}, &errResp))
	assert.Equal(t, room.ErrInvalidPlaylistURL.Error(), errResp.Error)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	createRoom(t, srv, "room_1", alice)

	for _, path := range []string{"/health", "/api/health"} {
		var health domain.Health
		require.Equal(t, http.StatusOK, call(t, http.MethodGet, srv.URL+path, nil, &health))
		assert.Equal(t, domain.Health{Status: "healthy", RoomsCount: 1}, health)
	}
}

package roomstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sharetube/syncwatch/internal/domain"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomExists        = errors.New("room already exists")
	ErrUnavailable       = errors.New("room store unavailable")
	ErrMalformedResponse = errors.New("malformed room store response")
)

// StatusError is returned for non-2xx responses without a dedicated sentinel.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("room store responded with status %d", e.Code)
	}
	return fmt.Sprintf("room store responded with status %d: %s", e.Code, e.Message)
}

type ClientConfig struct {
	// BaseURL including the api prefix, e.g. http://localhost:8080/api.
	BaseURL string
	Timeout time.Duration
}

// Client talks to the room store REST API.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func roomPath(roomID string) string {
	return "/rooms/" + url.PathEscape(roomID)
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e domain.ErrorResponse
		_ = json.Unmarshal(raw, &e)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrRoomNotFound
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: %w", ErrUnavailable, &StatusError{Code: resp.StatusCode, Message: e.Error})
		default:
			return &StatusError{Code: resp.StatusCode, Message: e.Error}
		}
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return nil
}

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].Normalize()
	}
	return rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, room *domain.Room) error {
	var resp domain.CreateRoomResponse
	err := c.do(ctx, http.MethodPost, "/rooms", room, &resp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest {
		return fmt.Errorf("%w: %w", ErrRoomExists, err)
	}
	return err
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	if err := c.do(ctx, http.MethodGet, roomPath(roomID), nil, &room); err != nil {
		return nil, err
	}
	if room.ID == "" {
		return nil, fmt.Errorf("%w: room without id", ErrMalformedResponse)
	}
	room.Normalize()
	return &room, nil
}

func (c *Client) UpdateRoom(ctx context.Context, roomID string, patch *domain.RoomPatch) error {
	return c.do(ctx, http.MethodPut, roomPath(roomID), patch, nil)
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodDelete, roomPath(roomID), nil, nil)
}

func (c *Client) LeaveRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	var resp domain.LeaveRoomResponse
	if err := c.do(ctx, http.MethodPost, roomPath(roomID)+"/leave", &domain.LeaveRoomRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	if resp.Room != nil {
		resp.Room.Normalize()
	}
	return resp.Room, nil
}

func (c *Client) VideoMetadata(ctx context.Context, videoURL string) (domain.VideoMetadata, error) {
	var resp domain.VideoMetadata
	if err := c.do(ctx, http.MethodPost, "/video/metadata", &domain.VideoMetadataRequest{URL: videoURL}, &resp); err != nil {
		return domain.VideoMetadata{}, err
	}
	return resp, nil
}

func (c *Client) PlaylistMetadata(ctx context.Context, playlistURL, playlistID string) (domain.PlaylistMetadata, error) {
	var resp domain.PlaylistMetadata
	req := &domain.PlaylistMetadataRequest{URL: playlistURL, PlaylistID: playlistID}
	if err := c.do(ctx, http.MethodPost, "/playlist/metadata", req, &resp); err != nil {
		return domain.PlaylistMetadata{}, err
	}
	return resp, nil
}

func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var resp domain.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return domain.Health{}, err
	}
	return resp, nil
}

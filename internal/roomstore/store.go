package roomstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/syncwatch/internal/domain"
)

type Config struct {
	LoadRetries    int
	LoadRetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		LoadRetries:    3,
		LoadRetryDelay: time.Second,
	}
}

// Store is the room store as seen by a client session: the remote API with
// the local copy as fallback for reads and writes.
type Store struct {
	remote *Client
	local  *LocalStore
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config
}

func NewStore(remote *Client, local *LocalStore, clk clock.Clock, logger *slog.Logger, cfg Config) *Store {
	if cfg.LoadRetries < 1 {
		cfg.LoadRetries = 1
	}
	return &Store{
		remote: remote,
		local:  local,
		clock:  clk,
		logger: logger,
		cfg:    cfg,
	}
}

func (s *Store) Local() *LocalStore {
	return s.local
}

// Fetch performs a single snapshot read for polling. It never falls back.
func (s *Store) Fetch(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.remote.GetRoom(ctx, roomID)
}

// LoadRoom fetches the room for entering a session. Failed attempts are
// retried; when the store answers but not with the room, the local copy is
// tried before retrying.
func (s *Store) LoadRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.LoadRetries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.cfg.LoadRetryDelay); err != nil {
				return nil, err
			}
		}

		room, err := s.remote.GetRoom(ctx, roomID)
		if err == nil {
			if err := s.local.SaveRoom(room); err != nil {
				s.logger.WarnContext(ctx, "failed to cache room locally", "error", err)
			}
			return room, nil
		}
		lastErr = err
		s.logger.InfoContext(ctx, "failed to load room", "attempt", attempt+1, "error", err)

		if !answered(err) {
			continue
		}

		room, localErr := s.local.Room(roomID)
		if localErr == nil {
			s.logger.InfoContext(ctx, "room loaded from local store")
			return room, nil
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrRoomNotFound, lastErr)
}

// answered reports whether the store produced a response at all.
func answered(err error) bool {
	var statusErr *StatusError
	return errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrMalformedResponse) || errors.As(err, &statusErr)
}

func (s *Store) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.remote.ListRooms(ctx)
	if err == nil {
		return rooms, nil
	}
	s.logger.WarnContext(ctx, "failed to list rooms, using local store", "error", err)

	local, localErr := s.local.Rooms()
	if localErr != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", errors.Join(err, localErr))
	}
	active := make([]domain.Room, 0, len(local))
	for _, r := range local {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	err := s.remote.CreateRoom(ctx, room)
	if err == nil || errors.Is(err, ErrRoomExists) {
		return err
	}
	s.logger.WarnContext(ctx, "failed to create room, using local store", "error", err)

	if err := s.local.SaveRoom(room); err != nil {
		return fmt.Errorf("failed to save room locally: %w", err)
	}
	return nil
}

// UpdateRoom pushes a partial update. When the store cannot be reached the
// patch is applied to the local copy instead.
func (s *Store) UpdateRoom(ctx context.Context, roomID string, patch *domain.RoomPatch) error {
	err := s.remote.UpdateRoom(ctx, roomID, patch)
	if err == nil {
		return nil
	}
	s.logger.WarnContext(ctx, "failed to update room, using local store", "error", err)

	if localErr := s.local.UpdateRoom(roomID, patch); localErr != nil {
		return fmt.Errorf("failed to update room: %w", errors.Join(err, localErr))
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	err := s.remote.DeleteRoom(ctx, roomID)
	if localErr := s.local.DeleteRoom(roomID); localErr != nil {
		s.logger.WarnContext(ctx, "failed to delete local room", "error", localErr)
	}
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}

func (s *Store) LeaveRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	room, err := s.remote.LeaveRoom(ctx, roomID, userID)
	if err == nil {
		return room, nil
	}
	if errors.Is(err, ErrRoomNotFound) {
		return nil, err
	}
	s.logger.WarnContext(ctx, "failed to leave room, using local store", "error", err)

	room, localErr := s.local.LeaveRoom(roomID, userID)
	if localErr != nil {
		return nil, fmt.Errorf("failed to leave room: %w", errors.Join(err, localErr))
	}
	return room, nil
}

func (s *Store) VideoMetadata(ctx context.Context, videoURL string) (domain.VideoMetadata, error) {
	return s.remote.VideoMetadata(ctx, videoURL)
}

func (s *Store) PlaylistMetadata(ctx context.Context, playlistURL, playlistID string) (domain.PlaylistMetadata, error) {
	return s.remote.PlaylistMetadata(ctx, playlistURL, playlistID)
}

// CheckHealth logs the store's health. Failures are never returned.
func (s *Store) CheckHealth(ctx context.Context) {
	h, err := s.remote.Health(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "room store health check failed", "error", err)
		return
	}
	s.logger.DebugContext(ctx, "room store healthy", "status", h.Status, "rooms_count", h.RoomsCount)
}

package roomstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"golang.org/x/exp/slices"

	"github.com/sharetube/syncwatch/internal/domain"
)

var (
	roomsKey = []byte("youtubeRooms")
	userKey  = []byte("currentUser")
)

// LocalStore keeps the fallback copy of rooms and the local identity in a
// Pebble database. All rooms live as one JSON array under a fixed key. A nil
// *LocalStore is valid and stores nothing.
type LocalStore struct {
	db *pebble.DB
	mu sync.Mutex
}

// OpenLocal opens the store at dir. fs may be nil for the real filesystem.
func OpenLocal(dir string, fs vfs.FS) (*LocalStore, error) {
	if dir == "" {
		return nil, nil
	}
	if fs == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{FS: fs})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	return &LocalStore{db: db}, nil
}

func (s *LocalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *LocalStore) get(key []byte) ([]byte, bool, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	return slices.Clone(value), true, nil
}

func (s *LocalStore) readRooms() ([]domain.Room, error) {
	raw, ok, err := s.get(roomsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read rooms: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var rooms []domain.Room
	if err := json.Unmarshal(raw, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return rooms, nil
}

func (s *LocalStore) writeRooms(rooms []domain.Room) error {
	raw, err := json.Marshal(rooms)
	if err != nil {
		return err
	}
	return s.db.Set(roomsKey, raw, pebble.Sync)
}

func (s *LocalStore) Rooms() ([]domain.Room, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.readRooms()
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].Normalize()
	}
	return rooms, nil
}

func (s *LocalStore) Room(roomID string) (*domain.Room, error) {
	rooms, err := s.Rooms()
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if rooms[i].ID == roomID {
			return &rooms[i], nil
		}
	}
	return nil, ErrRoomNotFound
}

// SaveRoom inserts or replaces the room with the same id.
func (s *LocalStore) SaveRoom(room *domain.Room) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.readRooms()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(rooms, func(r domain.Room) bool { return r.ID == room.ID })
	if i >= 0 {
		rooms[i] = *room
	} else {
		rooms = append(rooms, *room)
	}
	return s.writeRooms(rooms)
}

func (s *LocalStore) UpdateRoom(roomID string, patch *domain.RoomPatch) error {
	return s.modify(roomID, func(r *domain.Room) error {
		r.Apply(patch)
		return nil
	})
}

func (s *LocalStore) LeaveRoom(roomID, userID string) (*domain.Room, error) {
	var out *domain.Room
	err := s.modify(roomID, func(r *domain.Room) error {
		if err := r.Leave(userID); err != nil {
			return err
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

func (s *LocalStore) modify(roomID string, fn func(*domain.Room) error) error {
	if s == nil || s.db == nil {
		return ErrRoomNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.readRooms()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(rooms, func(r domain.Room) bool { return r.ID == roomID })
	if i < 0 {
		return ErrRoomNotFound
	}
	if err := fn(&rooms[i]); err != nil {
		return err
	}
	return s.writeRooms(rooms)
}

func (s *LocalStore) DeleteRoom(roomID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.readRooms()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(rooms, func(r domain.Room) bool { return r.ID == roomID })
	if i < 0 {
		return nil
	}
	return s.writeRooms(slices.Delete(rooms, i, i+1))
}

// UserID returns the stored local identity, creating one on first use.
func (s *LocalStore) UserID() (string, error) {
	if s == nil || s.db == nil {
		return domain.NewUserID(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.get(userKey)
	if err != nil {
		return "", fmt.Errorf("failed to read user id: %w", err)
	}
	if ok && len(raw) > 0 {
		return string(raw), nil
	}

	id := domain.NewUserID()
	if err := s.db.Set(userKey, []byte(id), pebble.Sync); err != nil {
		return "", fmt.Errorf("failed to store user id: %w", err)
	}
	return id, nil
}

package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/syncwatch/internal/domain"
	repository "github.com/sharetube/syncwatch/internal/repository/room"
)

type CreateRoomParams struct {
	Room domain.Room
}

type CreateRoomResponse struct {
	RoomID string
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	rm := params.Room.Clone()
	rm.Normalize()
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = s.clock.Now().UTC()
	}

	if err := s.roomRepo.SetRoom(ctx, &repository.SetRoomParams{Room: rm}); err != nil {
		s.logger.InfoContext(ctx, "failed to create room", "room_id", rm.ID, "error", err)
		return CreateRoomResponse{}, s.mapRepoErr(err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", rm.ID)
	return CreateRoomResponse{RoomID: rm.ID}, nil
}

func (s service) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	rm, err := s.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, s.mapRepoErr(err)
	}

	return rm, nil
}

// GetRooms lists the active rooms.
func (s service) GetRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.roomRepo.GetRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}

	active := make([]domain.Room, 0, len(rooms))
	for _, rm := range rooms {
		if rm.IsActive {
			active = append(active, rm)
		}
	}

	return active, nil
}

type UpdateRoomParams struct {
	RoomID string
	Patch  *domain.RoomPatch
}

// UpdateRoom shallow-merges the patch into the stored room. Concurrent
// writers are last-write-wins per field.
func (s service) UpdateRoom(ctx context.Context, params *UpdateRoomParams) error {
	_, err := s.roomRepo.UpdateRoom(ctx, &repository.UpdateRoomParams{
		RoomID: params.RoomID,
		Update: func(rm *domain.Room) error {
			rm.Apply(params.Patch)
			return nil
		},
	})
	if err != nil {
		return s.mapRepoErr(err)
	}

	return nil
}

func (s service) RemoveRoom(ctx context.Context, roomID string) error {
	if err := s.roomRepo.RemoveRoom(ctx, roomID); err != nil {
		return s.mapRepoErr(err)
	}

	s.logger.InfoContext(ctx, "room removed", "room_id", roomID)
	return nil
}

type LeaveRoomParams struct {
	RoomID string
	UserID string
}

// LeaveRoom removes the participant. Leadership moves to the first remaining
// participant and an emptied room becomes inactive. Leaving a room the user is
// not in is not an error.
func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (domain.Room, error) {
	var previousLeader string
	rm, err := s.roomRepo.UpdateRoom(ctx, &repository.UpdateRoomParams{
		RoomID: params.RoomID,
		Update: func(rm *domain.Room) error {
			previousLeader = rm.Leader
			if err := rm.Leave(params.UserID); err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
				return err
			}
			return nil
		},
	})
	if err != nil {
		return domain.Room{}, s.mapRepoErr(err)
	}

	if rm.Leader != previousLeader {
		s.logger.InfoContext(ctx, "leadership transferred", "room_id", rm.ID, "leader", rm.Leader)
	}
	if !rm.IsActive {
		s.logger.InfoContext(ctx, "room has no participants left", "room_id", rm.ID)
	}

	return rm, nil
}

// GetHealth counts every stored room, active or not.
func (s service) GetHealth(ctx context.Context) (domain.Health, error) {
	rooms, err := s.roomRepo.GetRooms(ctx)
	if err != nil {
		return domain.Health{}, fmt.Errorf("failed to get rooms: %w", err)
	}

	return domain.Health{Status: "healthy", RoomsCount: len(rooms)}, nil
}

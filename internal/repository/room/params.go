package room

import "github.com/sharetube/syncwatch/internal/domain"

type SetRoomParams struct {
	Room *domain.Room
}

type UpdateRoomParams struct {
	RoomID string
	// Update mutates the stored room. Returning an error aborts the update.
	Update func(room *domain.Room) error
}

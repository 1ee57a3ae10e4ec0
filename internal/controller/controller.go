package controller

import (
	"context"
	"log/slog"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/service/room"
	"github.com/sharetube/syncwatch/pkg/validator"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	GetRoom(context.Context, string) (domain.Room, error)
	GetRooms(context.Context) ([]domain.Room, error)
	UpdateRoom(context.Context, *room.UpdateRoomParams) error
	RemoveRoom(context.Context, string) error
	LeaveRoom(context.Context, *room.LeaveRoomParams) (domain.Room, error)
	GetVideoMetadata(context.Context, string) (domain.VideoMetadata, error)
	GetPlaylistMetadata(context.Context, *room.GetPlaylistMetadataParams) (domain.PlaylistMetadata, error)
	GetHealth(context.Context) (domain.Health, error)
}

type controller struct {
	roomService iRoomService
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	return &controller{
		roomService: roomService,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
}

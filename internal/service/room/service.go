package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sharetube/syncwatch/internal/domain"
	repository "github.com/sharetube/syncwatch/internal/repository/room"
	"github.com/sharetube/syncwatch/pkg/ytvideodata"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomAlreadyExists   = errors.New("room id already exists")
	ErrInvalidVideoURL     = errors.New("invalid video url")
	ErrInvalidPlaylistURL  = errors.New("invalid playlist url")
	ErrPlaylistUnavailable = errors.New("failed to fetch playlist data")
)

type iRoomRepo interface {
	SetRoom(context.Context, *repository.SetRoomParams) error
	GetRoom(context.Context, string) (domain.Room, error)
	GetRooms(context.Context) ([]domain.Room, error)
	UpdateRoom(context.Context, *repository.UpdateRoomParams) (domain.Room, error)
	RemoveRoom(context.Context, string) error
}

type iVideoData interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
	GetPlaylist(ctx context.Context, playlistId string, limit int) (*ytvideodata.PlaylistData, error)
}

type Config struct {
	// PlaylistLimit caps the number of videos taken from an imported playlist.
	PlaylistLimit   int
	MetadataWorkers int
	RoomMaxAge      time.Duration
}

type service struct {
	roomRepo  iRoomRepo
	videoData iVideoData
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config
}

func NewService(roomRepo iRoomRepo, videoData iVideoData, clk clock.Clock, logger *slog.Logger, cfg *Config) *service {
	if clk == nil {
		clk = clock.New()
	}

	c := *cfg
	if c.MetadataWorkers < 1 {
		c.MetadataWorkers = 1
	}

	return &service{
		roomRepo:  roomRepo,
		videoData: videoData,
		clock:     clk,
		logger:    logger,
		cfg:       c,
	}
}

func (s service) mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repository.ErrRoomAlreadyExists):
		return ErrRoomAlreadyExists
	default:
		return err
	}
}

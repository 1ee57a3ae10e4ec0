package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/pebble/v2/vfs"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sharetube/syncwatch/internal/domain"
	"github.com/sharetube/syncwatch/internal/reconcile"
	"github.com/sharetube/syncwatch/internal/roomstore"
	"github.com/sharetube/syncwatch/pkg/validator"
)

var (
	ErrInOtherRoom = errors.New("already in another room, leave it first")
	ErrInvalidForm = errors.New("invalid form")
)

const (
	PlayerBrowser = "browser"
	PlayerSim     = "sim"
)

type ClientConfig struct {
	StoreURL       string           `json:"store_url"`
	DataDir        string           `json:"data_dir"`
	LogLevel       string           `json:"log_level"`
	RequestTimeout time.Duration    `json:"request_timeout"`
	LoadRetries    int              `json:"load_retries"`
	LoadRetryDelay time.Duration    `json:"load_retry_delay"`
	Player         string           `json:"player"`
	BridgeAddr     string           `json:"bridge_addr"`
	Engine         reconcile.Config `json:"engine"`
}

func (cfg *ClientConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.StoreURL, validation.Required, is.URL),
		validation.Field(&cfg.LogLevel, logLevelRule...),
		validation.Field(&cfg.LoadRetries, validation.Min(0)),
		validation.Field(&cfg.Player, validation.Required, validation.In(PlayerBrowser, PlayerSim)),
		validation.Field(&cfg.BridgeAddr, validation.When(cfg.Player == PlayerBrowser, validation.Required, is.DialString)),
		validation.Field(&cfg.Engine),
	)
}

// FormError lists every invalid field of a submitted form.
type FormError struct {
	Errors []validator.ValidationError
}

func (e *FormError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, v := range e.Errors {
		messages = append(messages, v.Message)
	}
	return "invalid form: " + strings.Join(messages, ", ")
}

func (e *FormError) Unwrap() error {
	return ErrInvalidForm
}

type ClientParams struct {
	Config *ClientConfig
	Logger *slog.Logger
	// Clock and FS default to the real ones.
	Clock clock.Clock
	FS    vfs.FS
}

// Client performs the room operations of one local user.
type Client struct {
	cfg      *ClientConfig
	store    *roomstore.Store
	local    *roomstore.LocalStore
	clock    clock.Clock
	logger   *slog.Logger
	validate *validator.Validator
	userID   string
}

func NewClient(params *ClientParams) (*Client, error) {
	clk := params.Clock
	if clk == nil {
		clk = clock.New()
	}
	cfg := params.Config

	local, err := roomstore.OpenLocal(cfg.DataDir, params.FS)
	if err != nil {
		return nil, err
	}

	userID, err := local.UserID()
	if err != nil {
		local.Close()
		return nil, err
	}

	remote := roomstore.NewClient(&roomstore.ClientConfig{
		BaseURL: cfg.StoreURL,
		Timeout: cfg.RequestTimeout,
	})
	logger := params.Logger.With("user_id", userID)

	return &Client{
		cfg: cfg,
		store: roomstore.NewStore(remote, local, clk, logger, roomstore.Config{
			LoadRetries:    cfg.LoadRetries,
			LoadRetryDelay: cfg.LoadRetryDelay,
		}),
		local:    local,
		clock:    clk,
		logger:   logger,
		validate: validator.NewValidator(),
		userID:   userID,
	}, nil
}

func (c *Client) Close() error {
	return c.local.Close()
}

func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) validateForm(form any) error {
	if validationErrors, ok := c.validate.Validate(form); !ok {
		return &FormError{Errors: validationErrors}
	}
	return nil
}

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return c.store.ListRooms(ctx)
}

type CreateRoomParams struct {
	Name        string             `json:"name" validate:"required,max=50"`
	Password    string             `json:"password" validate:"max=50"`
	Username    string             `json:"username" validate:"required,max=30"`
	Permissions domain.Permissions `json:"permissions"`
}

// CreateRoom creates a room led by the local user.
func (c *Client) CreateRoom(ctx context.Context, params *CreateRoomParams) (*domain.Room, error) {
	if err := c.validateForm(params); err != nil {
		return nil, err
	}

	now := c.clock.Now()
	rm := domain.NewRoom(&domain.NewRoomParams{
		ID:       domain.NewRoomID(),
		Name:     params.Name,
		Password: params.Password,
		Leader: domain.Participant{
			ID:       c.userID,
			Username: params.Username,
			JoinedAt: now.UTC(),
		},
		Permissions:    params.Permissions,
		CreatedAt:      now.UTC(),
		LastUpdateTime: now.UnixMilli(),
	})

	if err := c.store.CreateRoom(ctx, rm); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	c.logger.InfoContext(ctx, "room created", "room_id", rm.ID)
	return rm, nil
}

type JoinRoomParams struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required,max=30"`
	Password string `json:"password"`
}

// JoinRoom adds the local user to the room, or renames them if they are
// already in it.
func (c *Client) JoinRoom(ctx context.Context, params *JoinRoomParams) (*domain.Room, error) {
	if err := c.validateForm(params); err != nil {
		return nil, err
	}

	rooms, err := c.store.ListRooms(ctx)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to list rooms", "error", err)
	}
	for _, other := range rooms {
		if other.ID != params.RoomID && other.HasParticipant(c.userID) {
			return nil, ErrInOtherRoom
		}
	}

	rm, err := c.store.LoadRoom(ctx, params.RoomID)
	if err != nil {
		return nil, err
	}

	// the leader rejoins without a password
	password := params.Password
	if rm.IsLeader(c.userID) {
		password = rm.Password
	}
	if err := rm.Join(domain.Participant{
		ID:       c.userID,
		Username: params.Username,
		JoinedAt: c.clock.Now().UTC(),
	}, password); err != nil {
		return nil, err
	}

	patch := &domain.RoomPatch{Participants: &rm.Participants}
	if rm.IsLeader(c.userID) {
		patch.LeaderUsername = &rm.LeaderUsername
	}
	if err := c.store.UpdateRoom(ctx, rm.ID, patch); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	c.logger.InfoContext(ctx, "room joined", "room_id", rm.ID)
	return rm, nil
}

func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	if _, err := c.store.LeaveRoom(ctx, roomID, c.userID); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}
	return nil
}

// DeleteRoom deletes a room the local user leads.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	rm, err := c.store.LoadRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !rm.IsLeader(c.userID) {
		return reconcile.ErrNotLeader
	}
	return c.store.DeleteRoom(ctx, roomID)
}

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sharetube/syncwatch/internal/controller"
	"github.com/sharetube/syncwatch/internal/repository/room/redis"
	"github.com/sharetube/syncwatch/internal/service/room"
	"github.com/sharetube/syncwatch/pkg/ctxlogger"
	"github.com/sharetube/syncwatch/pkg/redisclient"
	"github.com/sharetube/syncwatch/pkg/ytvideodata"
)

type AppConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	LogLevel        string        `json:"log_level"`
	PlaylistLimit   int           `json:"playlist_limit"`
	MetadataWorkers int           `json:"metadata_workers"`
	RoomTTL         time.Duration `json:"room_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	VideoSiteURL    string        `json:"video_site_url"`
	RedisPort       int           `json:"redis_port"`
	RedisHost       string        `json:"redis_host"`
	RedisPassword   string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.LogLevel, logLevelRule...),
		validation.Field(&cfg.PlaylistLimit, validation.Required, validation.Min(1)),
		validation.Field(&cfg.MetadataWorkers, validation.Required, validation.Min(1)),
		validation.Field(&cfg.RoomTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&cfg.CleanupInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&cfg.VideoSiteURL, is.URL),
		validation.Field(&cfg.RedisPort, validation.Min(0), validation.Max(65535)),
	)
}

var logLevelRule = []validation.Rule{
	validation.Required,
	validation.By(func(value any) error {
		level, _ := value.(string)
		_, err := parseLevel(level)
		return err
	}),
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger builds the JSON logger that also writes attributes carried by the
// context.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	logLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

// Run serves the room store until a termination signal arrives.
func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := NewLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := redis.NewRepo(rc, logger, cfg.RoomTTL)
	videoData := ytvideodata.New(&ytvideodata.Config{BaseURL: cfg.VideoSiteURL})
	roomService := room.NewService(roomRepo, videoData, nil, logger, &room.Config{
		PlaylistLimit:   cfg.PlaylistLimit,
		MetadataWorkers: cfg.MetadataWorkers,
		RoomMaxAge:      cfg.RoomTTL,
	})
	controller := controller.NewController(roomService, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	go roomService.RunCleanup(serverCtx, cfg.CleanupInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/syncwatch/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 50,
	}
	metadataWorkers = configVar[int]{
		envKey:       "SERVER_METADATA_WORKERS",
		flagKey:      "metadata-workers",
		defaultValue: 8,
	}
	roomTTL = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_TTL",
		flagKey:      "room-ttl",
		defaultValue: 24 * time.Hour,
	}
	cleanupInterval = configVar[time.Duration]{
		envKey:       "SERVER_CLEANUP_INTERVAL",
		flagKey:      "cleanup-interval",
		defaultValue: time.Hour,
	}
	videoSiteURL = configVar[string]{
		envKey:       "SERVER_VIDEO_SITE_URL",
		flagKey:      "video-site-url",
		defaultValue: "https://www.youtube.com",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, "Maximum number of videos read from an imported playlist")
	pflag.Int(metadataWorkers.flagKey, metadataWorkers.defaultValue, "Concurrent metadata lookups per playlist import")
	pflag.Duration(roomTTL.flagKey, roomTTL.defaultValue, "Lifetime of a room")
	pflag.Duration(cleanupInterval.flagKey, cleanupInterval.defaultValue, "Interval between stale room sweeps")
	pflag.String(videoSiteURL.flagKey, videoSiteURL.defaultValue, "Video site used for metadata lookups")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(playlistLimit.flagKey, playlistLimit.envKey)
	viper.BindEnv(metadataWorkers.flagKey, metadataWorkers.envKey)
	viper.BindEnv(roomTTL.flagKey, roomTTL.envKey)
	viper.BindEnv(cleanupInterval.flagKey, cleanupInterval.envKey)
	viper.BindEnv(videoSiteURL.flagKey, videoSiteURL.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(playlistLimit.flagKey, playlistLimit.defaultValue)
	viper.SetDefault(metadataWorkers.flagKey, metadataWorkers.defaultValue)
	viper.SetDefault(roomTTL.flagKey, roomTTL.defaultValue)
	viper.SetDefault(cleanupInterval.flagKey, cleanupInterval.defaultValue)
	viper.SetDefault(videoSiteURL.flagKey, videoSiteURL.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	config := &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		PlaylistLimit:   viper.GetInt(playlistLimit.flagKey),
		MetadataWorkers: viper.GetInt(metadataWorkers.flagKey),
		RoomTTL:         viper.GetDuration(roomTTL.flagKey),
		CleanupInterval: viper.GetDuration(cleanupInterval.flagKey),
		VideoSiteURL:    viper.GetString(videoSiteURL.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting room store with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}

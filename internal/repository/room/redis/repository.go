package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

type repo struct {
	rc             *redis.Client
	logger         *slog.Logger
	expireDuration time.Duration
}

// NewRepo stores every room as one JSON document that expires expireDuration
// after creation.
func NewRepo(rc *redis.Client, logger *slog.Logger, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		logger:         logger,
		expireDuration: expireDuration,
	}
}

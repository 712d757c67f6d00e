package db

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

const SeenKeyPrefix = "dailybrief:seen:"

// ConnectRedis accepts a redis:// URL or a bare host:port.
func ConnectRedis(ctx context.Context, redisURL string) error {
	if redisURL == "" {
		return errors.New("REDIS_URL is not set")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	Redis = redis.NewClient(opt)

	return Redis.Ping(ctx).Err()
}

func CloseRedis() {
	if Redis != nil {
		Redis.Close()
	}
}

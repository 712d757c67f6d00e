package repository

import (
	"context"
	"time"

	"github.com/rah-ai/financial-daily-summary/db"
	"github.com/redis/go-redis/v9"
)

// SeenRepository remembers which news items were already delivered.
type SeenRepository struct {
	client *redis.Client
}

func NewSeenRepository(client *redis.Client) *SeenRepository {
	return &SeenRepository{client: client}
}

func seenKey(key string) string {
	return db.SeenKeyPrefix + key
}

func (r *SeenRepository) FilterUnseen(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Exists(ctx, seenKey(k))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	var unseen []string
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			unseen = append(unseen, keys[i])
		}
	}
	return unseen, nil
}

func (r *SeenRepository) MarkSeen(ctx context.Context, keys []string, ttl time.Duration) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, k := range keys {
		pipe.Set(ctx, seenKey(k), 1, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

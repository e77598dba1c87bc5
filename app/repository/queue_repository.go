package repository

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/assettracer/assettracer/internal/pkg/cache"
)

const scanBatch = 500

// queueRepository reads the job lists and the report cache keys in Redis
// for the admin endpoints.
type queueRepository struct {
	client func() *redis.Client
}

// NewQueueRepository uses the shared cache client.
func NewQueueRepository() QueueRepository {
	return &queueRepository{client: cache.GetClient}
}

// ListLengths returns LLEN of every key in one round trip.
func (r *queueRepository) ListLengths(ctx context.Context, keys ...string) (map[string]int64, error) {
	pipe := r.client().Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(keys))
	for _, key := range keys {
		cmds[key] = pipe.LLen(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(keys))
	for key, cmd := range cmds {
		out[key] = cmd.Val()
	}
	return out, nil
}

// CountKeys counts the keys matching pattern using SCAN.
func (r *queueRepository) CountKeys(ctx context.Context, pattern string) (int, error) {
	n := 0
	err := r.scan(ctx, pattern, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

// DeleteMatching removes every key matching pattern batch by batch and
// returns how many were deleted.
func (r *queueRepository) DeleteMatching(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := r.scan(ctx, pattern, func(keys []string) error {
		n, err := r.client().Del(ctx, keys...).Result()
		deleted += n
		return err
	})
	return deleted, err
}

func (r *queueRepository) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	iter := r.client().Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	return fn(batch)
}

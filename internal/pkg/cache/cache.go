package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/assettracer/assettracer/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// ErrMiss is returned by GetJSON when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Addr returns the configured Redis address.
func Addr() string {
	return fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
}

// SetupCache initializes the connection to the Redis server (DB 0). Sessions
// and OAuth state use their own databases on the same server.
func SetupCache() {
	client = redis.NewClient(&redis.Options{
		Addr:     Addr(),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to Redis at %s: %v", Addr(), err)
	} else {
		log.Infof("[Cache] Connected to Redis: %s", pong)
	}
}

// SetClient replaces the shared client. Used by tests with miniredis.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// GetInt retrieves an integer value from the cache by key
func GetInt(key string) (int, error) {
	val, err := GetClient().Get(ctx, key).Int()
	if err != nil {
		return 0, err
	}
	return val, nil
}

// SetJSON stores v encoded as JSON.
func SetJSON(key string, v interface{}, expiration time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}
	return GetClient().Set(ctx, key, b, expiration).Err()
}

// GetJSON decodes the value at key into v. A missing key yields ErrMiss.
func GetJSON(key string, v interface{}) error {
	b, err := GetClient().Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// SetNX stores value only if key does not exist yet and reports whether it
// was written.
func SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	return GetClient().SetNX(ctx, key, value, expiration).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// DeletePattern removes all keys matching pattern using SCAN.
func DeletePattern(pattern string) (int64, error) {
	var cursor uint64
	var total int64
	for {
		keys, next, err := GetClient().Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return total, err
		}
		if len(keys) > 0 {
			n, err := GetClient().Del(ctx, keys...).Result()
			if err != nil {
				return total, err
			}
			total += n
		}
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

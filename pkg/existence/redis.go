package existence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cachedTrue  = "1"
	cachedFalse = "0"
)

// RedisCache implements Cache on top of Redis.
type RedisCache struct {
	client redis.UniversalClient
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a RedisCache using client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (bool, bool, error) {
	if key == "" {
		return false, false, errors.New("key cannot be empty")
	}

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}

		return false, false, fmt.Errorf("redis get: %w", err)
	}

	switch val {
	case cachedTrue:
		return true, true, nil
	case cachedFalse:
		return false, true, nil
	default:
		// unknown encoding, treat as a miss so the entry gets rewritten
		return false, false, nil
	}
}

func (r *RedisCache) Set(ctx context.Context, key string, exists bool, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	val := cachedFalse
	if exists {
		val = cachedTrue
	}
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Ping checks the health of the Redis connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	return nil
}

// RedisOptions holds the connection settings for NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client with the given options.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

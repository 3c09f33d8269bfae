package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bonebuddy:submit:"

// RedisGuard marks booking submission tokens as used for a short TTL so a
// repeated confirm does not commit the same booking twice.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// Connect parses a redis URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Acquire reports false when the token was already used within the TTL.
func (g *RedisGuard) Acquire(ctx context.Context, token string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, keyPrefix+token, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire submit token: %w", err)
	}
	return ok, nil
}

// Release frees the token so a failed submission can be retried.
func (g *RedisGuard) Release(ctx context.Context, token string) error {
	if err := g.rdb.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("release submit token: %w", err)
	}
	return nil
}

// Noop accepts every token. Used when redis is not configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (bool, error) { return true, nil }

func (Noop) Release(context.Context, string) error { return nil }

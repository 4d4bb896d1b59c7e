// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/contacts-backend/internal/config"
)

// Redis backs the rate limiter.
type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	r := &Redis{Client: redis.NewClient(opts)}
	if err := r.Ping(ctx); err != nil {
		_ = r.Client.Close() //nolint:errcheck // already failing
		return nil, err
	}

	return r, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout, opts.WriteTimeout = cfg.ReadTimeout, cfg.ReadTimeout
	}

	return opts, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return pingWithin(ctx, "redis", func(ctx context.Context) error {
		return r.Client.Ping(ctx).Err()
	})
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

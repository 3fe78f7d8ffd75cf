package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/smart-scheduler-api/pkg/config"
)

const (
	pingTimeout  = 3 * time.Second
	dialTimeout  = 2 * time.Second
	ioTimeout    = 500 * time.Millisecond
	defaultPools = 10
)

// ErrDisabled is returned when Redis is switched off in configuration.
var ErrDisabled = errors.New("redis disabled")

// Options translates service configuration into client options. Short I/O
// timeouts keep a slow cache from stalling schedule generation.
func Options(cfg config.RedisConfig) *redis.Options {
	pool := cfg.PoolSize
	if pool <= 0 {
		pool = defaultPools
	}
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     pool,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}

// NewRedis returns a Redis client that answered a ping.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	opts := Options(cfg)
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return client, nil
}

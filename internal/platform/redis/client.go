// Package redis opens the go-redis client behind USER_STORE=redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"safesupport/internal/platform/config"
)

// ErrNotConfigured is returned by Open when no REDIS_URL is set.
var ErrNotConfigured = errors.New("redis: REDIS_URL is not set")

const defaultHealthTimeout = 2 * time.Second

// Client is a connected go-redis client plus the bound used by Health.
type Client struct {
	*redis.Client
	healthTimeout time.Duration
}

// Open parses cfg, connects and pings once.
func Open(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	return &Client{Client: client, healthTimeout: timeout}, nil
}

// Options applies the pool and timeout settings on top of the URL.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Health pings Redis for /healthz, bounded by the dial timeout.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

// Package cache wraps Redis as the TTL/lock store (§3, §5, §6): suppression
// keys, the manual-check cooldown, the scheduler master lock, and the
// monitor_updates_stream backing the real-time relay. Grounded on the
// teacher's internal/services/cache/redis.go RedisClient wrapper.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is not found.
var ErrCacheMiss = errors.New("cache miss")

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// Client wraps a go-redis client with the key-prefixing and JSON
// convenience methods the rest of the core builds on.
type Client struct {
	raw    *redis.Client
	prefix string
}

// New creates a Client and verifies connectivity with a short ping.
func New(cfg Config) (*Client, error) {
	raw := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{raw: raw, prefix: cfg.Prefix}, nil
}

// Raw exposes the underlying go-redis client for stream operations
// (internal/relay) that need primitives this wrapper doesn't cover.
func (c *Client) Raw() *redis.Client { return c.raw }

func (c *Client) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Key exposes the prefixed form of k for callers (internal/scheduler) that
// drive raw Redis commands directly via Raw() and need the same namespacing
// this wrapper applies internally.
func (c *Client) Key(k string) string { return c.key(k) }

// Close closes the underlying connection.
func (c *Client) Close() error { return c.raw.Close() }

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error { return c.raw.Ping(ctx).Err() }

// Get retrieves a string value.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.raw.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value with expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.raw.Set(ctx, c.key(key), value, expiration).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// SetNX sets a value only if the key is absent — the primitive behind both
// the scheduler master lock and the manual-check cooldown.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	ok, err := c.raw.SetNX(ctx, c.key(key), value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx %s: %w", key, err)
	}
	return ok, nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.raw.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes one or more keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	if err := c.raw.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeletePattern deletes every key matching a (prefixed) glob pattern. Used
// to clear all suppression keys for a monitor on recovery (§4.F).
func (c *Client) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.raw.Scan(ctx, 0, c.key(pattern), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.raw.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete pattern %s: %w", pattern, err)
	}
	return nil
}

// TTL returns the remaining time-to-live of a key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.raw.TTL(ctx, c.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache ttl %s: %w", key, err)
	}
	return ttl, nil
}

// SetJSON marshals and stores a JSON value.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, data, expiration)
}

// GetJSON retrieves and unmarshals a JSON value.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache unmarshal %s: %w", key, err)
	}
	return nil
}

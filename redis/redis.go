// Package redis provides a relaycache.Storage implementation backed by
// Redis via github.com/redis/go-redis/v9.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/relaycache/relaycache"
)

// Storage is a relaycache.Storage that caches entries in a Redis server,
// using native key expiry for TTL.
type Storage struct {
	client goredis.UniversalClient
}

// Config holds the configuration for creating a Storage.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379").
	Addr string
	// Password for authentication. Optional.
	Password string
	// DB is the Redis database number to use.
	DB int
	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	return c
}

// New dials Redis per config and verifies connectivity with a PING.
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis: address is required")
	}
	config = config.withDefaults()

	client := goredis.NewClient(&goredis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.DialTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect failed: %w", err)
	}

	return &Storage{client: client}, nil
}

// NewWithClient wraps an already-constructed go-redis client (standalone,
// cluster, or sentinel — any of which satisfy UniversalClient).
func NewWithClient(client goredis.UniversalClient) *Storage {
	return &Storage{client: client}
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.client.Close()
}

func cacheKey(key string) string {
	return "relaycache:" + key
}

func (s *Storage) Get(ctx context.Context, key string) (relaycache.Entry, bool, error) {
	raw, err := s.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return relaycache.Entry{}, false, nil
		}
		return relaycache.Entry{}, false, fmt.Errorf("redis: get failed for key %q: %w", key, err)
	}
	entry, err := relaycache.DecodeEntry(raw)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("redis: decode failed for key %q: %w", key, err)
	}
	return entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	raw, err := relaycache.EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("redis: encode failed for key %q: %w", key, err)
	}
	if err := s.client.Set(ctx, cacheKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set failed for key %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: delete failed for key %q: %w", key, err)
	}
	return nil
}

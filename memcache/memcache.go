// Package memcache provides a relaycache.Storage implementation backed by
// github.com/bradfitz/gomemcache.
package memcache

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/relaycache/relaycache"
)

// Storage is a relaycache.Storage that caches entries in a memcache
// server, using native item expiration for TTL.
type Storage struct {
	client *memcache.Client
}

// New returns a Storage using the given memcache server(s) with equal
// weight. If a server is listed multiple times, it gets a proportional
// amount of weight.
func New(server ...string) *Storage {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient wraps an already-constructed memcache client.
func NewWithClient(client *memcache.Client) *Storage {
	return &Storage{client: client}
}

func cacheKey(key string) string {
	return "relaycache:" + key
}

func (s *Storage) Get(_ context.Context, key string) (relaycache.Entry, bool, error) {
	item, err := s.client.Get(cacheKey(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return relaycache.Entry{}, false, nil
		}
		return relaycache.Entry{}, false, fmt.Errorf("memcache: get failed for key %q: %w", key, err)
	}
	entry, err := relaycache.DecodeEntry(item.Value)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("memcache: decode failed for key %q: %w", key, err)
	}
	return entry, true, nil
}

func (s *Storage) Set(_ context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	raw, err := relaycache.EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("memcache: encode failed for key %q: %w", key, err)
	}
	item := &memcache.Item{
		Key:        cacheKey(key),
		Value:      raw,
		Expiration: int32(ttl.Seconds()),
	}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("memcache: set failed for key %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	if err := s.client.Delete(cacheKey(key)); err != nil && err != memcache.ErrCacheMiss {
		return fmt.Errorf("memcache: delete failed for key %q: %w", key, err)
	}
	return nil
}

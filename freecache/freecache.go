// Package freecache provides a zero-GC-overhead relaycache.Storage
// implementation backed by github.com/coocood/freecache, suitable for
// caching many entries with bounded, pre-allocated memory.
package freecache

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"

	"github.com/relaycache/relaycache"
)

// Storage is a relaycache.Storage backed by an in-process freecache ring
// buffer with LRU eviction on memory pressure.
type Storage struct {
	cache *freecache.Cache
}

// New creates a Storage with the given size in bytes (512KB minimum,
// enforced by freecache itself).
func New(size int) *Storage {
	return &Storage{cache: freecache.NewCache(size)}
}

func (s *Storage) Get(_ context.Context, key string) (relaycache.Entry, bool, error) {
	raw, err := s.cache.Get([]byte(key))
	if err != nil {
		if err == freecache.ErrNotFound {
			return relaycache.Entry{}, false, nil
		}
		return relaycache.Entry{}, false, fmt.Errorf("freecache: get failed for key %q: %w", key, err)
	}
	entry, err := relaycache.DecodeEntry(raw)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("freecache: decode failed for key %q: %w", key, err)
	}
	return entry, true, nil
}

func (s *Storage) Set(_ context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	raw, err := relaycache.EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("freecache: encode failed for key %q: %w", key, err)
	}
	// freecache reads 0 seconds as "never expire", so a positive TTL that
	// truncates to 0 is treated as already elapsed.
	seconds := int(ttl.Seconds())
	if ttl > 0 && seconds == 0 {
		s.cache.Del([]byte(key))
		return nil
	}
	if err := s.cache.Set([]byte(key), raw, seconds); err != nil {
		return fmt.Errorf("freecache: set failed for key %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

// Package multicache provides a tiered relaycache.Storage that cascades
// reads through multiple backends, ordered from fastest/smallest to
// slowest/largest, promoting hits back up to the faster tiers.
package multicache

import (
	"context"
	"fmt"
	"time"

	"github.com/relaycache/relaycache"
)

// Storage searches tiers in order on Get, promoting a hit found in a
// slower tier up into every faster tier. Set and Remove apply to every
// tier, so all tiers stay consistent.
//
// Example tiering:
//   - Tier 1: in-process relaycache.MemoryStorage
//   - Tier 2: redis.Storage
//   - Tier 3: postgresql.Storage
type Storage struct {
	tiers []relaycache.Storage
}

// New builds a Storage over tiers, which must be non-empty.
func New(tiers ...relaycache.Storage) (*Storage, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("multicache: at least one tier is required")
	}
	for _, t := range tiers {
		if t == nil {
			return nil, fmt.Errorf("multicache: tier cannot be nil")
		}
	}
	return &Storage{tiers: tiers}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (relaycache.Entry, bool, error) {
	for i, tier := range s.tiers {
		entry, hit, err := tier.Get(ctx, key)
		if err != nil {
			return relaycache.Entry{}, false, fmt.Errorf("multicache: tier %d get failed for key %q: %w", i, key, err)
		}
		if !hit {
			continue
		}
		s.promote(ctx, key, entry, i)
		return entry, true, nil
	}
	return relaycache.Entry{}, false, nil
}

// promote writes entry into every tier faster than foundAt, using the
// TTL implied by the entry's own cache-control headers since the
// Storage interface does not carry remaining TTL through Get. Promotion
// errors are logged and otherwise ignored — the read already succeeded.
func (s *Storage) promote(ctx context.Context, key string, entry relaycache.Entry, foundAt int) {
	if foundAt == 0 {
		return
	}
	view := relaycache.NewView(entry.Status, entry.Header, entry.Body)
	ttl, ok := view.TTL()
	if !ok || ttl <= 0 {
		return
	}
	for i := 0; i < foundAt; i++ {
		if err := s.tiers[i].Set(ctx, key, entry, time.Duration(ttl)*time.Second); err != nil {
			relaycache.GetLogger().Warn("multicache: promotion failed", "tier", i, "key", key, "error", err)
		}
	}
}

func (s *Storage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	for i, tier := range s.tiers {
		if err := tier.Set(ctx, key, entry, ttl); err != nil {
			return fmt.Errorf("multicache: tier %d set failed for key %q: %w", i, key, err)
		}
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	for i, tier := range s.tiers {
		if err := tier.Remove(ctx, key); err != nil {
			return fmt.Errorf("multicache: tier %d remove failed for key %q: %w", i, key, err)
		}
	}
	return nil
}

var _ relaycache.Storage = (*Storage)(nil)

package multicache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/relaycache/relaycache"
	relaycachetest "github.com/relaycache/relaycache/test"
)

func TestStorageConformance(t *testing.T) {
	store, err := New(relaycache.NewMemoryStorage(), relaycache.NewMemoryStorage())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	relaycachetest.Storage(t, store)
}

func TestGetPromotesHitToFasterTiers(t *testing.T) {
	l1 := relaycache.NewMemoryStorage()
	l2 := relaycache.NewMemoryStorage()
	store, err := New(l1, l2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	entry := relaycache.Entry{Status: 200, Header: http.Header{"Cache-Control": {"max-age=300"}}, Body: []byte("tiered")}
	if err := l2.Set(ctx, "k", entry, time.Hour); err != nil {
		t.Fatalf("l2.Set: %v", err)
	}

	if _, hit, _ := l1.Get(ctx, "k"); hit {
		t.Fatal("precondition failed: l1 should not yet have the entry")
	}

	got, hit, err := store.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get: ok=%v err=%v", hit, err)
	}
	if string(got.Body) != "tiered" {
		t.Fatalf("Body = %q, want %q", got.Body, "tiered")
	}

	if _, hit, _ := l1.Get(ctx, "k"); !hit {
		t.Fatal("expected the hit to be promoted into l1")
	}
}

func TestGetDoesNotPromoteExpiredEntry(t *testing.T) {
	l1 := relaycache.NewMemoryStorage()
	l2 := relaycache.NewMemoryStorage()
	store, err := New(l1, l2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	// A response the origin already declared stale (max-age=0): still a
	// hit at the storage layer, but nothing worth promoting.
	entry := relaycache.Entry{Status: 200, Header: http.Header{"Cache-Control": {"max-age=0"}}, Body: []byte("stale")}
	if err := l2.Set(ctx, "k", entry, time.Hour); err != nil {
		t.Fatalf("l2.Set: %v", err)
	}

	if _, _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, hit, _ := l1.Get(ctx, "k"); hit {
		t.Fatal("a non-fresh entry should not be promoted")
	}
}

func TestSetWritesEveryTier(t *testing.T) {
	l1 := relaycache.NewMemoryStorage()
	l2 := relaycache.NewMemoryStorage()
	store, err := New(l1, l2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, "k", relaycache.Entry{Status: 200, Body: []byte("x")}, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for i, tier := range []relaycache.Storage{l1, l2} {
		if _, hit, _ := tier.Get(ctx, "k"); !hit {
			t.Fatalf("tier %d missing entry after Set", i)
		}
	}
}

func TestRemoveClearsEveryTier(t *testing.T) {
	l1 := relaycache.NewMemoryStorage()
	l2 := relaycache.NewMemoryStorage()
	store, err := New(l1, l2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	_ = store.Set(ctx, "k", relaycache.Entry{Status: 200, Body: []byte("x")}, time.Hour)
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	for i, tier := range []relaycache.Storage{l1, l2} {
		if _, hit, _ := tier.Get(ctx, "k"); hit {
			t.Fatalf("tier %d still has entry after Remove", i)
		}
	}
}

func TestNewRejectsEmptyTiers(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected an error for zero tiers")
	}
}

func TestNewRejectsNilTier(t *testing.T) {
	if _, err := New(relaycache.NewMemoryStorage(), nil); err == nil {
		t.Fatal("expected an error for a nil tier")
	}
}

//go:build integration

package redis

import (
	"context"
	"os"
	"testing"

	relaycachetest "github.com/relaycache/relaycache/test"
)

func TestStorage(t *testing.T) {
	addr := os.Getenv("RELAYCACHE_REDIS_ADDR")
	if addr == "" {
		t.Skip("RELAYCACHE_REDIS_ADDR not set; skipping integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, Config{Addr: addr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	relaycachetest.Storage(t, store)
}

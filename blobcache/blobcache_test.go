package blobcache

import (
	"context"
	"testing"

	_ "gocloud.dev/blob/memblob"

	relaycachetest "github.com/relaycache/relaycache/test"
)

func TestStorage(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, Config{BucketURL: "mem://"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	relaycachetest.Storage(t, store)
}

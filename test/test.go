// Package test provides a conformance check shared by every
// relaycache.Storage backend's tests.
package test

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/relaycache/relaycache"
)

// Storage exercises a relaycache.Storage implementation against the
// contract every backend must satisfy: miss before Set, hit with the
// same Entry after Set, gone after Remove, and lazy expiry once ttl
// elapses.
func Storage(t *testing.T, storage relaycache.Storage) {
	t.Helper()
	ctx := context.Background()
	key := "test-key"

	_, ok, err := storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("get before set: %v", err)
	}
	if ok {
		t.Fatal("retrieved key before adding it")
	}

	entry := relaycache.Entry{
		RequestHeader: http.Header{"Accept": {"text/plain"}},
		Status:        200,
		Header:        http.Header{"Content-Type": {"text/plain"}, "ETag": {`"v1"`}},
		Body:          []byte("some bytes"),
	}
	if err := storage.Set(ctx, key, entry, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an entry we just added")
	}
	if got.Status != entry.Status {
		t.Fatalf("status = %d, want %d", got.Status, entry.Status)
	}
	if !bytes.Equal(got.Body, entry.Body) {
		t.Fatalf("body = %q, want %q", got.Body, entry.Body)
	}
	if got.Header.Get("ETag") != entry.Header.Get("ETag") {
		t.Fatalf("etag = %q, want %q", got.Header.Get("ETag"), entry.Header.Get("ETag"))
	}

	if err := storage.Remove(ctx, key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, ok, err = storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after remove: %v", err)
	}
	if ok {
		t.Fatal("removed entry still present")
	}

	expireKey := "test-expire-key"
	if err := storage.Set(ctx, expireKey, entry, time.Millisecond); err != nil {
		t.Fatalf("set with short ttl: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	_, ok, err = storage.Get(ctx, expireKey)
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if ok {
		t.Fatal("entry should have expired")
	}
}

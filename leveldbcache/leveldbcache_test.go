package leveldbcache

import (
	"path/filepath"
	"testing"

	relaycachetest "github.com/relaycache/relaycache/test"
)

func TestStorage(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "leveldb"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()

	relaycachetest.Storage(t, store)
}

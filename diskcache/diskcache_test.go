package diskcache

import (
	"testing"

	relaycachetest "github.com/relaycache/relaycache/test"
)

func TestStorage(t *testing.T) {
	store := New(t.TempDir())
	relaycachetest.Storage(t, store)
}

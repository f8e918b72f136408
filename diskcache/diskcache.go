// Package diskcache provides a relaycache.Storage implementation backed
// by github.com/peterbourgon/diskv, supplementing an in-memory index with
// persistent files on disk.
package diskcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/diskv"

	"github.com/relaycache/relaycache"
)

// Storage is a relaycache.Storage that stores entries as files under a
// diskv-managed directory tree.
type Storage struct {
	d *diskv.Diskv
}

// record is the on-disk envelope: the entry plus its absolute expiry, so
// a lazily-checked TTL survives process restarts (diskv itself has no
// notion of expiry).
type record struct {
	Entry     relaycache.Entry
	ExpiresAt int64 // unix seconds; zero means no expiry
}

// New returns a Storage that will store files under basePath.
func New(basePath string) *Storage {
	return &Storage{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv returns a Storage using the provided Diskv instance.
func NewWithDiskv(d *diskv.Diskv) *Storage {
	return &Storage{d: d}
}

func (s *Storage) Get(_ context.Context, key string) (relaycache.Entry, bool, error) {
	raw, err := s.d.Read(keyToFilename(key))
	if err != nil {
		return relaycache.Entry{}, false, nil
	}
	rec, err := decode(raw)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("diskcache: decode failed for key %q: %w", key, err)
	}
	if rec.ExpiresAt != 0 && time.Now().Unix() >= rec.ExpiresAt {
		_ = s.d.Erase(keyToFilename(key))
		return relaycache.Entry{}, false, nil
	}
	return rec.Entry, true, nil
}

func (s *Storage) Set(_ context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	rec := record{Entry: entry}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	raw, err := encode(rec)
	if err != nil {
		return fmt.Errorf("diskcache: encode failed for key %q: %w", key, err)
	}
	if err := s.d.WriteStream(keyToFilename(key), bytes.NewReader(raw), true); err != nil {
		return fmt.Errorf("diskcache: set failed for key %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	_ = s.d.Erase(keyToFilename(key)) //nolint:errcheck // file not found is acceptable
	return nil
}

func keyToFilename(key string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

func encode(rec record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (record, error) {
	var rec record
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return record{}, err
	}
	return rec, nil
}

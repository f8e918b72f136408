// Package leveldbcache provides a relaycache.Storage implementation
// backed by github.com/syndtr/goleveldb/leveldb, an embedded LSM-tree
// key-value store.
package leveldbcache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/relaycache/relaycache"
)

// Storage is a relaycache.Storage backed by an on-disk LevelDB.
type Storage struct {
	db *leveldb.DB
}

type record struct {
	Entry     relaycache.Entry
	ExpiresAt int64 // unix seconds; zero means no expiry
}

// New opens (creating if absent) a LevelDB at path.
func New(path string) (*Storage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// NewWithDB wraps an already-open LevelDB handle.
func NewWithDB(db *leveldb.DB) *Storage {
	return &Storage{db: db}
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(_ context.Context, key string) (relaycache.Entry, bool, error) {
	raw, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return relaycache.Entry{}, false, nil
		}
		return relaycache.Entry{}, false, fmt.Errorf("leveldbcache: get failed for key %q: %w", key, err)
	}
	rec, err := decode(raw)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("leveldbcache: decode failed for key %q: %w", key, err)
	}
	if rec.ExpiresAt != 0 && time.Now().Unix() >= rec.ExpiresAt {
		_ = s.db.Delete([]byte(key), nil)
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
		return fmt.Errorf("leveldbcache: encode failed for key %q: %w", key, err)
	}
	if err := s.db.Put([]byte(key), raw, nil); err != nil {
		return fmt.Errorf("leveldbcache: set failed for key %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldbcache: delete failed for key %q: %w", key, err)
	}
	return nil
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

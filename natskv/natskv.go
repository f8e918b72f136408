// Package natskv provides a relaycache.Storage implementation backed by
// a NATS JetStream Key/Value bucket.
package natskv

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/relaycache/relaycache"
)

// Config holds the configuration for creating a Storage.
type Config struct {
	// NATSUrl is the URL of the NATS server. Defaults to nats.DefaultURL.
	NATSUrl string
	// Bucket is the name of the K/V bucket to use. Required.
	Bucket string
	// Description is an optional description for the K/V bucket.
	Description string
	// NATSOptions are additional options passed to nats.Connect.
	NATSOptions []nats.Option
}

// Storage is a relaycache.Storage backed by a JetStream K/V bucket.
// Per-entry TTL is enforced lazily on Get since JetStream K/V expiry is a
// bucket-wide setting, not a per-key one.
type Storage struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

type record struct {
	Entry     relaycache.Entry
	ExpiresAt int64 // unix seconds; zero means no expiry
}

// cacheKey hashes key, since JetStream K/V keys may only contain
// letters, digits and "-/_=." and cache keys are full URLs.
func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "relaycache." + hex.EncodeToString(sum[:])
}

// New connects to NATS, opens (or creates) the configured K/V bucket.
// The caller should call Close() when done.
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("natskv: bucket name is required")
	}

	url := config.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, config.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natskv: connect failed: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: jetstream context failed: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: bucket setup failed: %w", err)
	}

	return &Storage{kv: kv, nc: nc}, nil
}

// NewWithKeyValue wraps an already-opened K/V bucket. The NATS connection
// is not closed by Close() in this case.
func NewWithKeyValue(kv jetstream.KeyValue) *Storage {
	return &Storage{kv: kv}
}

// Close closes the underlying NATS connection if this Storage owns one.
func (s *Storage) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (relaycache.Entry, bool, error) {
	entry, err := s.kv.Get(ctx, cacheKey(key))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return relaycache.Entry{}, false, nil
		}
		return relaycache.Entry{}, false, fmt.Errorf("natskv: get failed for key %q: %w", key, err)
	}

	rec, err := decode(entry.Value())
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("natskv: decode failed for key %q: %w", key, err)
	}
	if rec.ExpiresAt != 0 && time.Now().Unix() >= rec.ExpiresAt {
		_ = s.kv.Delete(ctx, cacheKey(key))
		return relaycache.Entry{}, false, nil
	}
	return rec.Entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	rec := record{Entry: entry}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	raw, err := encode(rec)
	if err != nil {
		return fmt.Errorf("natskv: encode failed for key %q: %w", key, err)
	}
	if _, err := s.kv.Put(ctx, cacheKey(key), raw); err != nil {
		return fmt.Errorf("natskv: put failed for key %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, cacheKey(key)); err != nil && err != jetstream.ErrKeyNotFound {
		return fmt.Errorf("natskv: delete failed for key %q: %w", key, err)
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

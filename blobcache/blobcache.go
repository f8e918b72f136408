// Package blobcache provides a relaycache.Storage implementation backed
// by Go Cloud Development Kit (gocloud.dev/blob) storage, giving access
// to S3, GCS, Azure Blob, filesystem, or in-memory buckets through one
// contract.
//
// Example usage with S3:
//
//	import (
//	    _ "gocloud.dev/blob/s3blob"
//	    "github.com/relaycache/relaycache/blobcache"
//	)
//
//	store, err := blobcache.New(ctx, blobcache.Config{BucketURL: "s3://my-bucket?region=us-west-2"})
package blobcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/relaycache/relaycache"
)

// Config holds the configuration for a Storage.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g. "s3://bucket?region=us-west-2").
	BucketURL string
	// KeyPrefix is prepended to all cache keys (default "cache/").
	KeyPrefix string
	// Timeout bounds each blob operation when ctx carries no deadline.
	Timeout time.Duration
	// Bucket is an optional pre-opened bucket; when set, BucketURL is ignored.
	Bucket *blob.Bucket
}

func (c *Config) withDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cache/"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Storage is a relaycache.Storage backed by a gocloud.dev/blob bucket.
// Entries are stored as a gob-encoded (Entry, expiry) envelope so TTL is
// enforced lazily on Get, since object storage has no native per-key TTL
// in the general case.
type Storage struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ownsBucket bool
}

type record struct {
	Entry     relaycache.Entry
	ExpiresAt int64 // unix seconds; zero means no expiry
}

// New opens the bucket named by config.BucketURL (or uses config.Bucket
// if already open). Call Close() when done.
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.BucketURL == "" && config.Bucket == nil {
		return nil, fmt.Errorf("blobcache: either BucketURL or Bucket must be provided")
	}
	config.withDefaults()

	if config.Bucket != nil {
		return &Storage{bucket: config.Bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
	}

	bucket, err := blob.OpenBucket(ctx, config.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("blobcache: open bucket failed: %w", err)
	}
	return &Storage{bucket: bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout, ownsBucket: true}, nil
}

func (s *Storage) blobKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return s.keyPrefix + hex.EncodeToString(hash[:])
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Storage) Get(ctx context.Context, key string) (relaycache.Entry, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	blobKey := s.blobKey(key)
	reader, err := s.bucket.NewReader(ctx, blobKey, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return relaycache.Entry{}, false, nil
		}
		return relaycache.Entry{}, false, fmt.Errorf("blobcache: get failed for key %q: %w", key, err)
	}
	defer reader.Close() //nolint:errcheck // best effort cleanup

	raw, err := io.ReadAll(reader)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("blobcache: read failed for key %q: %w", key, err)
	}

	rec, err := decode(raw)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("blobcache: decode failed for key %q: %w", key, err)
	}
	if rec.ExpiresAt != 0 && time.Now().Unix() >= rec.ExpiresAt {
		_ = s.bucket.Delete(ctx, blobKey)
		return relaycache.Entry{}, false, nil
	}
	return rec.Entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec := record{Entry: entry}
	if ttl > 0 {
		rec.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	raw, err := encode(rec)
	if err != nil {
		return fmt.Errorf("blobcache: encode failed for key %q: %w", key, err)
	}

	writer, err := s.bucket.NewWriter(ctx, s.blobKey(key), nil)
	if err != nil {
		return fmt.Errorf("blobcache: set failed to open writer for key %q: %w", key, err)
	}
	_, writeErr := writer.Write(raw)
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobcache: set failed to write for key %q: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobcache: set failed to close writer for key %q: %w", key, closeErr)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.bucket.Delete(ctx, s.blobKey(key))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobcache: delete failed for key %q: %w", key, err)
	}
	return nil
}

// Close closes the bucket if this Storage opened it.
func (s *Storage) Close() error {
	if s.ownsBucket {
		return s.bucket.Close()
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

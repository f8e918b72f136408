// Package compresscache provides a relaycache.Storage decorator that
// compresses cached response bodies to reduce storage footprint and, for
// disk/network-backed tiers, I/O cost. Supports gzip, brotli, and snappy.
package compresscache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/relaycache/relaycache"
)

// Algorithm identifies a supported compression scheme.
type Algorithm int

const (
	Gzip Algorithm = iota
	Brotli
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// headerName marks a stored entry with the algorithm its body was
// compressed with, so Get can decompress correctly even after the
// Storage has been reconfigured to a different algorithm.
const headerName = "X-Relaycache-Compression"

// Storage wraps an underlying relaycache.Storage, compressing
// Entry.Body on Set and transparently decompressing it on Get.
type Storage struct {
	underlying relaycache.Storage
	algorithm  Algorithm
	compress   func([]byte) ([]byte, error)
}

// NewGzip wraps underlying with Gzip compression at the given level
// (0 selects gzip.DefaultCompression).
func NewGzip(underlying relaycache.Storage, level int) (*Storage, error) {
	if underlying == nil {
		return nil, fmt.Errorf("compresscache: underlying storage cannot be nil")
	}
	compress, err := gzipCompressor(level)
	if err != nil {
		return nil, err
	}
	return &Storage{underlying: underlying, algorithm: Gzip, compress: compress}, nil
}

// NewBrotli wraps underlying with Brotli compression at the given level
// (0 selects a level of 6).
func NewBrotli(underlying relaycache.Storage, level int) (*Storage, error) {
	if underlying == nil {
		return nil, fmt.Errorf("compresscache: underlying storage cannot be nil")
	}
	compress, err := brotliCompressor(level)
	if err != nil {
		return nil, err
	}
	return &Storage{underlying: underlying, algorithm: Brotli, compress: compress}, nil
}

// NewSnappy wraps underlying with Snappy compression.
func NewSnappy(underlying relaycache.Storage) (*Storage, error) {
	if underlying == nil {
		return nil, fmt.Errorf("compresscache: underlying storage cannot be nil")
	}
	return &Storage{underlying: underlying, algorithm: Snappy, compress: snappyCompress}, nil
}

// Get fetches the entry and, if it carries a compression marker,
// decompresses its body with the algorithm named in the marker —
// independent of the algorithm this Storage was constructed with, so a
// cache populated under one algorithm stays readable after a redeploy
// switches to another.
func (s *Storage) Get(ctx context.Context, key string) (relaycache.Entry, bool, error) {
	entry, hit, err := s.underlying.Get(ctx, key)
	if err != nil || !hit {
		return entry, hit, err
	}

	algo := entry.Header.Get(headerName)
	if algo == "" {
		return entry, true, nil
	}

	decompress, err := decompressorFor(algo)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("compresscache: get failed for key %q: %w", key, err)
	}
	body, err := decompress(entry.Body)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("compresscache: decompress failed for key %q: %w", key, err)
	}

	out := entry
	out.Header = entry.Header.Clone()
	out.Header.Del(headerName)
	out.Body = body
	return out, true, nil
}

// Set compresses entry.Body and stores the result, marked with the
// configured algorithm. If compression fails the entry is stored
// uncompressed rather than dropped.
func (s *Storage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	compressed, err := s.compress(entry.Body)
	if err != nil {
		relaycache.GetLogger().Warn("compresscache: compression failed, storing uncompressed",
			"key", key, "algorithm", s.algorithm.String(), "error", err)
		return s.underlying.Set(ctx, key, entry, ttl)
	}

	stored := entry
	stored.Header = entry.Header.Clone()
	if stored.Header == nil {
		stored.Header = http.Header{}
	}
	stored.Header.Set(headerName, s.algorithm.String())
	stored.Body = compressed
	return s.underlying.Set(ctx, key, stored, ttl)
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.underlying.Remove(ctx, key)
}

func decompressorFor(algo string) (func([]byte) ([]byte, error), error) {
	switch algo {
	case Gzip.String():
		return gzipDecompress, nil
	case Brotli.String():
		return brotliDecompress, nil
	case Snappy.String():
		return snappyDecompress, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algo)
	}
}

var _ relaycache.Storage = (*Storage)(nil)

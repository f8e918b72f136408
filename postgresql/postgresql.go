// Package postgresql provides a relaycache.Storage implementation backed
// by PostgreSQL via github.com/jackc/pgx/v5 and pgxpool.
package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaycache/relaycache"
)

// ErrNilPool is returned when a nil pool is provided to NewWithPool.
var ErrNilPool = errors.New("postgresql: pool cannot be nil")

const (
	// DefaultTableName is the default table name for cache storage.
	DefaultTableName = "relaycache_entries"
	// DefaultKeyPrefix is the default prefix for cache keys.
	DefaultKeyPrefix = "cache:"
)

// Storage is a relaycache.Storage backed by a PostgreSQL table, with
// expiry enforced on read (Get filters out rows past expires_at).
type Storage struct {
	pool      *pgxpool.Pool
	tableName string
	keyPrefix string
	timeout   time.Duration
}

// Config holds the configuration for a Storage.
type Config struct {
	// TableName is the table storing cache entries (default "relaycache_entries").
	TableName string
	// KeyPrefix is prepended to every cache key (default "cache:").
	KeyPrefix string
	// Timeout bounds each database operation when ctx carries no deadline.
	Timeout time.Duration
}

func (c *Config) withDefaults() {
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
}

func (s *Storage) cacheKey(key string) string {
	return s.keyPrefix + key
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

	query := `SELECT data FROM ` + s.tableName + ` WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`
	var raw []byte
	if err := s.pool.QueryRow(ctx, query, s.cacheKey(key)).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return relaycache.Entry{}, false, nil
		}
		return relaycache.Entry{}, false, fmt.Errorf("postgresql: get failed for key %q: %w", key, err)
	}

	entry, err := relaycache.DecodeEntry(raw)
	if err != nil {
		return relaycache.Entry{}, false, fmt.Errorf("postgresql: decode failed for key %q: %w", key, err)
	}
	return entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := relaycache.EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("postgresql: encode failed for key %q: %w", key, err)
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	query := `
		INSERT INTO ` + s.tableName + ` (key, data, created_at, expires_at)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (key) DO UPDATE SET data = $2, created_at = now(), expires_at = $3
	`
	if _, err := s.pool.Exec(ctx, query, s.cacheKey(key), raw, expiresAt); err != nil {
		return fmt.Errorf("postgresql: set failed for key %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM ` + s.tableName + ` WHERE key = $1`
	if _, err := s.pool.Exec(ctx, query, s.cacheKey(key)); err != nil {
		return fmt.Errorf("postgresql: delete failed for key %q: %w", key, err)
	}
	return nil
}

// CreateTable creates the cache table if it doesn't exist.
func (s *Storage) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ
		)
	`
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Close releases the underlying connection pool.
func (s *Storage) Close() {
	s.pool.Close()
}

// NewWithPool returns a Storage using the provided connection pool.
func NewWithPool(pool *pgxpool.Pool, config Config) (*Storage, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	config.withDefaults()
	return &Storage{
		pool:      pool,
		tableName: config.TableName,
		keyPrefix: config.KeyPrefix,
		timeout:   config.Timeout,
	}, nil
}

// New opens a connection pool to connString and ensures the cache table
// exists.
func New(ctx context.Context, connString string, config Config) (*Storage, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	config.withDefaults()

	s := &Storage{
		pool:      pool,
		tableName: config.TableName,
		keyPrefix: config.KeyPrefix,
		timeout:   config.Timeout,
	}
	if err := s.CreateTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

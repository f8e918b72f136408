package prometheus

import (
	"context"
	"time"

	"github.com/relaycache/relaycache"
	"github.com/relaycache/relaycache/metrics"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultSuccess = "success"
	resultError   = "error"
)

// InstrumentedStorage wraps a relaycache.Storage, recording a
// metrics.Collector observation for every Get/Set/Remove call.
type InstrumentedStorage struct {
	underlying relaycache.Storage
	collector  metrics.Collector
	backend    string // backend name: "memory", "redis", "leveldb", ...
}

// NewInstrumentedStorage wraps underlying, recording metrics against
// collector (metrics.DefaultCollector if nil) under the given backend
// label.
func NewInstrumentedStorage(underlying relaycache.Storage, backend string, collector metrics.Collector) *InstrumentedStorage {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedStorage{underlying: underlying, collector: collector, backend: backend}
}

func (s *InstrumentedStorage) Get(ctx context.Context, key string) (relaycache.Entry, bool, error) {
	start := time.Now()
	entry, hit, err := s.underlying.Get(ctx, key)
	duration := time.Since(start)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case hit:
		result = resultHit
	}
	s.collector.RecordCacheOperation("get", s.backend, result, duration)

	return entry, hit, err
}

func (s *InstrumentedStorage) Set(ctx context.Context, key string, entry relaycache.Entry, ttl time.Duration) error {
	start := time.Now()
	err := s.underlying.Set(ctx, key, entry, ttl)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	s.collector.RecordCacheOperation("set", s.backend, result, duration)

	return err
}

func (s *InstrumentedStorage) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.underlying.Remove(ctx, key)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	s.collector.RecordCacheOperation("remove", s.backend, result, duration)

	return err
}

var _ relaycache.Storage = (*InstrumentedStorage)(nil)

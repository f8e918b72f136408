package prometheus

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	prom "github.com/prometheus/client_golang/prometheus"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollectorWithConfig(CollectorConfig{Registry: prom.NewRegistry()})
}

func counterValue(t *testing.T, c prom.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordCacheOperationIncrementsCounter(t *testing.T) {
	c := newTestCollector(t)
	c.RecordCacheOperation("get", "memory", "hit", 5*time.Millisecond)

	got := counterValue(t, c.cacheRequests.WithLabelValues("get", "memory", "hit"))
	if got != 1 {
		t.Fatalf("cache_requests_total = %v, want 1", got)
	}
}

func TestRecordHTTPRequestIncrementsCounter(t *testing.T) {
	c := newTestCollector(t)
	c.RecordHTTPRequest("GET", "hit", 200, 10*time.Millisecond)

	got := counterValue(t, c.httpRequests.WithLabelValues("GET", "hit", "200"))
	if got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestRecordCacheSizeSetsGauge(t *testing.T) {
	c := newTestCollector(t)
	c.RecordCacheSize("redis", 4096)

	var m dto.Metric
	if err := c.cacheSize.WithLabelValues("redis").Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.GetGauge().GetValue() != 4096 {
		t.Fatalf("cache_size_bytes = %v, want 4096", m.GetGauge().GetValue())
	}
}

func TestRecordHTTPResponseSizeAccumulates(t *testing.T) {
	c := newTestCollector(t)
	c.RecordHTTPResponseSize("hit", 100)
	c.RecordHTTPResponseSize("hit", 50)

	got := counterValue(t, c.httpResponseSize.WithLabelValues("hit"))
	if got != 150 {
		t.Fatalf("http_response_size_bytes_total = %v, want 150", got)
	}
}

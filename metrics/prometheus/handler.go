package prometheus

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/relaycache/relaycache/metrics"
)

// InstrumentedHandler wraps an http.Handler — typically a
// *relaycache.Middleware — recording per-request metrics derived from
// the X-Plack-Cache trace header it leaves on every response.
type InstrumentedHandler struct {
	underlying http.Handler
	collector  metrics.Collector
}

// NewInstrumentedHandler wraps underlying, recording metrics against
// collector (metrics.DefaultCollector if nil).
func NewInstrumentedHandler(underlying http.Handler, collector metrics.Collector) *InstrumentedHandler {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedHandler{underlying: underlying, collector: collector}
}

func (h *InstrumentedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	start := time.Now()
	h.underlying.ServeHTTP(rec, r)
	duration := time.Since(start)

	cacheStatus := classify(rec.Header().Get("X-Plack-Cache"), rec.status)

	h.collector.RecordHTTPRequest(r.Method, cacheStatus, rec.status, duration)
	if contentLength := rec.Header().Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			h.collector.RecordHTTPResponseSize(cacheStatus, size)
		}
	}
}

// classify maps a dispatcher trace (comma-joined tokens, e.g. "lookup,
// hit, refurbish") to the coarse cache_status label metrics consumers
// expect.
func classify(trace string, status int) string {
	switch {
	case status == http.StatusNotModified:
		return "revalidated"
	case strings.Contains(trace, "hit"):
		return "hit"
	case strings.Contains(trace, "pass"):
		return "bypass"
	case strings.Contains(trace, "miss"):
		return "miss"
	default:
		return "bypass"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

var _ http.Handler = (*InstrumentedHandler)(nil)

package relaycache

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
)

func TestResilienceRetryRecoversFromTransientFailure(t *testing.T) {
	var attempts int32
	origin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Cache-Control", "max-age=60")
		w.Write([]byte("recovered"))
	})

	mw, err := New(origin, NewMemoryStorage(),
		WithRules([]Rule{{Matcher: RegexMatcher{Pattern: regexp.MustCompile(`^/.*$`)}, TTL: Positive(60)}}),
		WithResilience(ResilienceConfig{RetryPolicy: RetryPolicyBuilder().Build()}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp := doGet(t, mw, "/page")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after retries recovered the request", resp.StatusCode)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestNoResilienceConfiguredCallsDownstreamOnce(t *testing.T) {
	var attempts int32
	origin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mw, err := New(origin, NewMemoryStorage(), WithRules([]Rule{
		{Matcher: RegexMatcher{Pattern: regexp.MustCompile(`^/.*$`)}, TTL: Positive(60)},
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doGet(t, mw, "/page")
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry policy configured)", attempts)
	}
}

func TestResilienceCircuitBreakerOpensAfterFailures(t *testing.T) {
	var attempts int32
	origin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	mw, err := New(origin, NewMemoryStorage(),
		WithRules([]Rule{{Matcher: RegexMatcher{Pattern: regexp.MustCompile(`^/.*$`)}, TTL: Positive(60)}}),
		WithResilience(ResilienceConfig{
			CircuitBreaker: CircuitBreakerBuilder().WithFailureThreshold(2).Build(),
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 2; i++ {
		resp := doGet(t, mw, "/page")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("request %d: status = %d, want the origin's 503 while the breaker is closed", i, resp.StatusCode)
		}
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("attempts = %d, want 2 before the breaker opens", attempts)
	}

	resp := doGet(t, mw, "/page")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502 while breaker is open", resp.StatusCode)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("attempts = %d, want still 2 (breaker should short-circuit the call)", attempts)
	}
}

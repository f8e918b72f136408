package relaycache

import (
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// downstreamResult bundles the materialised response and body so a
// single failsafe-go policy chain can retry/circuit-break the whole
// backend round trip (§9: resilience only governs whether the call is
// retried before its outcome is handed to C6 — it never turns a backend
// error into a cache hit).
type downstreamResult struct {
	resp *http.Response
	body []byte
}

// ResilienceConfig holds optional retry/circuit-breaker policies applied
// around each backend round trip made during fetch or validate. Both
// fields are nil (disabled) by default; enabling either is opt-in via
// WithResilience.
type ResilienceConfig struct {
	RetryPolicy    retrypolicy.RetryPolicy[*downstreamResult]
	CircuitBreaker circuitbreaker.CircuitBreaker[*downstreamResult]
}

// RetryPolicyBuilder returns a pre-configured builder: retries network
// errors and 5xx responses, up to 3 retries (4 attempts in all) with
// exponential backoff.
func RetryPolicyBuilder() retrypolicy.Builder[*downstreamResult] {
	return retrypolicy.NewBuilder[*downstreamResult]().
		HandleIf(func(r *downstreamResult, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.resp != nil && r.resp.StatusCode >= 500
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a pre-configured builder: opens after 5
// consecutive failures (network error or 5xx), half-opens after 60s.
func CircuitBreakerBuilder() circuitbreaker.Builder[*downstreamResult] {
	return circuitbreaker.NewBuilder[*downstreamResult]().
		HandleIf(func(r *downstreamResult, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.resp != nil && r.resp.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// callDownstreamResilient invokes callDownstream, wrapped in m's
// resilience policies when configured. With no policies configured it
// degrades to a direct call with no retry/breaker overhead.
func (m *Middleware) callDownstreamResilient(req *http.Request) (*http.Response, []byte, error) {
	if m.resilience == nil {
		return callDownstream(m.downstream, req)
	}

	var policies []failsafe.Policy[*downstreamResult]
	if m.resilience.RetryPolicy != nil {
		policies = append(policies, m.resilience.RetryPolicy)
	}
	if m.resilience.CircuitBreaker != nil {
		policies = append(policies, m.resilience.CircuitBreaker)
	}
	if len(policies) == 0 {
		return callDownstream(m.downstream, req)
	}

	result, err := failsafe.With(policies...).Get(func() (*downstreamResult, error) {
		resp, body, cerr := callDownstream(m.downstream, req)
		if cerr != nil {
			return nil, cerr
		}
		return &downstreamResult{resp: resp, body: body}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result.resp, result.body, nil
}

package relaycache

import "net/http"

// Option configures a Middleware at construction time. Options that can
// fail (rule-set validation) return an error rather than panicking, per
// §7: rule misconfiguration is a fatal initialisation error, never a
// runtime surprise.
type Option func(*Middleware) error

// Middleware is the HTTP caching dispatcher (C5): it sits in front of a
// downstream http.Handler and serves cacheable responses out of Storage,
// revalidating or fetching as the dispatch state machine requires.
type Middleware struct {
	downstream http.Handler
	storage    Storage

	rules *RuleSet

	scrub          []string
	cacheQueries   bool
	allowReload    bool
	privateHeaders []string

	resilience *ResilienceConfig
}

// New constructs a Middleware wrapping downstream. A nil storage is
// replaced by an in-process MemoryStorage. With no options, it uses an
// empty rule set, no scrubbed headers, query strings excluded from the
// cache key, reload disabled, and no resilience policies.
func New(downstream http.Handler, storage Storage, opts ...Option) (*Middleware, error) {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	m := &Middleware{
		downstream: downstream,
		storage:    storage,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WithRules installs an ordered rule set built from rules. Validation
// errors (nil matcher, inverted range) abort construction.
func WithRules(rules []Rule) Option {
	return func(m *Middleware) error {
		rs, err := NewRuleSet(rules)
		if err != nil {
			return err
		}
		m.rules = rs
		return nil
	}
}

// WithScrub sets the response headers stripped from every fetched
// response before it is cached or returned (§4.5, e.g. hop-by-hop or
// backend-internal headers like Set-Cookie).
func WithScrub(headers ...string) Option {
	return func(m *Middleware) error {
		m.scrub = append([]string(nil), headers...)
		return nil
	}
}

// WithCacheQueries includes the request's raw query string in the cache
// key instead of the default behaviour of treating any query string as
// uncacheable (§4.4).
func WithCacheQueries() Option {
	return func(m *Middleware) error {
		m.cacheQueries = true
		return nil
	}
}

// WithAllowReload enables the Cache-Control: no-cache request directive
// as a client-triggered forced reload (§4.4 "Reload").
func WithAllowReload() Option {
	return func(m *Middleware) error {
		m.allowReload = true
		return nil
	}
}

// WithPrivateHeaders names request headers (e.g. Cookie, Authorization)
// whose presence marks an otherwise-cacheable response private unless it
// already declares public (§4.5).
func WithPrivateHeaders(headers ...string) Option {
	return func(m *Middleware) error {
		m.privateHeaders = append([]string(nil), headers...)
		return nil
	}
}

// WithResilience wraps every backend call made during fetch or validate
// in the given retry/circuit-breaker policies. Pass-through requests
// call the backend directly.
func WithResilience(cfg ResilienceConfig) Option {
	return func(m *Middleware) error {
		m.resilience = &cfg
		return nil
	}
}

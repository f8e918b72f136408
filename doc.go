// Package relaycache implements an HTTP caching middleware: an http.Handler
// that sits in front of a backend http.Handler, intercepts GET/HEAD
// requests, and serves responses from a pluggable key/value Storage when
// freshness and validation rules permit, falling back to the backend
// otherwise.
//
// It implements the subset of RFC 2616 §13 (HTTP/1.1 caching) semantics
// appropriate for a shared cache: freshness from Cache-Control/Expires,
// conditional revalidation with If-Modified-Since/If-None-Match,
// invalidation on unsafe methods, pass-through of uncacheable traffic, and
// per-route TTL rules. It does not implement private (per-user) caching,
// Vary-based variant selection, stale-while-revalidate/stale-if-error, or
// coalescing of concurrent misses.
package relaycache

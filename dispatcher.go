package relaycache

import (
	"net/http"
	"time"
)

// ServeHTTP is the request dispatcher (C5): it classifies the inbound
// request, consults the cache, and arbitrates between serving a stored
// hit, revalidating a stale one, or fetching from and possibly storing
// into the backend. See §4.4 for the full state machine this follows.
func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := clock.Now()
	tr := &trace{}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		tr.emit(TraceInvalidate)
		key := canonicalKey(r, m.cacheQueries)
		m.remove(r, key)
		tr.emit(TracePass)
		m.pass(w, r, tr, start)
		return
	}

	if r.Header.Get("Expect") != "" {
		tr.emit(TraceExpect)
		tr.emit(TracePass)
		m.pass(w, r, tr, start)
		return
	}

	reqCC := parseDirectives(r.Header.Get("Cache-Control"))
	if reqCC.NoCache && m.allowReload {
		tr.emit(TraceReload)
		spec, _, matched := m.rules.Match(r.URL.Path)
		if matched && spec.Kind == TTLInvalidate {
			matched = false // a forced reload is never itself an invalidation
		}
		key := canonicalKey(r, m.cacheQueries)
		m.fetchAndServe(w, r, tr, start, key, spec, matched)
		return
	}

	tr.emit(TraceLookup)

	if r.URL.RawQuery != "" && !m.cacheQueries {
		tr.emit(TraceInvalidate)
		m.remove(r, canonicalKeyNoQuery(r))
		tr.emit(TracePass)
		m.pass(w, r, tr, start)
		return
	}

	spec, rewritten, matched := m.rules.Match(r.URL.Path)
	if !matched {
		tr.emit(TracePass)
		m.pass(w, r, tr, start)
		return
	}

	key := canonicalKeyForPath(r, rewritten, m.cacheQueries)

	if spec.Kind == TTLInvalidate {
		tr.emit(TraceInvalidate)
		m.remove(r, key)
		tr.emit(TracePass)
		m.pass(w, r, tr, start)
		return
	}

	entry, hit, err := m.storage.Get(r.Context(), key)
	if err != nil {
		GetLogger().Warn("relaycache: storage get failed, treating as miss", "key", key, "error", err)
		hit = false
	}

	if !hit {
		tr.emit(TraceMiss)
		tr.emit(TraceFetch)
		m.fetchAndServe(w, r, tr, start, key, spec, matched)
		return
	}

	tr.emit(TraceHit)
	view := NewView(entry.Status, entry.Header.Clone(), entry.Body)

	if view.IsFresh() {
		tr.emit(TraceRefurbish)
		// Recompute Age from the stored Date rather than trusting a
		// possibly-stale Age header carried over from the original
		// fetch (Open Question 4 decision).
		fresh := view.Header().Clone()
		fresh.Del("Age")
		view = NewView(view.Status(), fresh, view.Body())
		view.SetAge(view.Age())
		m.writeResponse(w, view, tr, key, start, 0, false)
		return
	}

	tr.emit(TraceValidate)
	backendStart := clock.Now()
	vr, verr := m.validate(r, entry)
	backendElapsed := clock.Now().Sub(backendStart)
	if verr != nil {
		writeBackendError(w, verr)
		return
	}

	if vr.notModified {
		tr.emit(TraceNotModified)
		if vr.view.Status() != http.StatusNotModified {
			// the merged-onto-stored branch (not the client's-own-ETag
			// verbatim-304 branch): persist the refreshed metadata so
			// the next hit sees the new validators, unless the merged
			// headers (e.g. a newly private/no-store origin) now say
			// this entry must not be stored.
			if vr.view.IsCacheable() {
				m.save(r, key, Entry{
					RequestHeader: entry.RequestHeader,
					Status:        vr.view.Status(),
					Header:        vr.view.Header().Clone(),
					Body:          vr.view.Body(),
				}, spec, matched)
			}
		}
		m.writeResponse(w, vr.view, tr, key, start, backendElapsed, true)
		return
	}

	if vr.store != nil && m.save(r, key, *vr.store, spec, matched) {
		tr.emit(TraceStore)
	}
	m.writeResponse(w, vr.view, tr, key, start, backendElapsed, true)
}

// fetchAndServe drives the miss/reload branch: fetch, resolve TTL, mark
// private, store iff cacheable, and write the response.
func (m *Middleware) fetchAndServe(w http.ResponseWriter, r *http.Request, tr *trace, start time.Time, key string, spec TTLSpec, matched bool) {
	backendStart := clock.Now()
	view, err := m.fetch(r)
	backendElapsed := clock.Now().Sub(backendStart)
	if err != nil {
		writeBackendError(w, err)
		return
	}

	m.markPrivateIfNeeded(view, r)

	if view.IsCacheable() {
		stored := m.save(r, key, Entry{
			RequestHeader: r.Header.Clone(),
			Status:        view.Status(),
			Header:        view.Header().Clone(),
			Body:          view.Body(),
		}, spec, matched)
		if stored {
			tr.emit(TraceStore)
		}
	}

	m.writeResponse(w, view, tr, key, start, backendElapsed, true)
}

// pass forwards the request to the backend unconditionally: no storage
// lookup, no store on the way out.
func (m *Middleware) pass(w http.ResponseWriter, r *http.Request, tr *trace, start time.Time) {
	backendStart := clock.Now()
	resp, body, err := callDownstream(m.downstream, r)
	backendElapsed := clock.Now().Sub(backendStart)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	view := NewView(resp.StatusCode, resp.Header, body)
	m.writeResponse(w, view, tr, "", start, backendElapsed, true)
}

// save computes the effective TTL and persists entry, logging (and
// suppressing) any storage error per §7. Reports whether a Set was
// actually attempted, for trace purposes.
func (m *Middleware) save(r *http.Request, key string, entry Entry, spec TTLSpec, matched bool) bool {
	view := NewView(entry.Status, entry.Header, entry.Body)
	ttl, ok := resolveTTL(view, spec, matched)
	if !ok || ttl <= 0 {
		return false
	}
	if err := m.storage.Set(r.Context(), key, entry, time.Duration(ttl)*time.Second); err != nil {
		GetLogger().Warn("relaycache: storage set failed", "key", key, "error", err)
	}
	return true
}

// remove deletes key from storage, logging (and suppressing) any error.
func (m *Middleware) remove(r *http.Request, key string) {
	if err := m.storage.Remove(r.Context(), key); err != nil {
		GetLogger().Warn("relaycache: storage remove failed", "key", key, "error", err)
	}
}

// writeResponse finalises view, stamps the trace/timing headers, and
// emits it to w.
func (m *Middleware) writeResponse(w http.ResponseWriter, view *View, tr *trace, key string, start time.Time, backendElapsed time.Duration, calledBackend bool) {
	status, header, body := view.Finalize()

	total := clock.Now().Sub(start) - backendElapsed
	if total < 0 {
		total = 0
	}

	header.Set("X-Plack-Cache", tr.header())
	if key != "" {
		header.Set("X-Plack-Cache-Key", key)
	}
	header.Set("X-Plack-Cache-Time", formatMicros(total))
	if calledBackend {
		header.Set("X-Plack-Cache-Time-Pass", formatMicros(backendElapsed))
	}

	for k, vs := range header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		w.Write(body)
	}
}

// writeBackendError reports a backend failure as a 502, matching the
// "propagate unchanged" policy of §7 translated into the one vocabulary
// an http.Handler can use to signal failure to its own caller.
func writeBackendError(w http.ResponseWriter, err error) {
	GetLogger().Error("relaycache: backend call failed", "error", err)
	http.Error(w, "bad gateway", http.StatusBadGateway)
}

func formatMicros(d time.Duration) string {
	return formatAge(int(d.Microseconds()))
}

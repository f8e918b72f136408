package relaycache

import (
	"net/http"
	"strings"
)

// fixedHeaders is the set of headers copied by name from a 304 response
// onto the stored response during validation merge. Per Open Question 3,
// this replaces the source's nameless header_set call (evidently a bug)
// with an explicit, fixed list.
var fixedHeaders = []string{"Date", "Expires", "Cache-Control", "ETag", "Last-Modified"}

// fetch builds a conditional-free sub-request (we are not conditionally
// fetching), calls the backend, scrubs forbidden headers, and wraps the
// result. Used for both a cache miss and a forced reload.
func (m *Middleware) fetch(req *http.Request) (*View, error) {
	sub := cloneRequest(req)
	sub.Header.Del("If-Modified-Since")
	sub.Header.Del("If-None-Match")

	resp, body, err := m.callDownstreamResilient(sub)
	if err != nil {
		return nil, err
	}

	for _, h := range m.scrub {
		resp.Header.Del(h)
	}

	return NewView(resp.StatusCode, resp.Header, body), nil
}

// validateResult is the outcome of a conditional revalidation.
type validateResult struct {
	view        *View
	notModified bool
	store       *Entry // non-nil when a freshly fetched (non-304) response should be stored
}

// validate performs the stale-hit revalidation flow (§4.5): builds a
// conditional sub-request carrying the stored Last-Modified and the
// union of ETags, and interprets the backend's answer.
func (m *Middleware) validate(req *http.Request, stored Entry) (validateResult, error) {
	sub := cloneRequest(req)

	if lm := stored.Header.Get("Last-Modified"); lm != "" {
		sub.Header.Set("If-Modified-Since", lm)
	}

	clientETags := splitETags(req.Header.Get("If-None-Match"))
	storedETags := splitETags(stored.Header.Get("ETag"))
	union := unionETags(clientETags, storedETags)
	if len(union) > 0 {
		sub.Header.Set("If-None-Match", strings.Join(union, ", "))
	}

	resp, body, err := m.callDownstreamResilient(sub)
	if err != nil {
		return validateResult{}, err
	}

	if resp.StatusCode == http.StatusNotModified {
		etagIn304 := resp.Header.Get("ETag")
		if etagIn304 != "" && containsString(clientETags, etagIn304) && !containsString(storedETags, etagIn304) {
			// The client's own validator matched something new at the
			// origin; return the 304 verbatim.
			return validateResult{view: NewView(http.StatusNotModified, resp.Header, nil), notModified: true}, nil
		}

		merged := stored.Header.Clone()
		for _, h := range fixedHeaders {
			if v := resp.Header.Get(h); v != "" {
				merged.Set(h, v)
			}
		}
		// Drop the stale Age so the merged view's Age recomputes from
		// the freshly merged Date, per the refurbish-recomputation
		// decision (never reuse a prior Age after a validator refresh).
		merged.Del("Age")
		mergedView := NewView(stored.Status, merged, stored.Body)
		mergedView.SetAge(mergedView.Age())
		return validateResult{view: mergedView, notModified: true}, nil
	}

	// A 5xx (or any other status) here does NOT evict the existing
	// entry — grace, per §4.5 and Testable boundary "Status 500 from
	// backend on validate ⇒ stored entry retained".
	for _, h := range m.scrub {
		resp.Header.Del(h)
	}
	view := NewView(resp.StatusCode, resp.Header, body)
	m.markPrivateIfNeeded(view, req)

	result := validateResult{view: view}
	if view.IsCacheable() {
		result.store = &Entry{
			RequestHeader: req.Header.Clone(),
			Status:        view.Status(),
			Header:        view.Header().Clone(),
			Body:          view.Body(),
		}
	}
	return result, nil
}

// markPrivateIfNeeded marks view private when any configured
// PrivateHeaders member is present on req and view does not already
// declare public (§4.5).
func (m *Middleware) markPrivateIfNeeded(view *View, req *http.Request) {
	if view.IsPublic() {
		return
	}
	for _, h := range m.privateHeaders {
		if req.Header.Get(h) != "" {
			view.MarkPrivate()
			return
		}
	}
}

// resolveTTL computes the effective storage TTL in seconds per §4.5:
// must-revalidate always uses the response's own TTL (origin wins);
// otherwise the rule's TTL is used when the rule matched and is
// positive/range, falling back to the response's own TTL.
func resolveTTL(view *View, spec TTLSpec, matched bool) (int, bool) {
	originTTL, originOK := view.TTL()

	if view.IsMustRevalidate() {
		return originTTL, originOK
	}

	if matched {
		switch spec.Kind {
		case TTLPositive:
			return spec.Seconds, true
		case TTLRange:
			if originOK {
				return spec.clamp(originTTL), true
			}
			return spec.clamp(0), true
		}
	}

	return originTTL, originOK
}

func splitETags(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unionETags(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, group := range [][]string{a, b} {
		for _, e := range group {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

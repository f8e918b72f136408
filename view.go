package relaycache

import (
	"net/http"
	"time"
)

// headers that MUST NOT appear on a 304 Not Modified response (RFC 2616
// §10.3.5).
var headersForbiddenOn304 = []string{
	"Allow",
	"Content-Encoding",
	"Content-Language",
	"Content-Length",
	"Content-MD5",
	"Content-Type",
	"Last-Modified",
}

// View is the Response Metadata View (C1): a composed wrapper around a
// raw (status, header, body) triple plus a parsed Cache-Control directive
// set and a frozen clock reading, captured once at construction so all
// freshness math against one response uses the same "now". It does not
// extend or inherit from any framework response type — per Design Notes
// §9 this is composition, constructed explicitly by the dispatcher and
// the fetcher, never shared across requests.
type View struct {
	status int
	header http.Header
	body   []byte

	cc  directives
	now time.Time
}

// NewView wraps a response triple. header is used directly (not copied) —
// callers that need to keep the original headers untouched should clone
// first, matching the teacher's cloneRequest convention for requests.
func NewView(status int, header http.Header, body []byte) *View {
	if header == nil {
		header = http.Header{}
	}
	return &View{
		status: status,
		header: header,
		body:   body,
		cc:     parseDirectives(header.Get("Cache-Control")),
		now:    clock.Now(),
	}
}

// Status returns the wrapped response status code.
func (v *View) Status() int { return v.status }

// SetStatus overwrites the wrapped response status code.
func (v *View) SetStatus(status int) { v.status = status }

// Header returns the underlying mutable header collection.
func (v *View) Header() http.Header { return v.header }

// Body returns the wrapped response body.
func (v *View) Body() []byte { return v.body }

// SetBody overwrites the wrapped response body.
func (v *View) SetBody(b []byte) { v.body = b }

// Expires gets the parsed Expires header, per RFC 1123. Malformed or
// absent values return the zero time and false — parse failures fail
// soft, never panic.
func (v *View) Expires() (time.Time, bool) {
	return parseHTTPDate(v.header.Get("Expires"))
}

// SetExpires formats and sets the Expires header per RFC 1123.
func (v *View) SetExpires(t time.Time) {
	v.header.Set("Expires", t.UTC().Format(http.TimeFormat))
}

// Date gets the parsed Date header.
func (v *View) Date() (time.Time, bool) {
	return parseHTTPDate(v.header.Get("Date"))
}

// SetDate formats and sets the Date header.
func (v *View) SetDate(t time.Time) {
	v.header.Set("Date", t.UTC().Format(http.TimeFormat))
}

// ETag returns the opaque ETag header value, or "" if absent.
func (v *View) ETag() string { return v.header.Get("ETag") }

// SetETag sets the ETag header.
func (v *View) SetETag(s string) { v.header.Set("ETag", s) }

// Vary returns the opaque Vary header value. The core tracks this header
// (it is stored alongside the entry's request headers) but does not
// implement variant selection — negotiated-content caching is a
// documented non-goal.
func (v *View) Vary() string { return v.header.Get("Vary") }

// SetVary sets the Vary header.
func (v *View) SetVary(s string) { v.header.Set("Vary", s) }

// LastModified returns the Last-Modified header verbatim. This is
// deliberately NOT normalised to a time.Time: it is compared byte-for-byte
// against If-Modified-Since to preserve origin byte-identity for
// validator comparison (§4.1).
func (v *View) LastModified() string { return v.header.Get("Last-Modified") }

// SetLastModified sets the Last-Modified header verbatim.
func (v *View) SetLastModified(s string) { v.header.Set("Last-Modified", s) }

// Age returns the current value of the Age header computation per §3:
// the Age header if present and valid, else now − Date clamped at zero,
// else zero.
func (v *View) Age() int {
	if seconds, ok := parseAge(v.header.Get("Age")); ok {
		return seconds
	}
	if date, ok := v.Date(); ok {
		if d := int(v.now.Sub(date).Seconds()); d > 0 {
			return d
		}
	}
	return 0
}

// SetAge sets the Age header.
func (v *View) SetAge(seconds int) {
	v.header.Set("Age", formatAge(seconds))
}

// MaxAge returns the response's maximum age in seconds per §3: s-maxage
// wins over max-age when both are present and numeric; otherwise, if both
// Expires and Date parse, Expires − Date (Date defaults to "now" when
// absent); otherwise undefined.
func (v *View) MaxAge() (int, bool) {
	if v.cc.SMaxAge != nil {
		return *v.cc.SMaxAge, true
	}
	if v.cc.MaxAge != nil {
		return *v.cc.MaxAge, true
	}

	expires, ok := v.Expires()
	if !ok {
		return 0, false
	}
	date, ok := v.Date()
	if !ok {
		date = v.now
	}
	return int(expires.Sub(date).Seconds()), true
}

// TTL returns max_age − age when both are defined, else (0, false).
func (v *View) TTL() (int, bool) {
	maxAge, ok := v.MaxAge()
	if !ok {
		return 0, false
	}
	return maxAge - v.Age(), true
}

// SetTTL extends the response's lifetime by n seconds from now, by
// writing s-maxage = age + n. Per Open Question 2 this is a distinct
// operation from TTL() — there is no overloaded single accessor
// with ambiguous zero-argument semantics.
func (v *View) SetTTL(n int) {
	sMaxAge := v.Age() + n
	v.cc.SMaxAge = &sMaxAge
}

// Expire marks a fresh response as expired in place: if fresh, sets
// age := max_age, driving TTL to zero.
func (v *View) Expire() {
	if !v.IsFresh() {
		return
	}
	maxAge, _ := v.MaxAge()
	v.SetAge(maxAge)
}

// MakeNotModified rewrites the view into a conformant 304 Not Modified:
// status 304, empty body, and strips every header RFC 2616 §10.3.5
// forbids on a 304 response.
func (v *View) MakeNotModified() {
	v.status = http.StatusNotModified
	v.body = nil
	for _, h := range headersForbiddenOn304 {
		v.header.Del(h)
	}
}

// Finalize re-serialises the directive set back into a single
// Cache-Control header (comma-joined, omitted entirely when the
// directive set is empty) and returns the response triple ready for
// emission.
func (v *View) Finalize() (int, http.Header, []byte) {
	if s := v.cc.serialize(); s != "" {
		v.header.Set("Cache-Control", s)
	} else {
		v.header.Del("Cache-Control")
	}
	return v.status, v.header, v.body
}

// parseHTTPDate parses an RFC 1123 (and common variant) date header,
// failing soft to (zero, false) rather than propagating a parse error.
func parseHTTPDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{http.TimeFormat, time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package relaycache

import (
	"net/http"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

func withFrozenClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := clock
	clock = fakeClock{t: at}
	t.Cleanup(func() { clock = prev })
}

func TestViewAgeFromHeader(t *testing.T) {
	withFrozenClock(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	v := NewView(200, http.Header{"Age": {"30"}}, nil)
	if got := v.Age(); got != 30 {
		t.Fatalf("Age() = %d, want 30", got)
	}
}

func TestViewAgeFromDate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 20, 0, time.UTC)
	withFrozenClock(t, now)
	date := now.Add(-10 * time.Second)
	v := NewView(200, http.Header{"Date": {date.Format(http.TimeFormat)}}, nil)
	if got := v.Age(); got != 10 {
		t.Fatalf("Age() = %d, want 10", got)
	}
}

func TestViewAgeDefaultsZero(t *testing.T) {
	withFrozenClock(t, time.Now())
	v := NewView(200, http.Header{}, nil)
	if got := v.Age(); got != 0 {
		t.Fatalf("Age() = %d, want 0", got)
	}
}

func TestViewMaxAgeFromCacheControl(t *testing.T) {
	v := NewView(200, http.Header{"Cache-Control": {"max-age=300"}}, nil)
	maxAge, ok := v.MaxAge()
	if !ok || maxAge != 300 {
		t.Fatalf("MaxAge() = (%d, %v), want (300, true)", maxAge, ok)
	}
}

func TestViewMaxAgeSMaxAgeWins(t *testing.T) {
	v := NewView(200, http.Header{"Cache-Control": {"max-age=300, s-maxage=60"}}, nil)
	maxAge, ok := v.MaxAge()
	if !ok || maxAge != 60 {
		t.Fatalf("MaxAge() = (%d, %v), want (60, true)", maxAge, ok)
	}
}

func TestViewMaxAgeFromExpiresMinusDate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	withFrozenClock(t, now)
	date := now
	expires := now.Add(120 * time.Second)
	v := NewView(200, http.Header{
		"Date":    {date.Format(http.TimeFormat)},
		"Expires": {expires.Format(http.TimeFormat)},
	}, nil)
	maxAge, ok := v.MaxAge()
	if !ok || maxAge != 120 {
		t.Fatalf("MaxAge() = (%d, %v), want (120, true)", maxAge, ok)
	}
}

func TestViewMaxAgeUndefined(t *testing.T) {
	v := NewView(200, http.Header{}, nil)
	if _, ok := v.MaxAge(); ok {
		t.Fatal("MaxAge() should be undefined with no Cache-Control or Expires")
	}
}

func TestViewTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	withFrozenClock(t, now)
	v := NewView(200, http.Header{"Cache-Control": {"max-age=100"}, "Age": {"40"}}, nil)
	ttl, ok := v.TTL()
	if !ok || ttl != 60 {
		t.Fatalf("TTL() = (%d, %v), want (60, true)", ttl, ok)
	}
}

func TestViewIsFresh(t *testing.T) {
	fresh := NewView(200, http.Header{"Cache-Control": {"max-age=100"}, "Age": {"10"}}, nil)
	if !fresh.IsFresh() {
		t.Fatal("expected fresh view to report IsFresh")
	}
	stale := NewView(200, http.Header{"Cache-Control": {"max-age=100"}, "Age": {"200"}}, nil)
	if stale.IsFresh() {
		t.Fatal("expected stale view to report not fresh")
	}
}

func TestViewExpireDrivesTTLToZero(t *testing.T) {
	v := NewView(200, http.Header{"Cache-Control": {"max-age=100"}, "Age": {"10"}}, nil)
	v.Expire()
	if v.IsFresh() {
		t.Fatal("Expire() should make the view no longer fresh")
	}
	ttl, ok := v.TTL()
	if !ok || ttl > 0 {
		t.Fatalf("TTL() after Expire() = (%d, %v), want <= 0", ttl, ok)
	}
}

func TestViewSetTTL(t *testing.T) {
	v := NewView(200, http.Header{"Cache-Control": {"max-age=100"}, "Age": {"10"}}, nil)
	v.SetTTL(50)
	ttl, ok := v.TTL()
	if !ok || ttl != 50 {
		t.Fatalf("TTL() after SetTTL(50) = (%d, %v), want (50, true)", ttl, ok)
	}
}

func TestViewMakeNotModifiedStripsForbiddenHeaders(t *testing.T) {
	v := NewView(200, http.Header{
		"Content-Type":   {"text/plain"},
		"Content-Length": {"10"},
		"ETag":           {`"v1"`},
	}, []byte("body"))
	v.MakeNotModified()

	if v.Status() != http.StatusNotModified {
		t.Fatalf("Status() = %d, want 304", v.Status())
	}
	if v.Body() != nil {
		t.Fatal("body should be cleared on 304")
	}
	if v.Header().Get("Content-Type") != "" || v.Header().Get("Content-Length") != "" {
		t.Fatal("forbidden headers not stripped on 304")
	}
	if v.Header().Get("ETag") == "" {
		t.Fatal("ETag should survive MakeNotModified")
	}
}

func TestViewFinalizeOmitsEmptyCacheControl(t *testing.T) {
	v := NewView(200, http.Header{"Cache-Control": {"no-store"}}, nil)
	v.cc = directives{Extra: map[string]string{}}
	_, header, _ := v.Finalize()
	if header.Get("Cache-Control") != "" {
		t.Fatalf("Cache-Control = %q, want empty after clearing directives", header.Get("Cache-Control"))
	}
}

func TestViewIsValidateable(t *testing.T) {
	withETag := NewView(200, http.Header{"ETag": {`"v1"`}}, nil)
	if !withETag.IsValidateable() {
		t.Fatal("expected ETag to make the view validateable")
	}
	without := NewView(200, http.Header{}, nil)
	if without.IsValidateable() {
		t.Fatal("expected no validator to report not validateable")
	}
}

func TestViewIsCacheable(t *testing.T) {
	fresh := NewView(200, http.Header{"Cache-Control": {"max-age=60"}}, nil)
	if !fresh.IsCacheable() {
		t.Fatal("fresh 200 response should be cacheable")
	}

	noStore := NewView(200, http.Header{"Cache-Control": {"no-store, max-age=60"}}, nil)
	if noStore.IsCacheable() {
		t.Fatal("no-store response must not be cacheable")
	}

	private := NewView(200, http.Header{"Cache-Control": {"private, max-age=60"}}, nil)
	if private.IsCacheable() {
		t.Fatal("private response must not be cacheable")
	}

	uncacheableStatus := NewView(500, http.Header{"Cache-Control": {"max-age=60"}}, nil)
	if uncacheableStatus.IsCacheable() {
		t.Fatal("500 status must not be cacheable")
	}

	validateableOnly := NewView(200, http.Header{"ETag": {`"v1"`}}, nil)
	if !validateableOnly.IsCacheable() {
		t.Fatal("validateable-but-not-fresh response should still be cacheable")
	}
}

package relaycache

import "testing"

func TestParseDirectivesFlags(t *testing.T) {
	d := parseDirectives("no-store, private, must-revalidate")
	if !d.NoStore || !d.Private || !d.MustRevalidate {
		t.Fatalf("flags not parsed: %+v", d)
	}
	if d.Public || d.NoCache || d.ProxyRevalidate {
		t.Fatalf("unexpected flags set: %+v", d)
	}
}

func TestParseDirectivesMaxAge(t *testing.T) {
	d := parseDirectives("max-age=300, s-maxage=60")
	if d.MaxAge == nil || *d.MaxAge != 300 {
		t.Fatalf("max-age = %v, want 300", d.MaxAge)
	}
	if d.SMaxAge == nil || *d.SMaxAge != 60 {
		t.Fatalf("s-maxage = %v, want 60", d.SMaxAge)
	}
}

func TestParseDirectivesMalformedNumberFailsSoft(t *testing.T) {
	d := parseDirectives("max-age=not-a-number")
	if d.MaxAge != nil {
		t.Fatalf("max-age should be nil for malformed value, got %v", *d.MaxAge)
	}
	if d.Extra["max-age"] != "not-a-number" {
		t.Fatalf("malformed max-age not preserved in Extra: %+v", d.Extra)
	}
}

func TestParseDirectivesUnknownTokenPreserved(t *testing.T) {
	d := parseDirectives("immutable, stale-while-revalidate=30")
	if _, ok := d.Extra["immutable"]; !ok {
		t.Fatal("unknown flag token not preserved")
	}
	if d.Extra["stale-while-revalidate"] != "30" {
		t.Fatalf("unknown valued token not preserved: %+v", d.Extra)
	}
}

func TestParseDirectivesEmpty(t *testing.T) {
	d := parseDirectives("")
	if d.NoStore || d.NoCache || d.Private || d.Public || d.MaxAge != nil || d.SMaxAge != nil {
		t.Fatalf("empty header produced non-empty directives: %+v", d)
	}
	if d.serialize() != "" {
		t.Fatalf("serialize of empty directives = %q, want empty", d.serialize())
	}
}

func TestDirectivesRoundTrip(t *testing.T) {
	raw := "no-cache, public, max-age=120"
	d := parseDirectives(raw)
	again := parseDirectives(d.serialize())
	if again.NoCache != d.NoCache || again.Public != d.Public {
		t.Fatalf("round trip lost flags: %+v vs %+v", d, again)
	}
	if (again.MaxAge == nil) != (d.MaxAge == nil) || (d.MaxAge != nil && *again.MaxAge != *d.MaxAge) {
		t.Fatalf("round trip lost max-age: %+v vs %+v", d, again)
	}
}

package relaycache

import (
	"net"
	"net/http"
	"strings"
)

// defaultPortForScheme maps a scheme to the port elided from cache keys,
// so http://example.com and http://example.com:80 collide as intended.
var defaultPortForScheme = map[string]string{
	"http":  "80",
	"https": "443",
}

// canonicalKey builds the cache key for req per §4.4: lowercased
// scheme/host, default port elided, query stripped unless cacheQueries.
// Method is deliberately not part of the key — HEAD is answered from a
// GET entry, per spec.
func canonicalKey(req *http.Request, cacheQueries bool) string {
	scheme := strings.ToLower(req.URL.Scheme)
	if scheme == "" {
		scheme = "http"
	}

	host := req.URL.Host
	if host == "" {
		host = req.Host // server-side requests carry the host here
	}
	host = strings.ToLower(host)
	if h, p, err := net.SplitHostPort(host); err == nil {
		if defaultPortForScheme[scheme] == p {
			host = h
		}
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(req.URL.Path)

	if cacheQueries && req.URL.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(req.URL.RawQuery)
	}

	return b.String()
}

// canonicalKeyNoQuery is the key used to invalidate a request that carried
// a disallowed query string (§4.4 "Query strings").
func canonicalKeyNoQuery(req *http.Request) string {
	return canonicalKey(req, false)
}

// canonicalKeyForPath builds the cache key using path in place of
// req.URL.Path, for use after a Matcher has rewritten the path (§4.2).
func canonicalKeyForPath(req *http.Request, path string, cacheQueries bool) string {
	clone := *req.URL
	clone.Path = path
	shallow := *req
	shallow.URL = &clone
	return canonicalKey(&shallow, cacheQueries)
}

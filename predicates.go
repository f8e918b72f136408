package relaycache

// cacheableStatusCodes are the status codes a cache is permitted to
// store, per §3: 200, 203, 300, 301, 302, 404, 410.
var cacheableStatusCodes = map[int]bool{
	200: true,
	203: true,
	300: true,
	301: true,
	302: true,
	404: true,
	410: true,
}

// IsFresh reports whether the response's TTL is defined and positive.
func (v *View) IsFresh() bool {
	ttl, ok := v.TTL()
	return ok && ttl > 0
}

// IsValidateable reports whether the response carries a validator
// (Last-Modified or ETag) usable in a conditional request.
func (v *View) IsValidateable() bool {
	return v.LastModified() != "" || v.ETag() != ""
}

// IsCacheable reports whether the response may be stored at all:
// its status is in the cacheable set, it forbids neither no-store nor
// private, and it is either validateable or fresh. All predicates fail
// soft toward false — an absent or malformed signal never makes a
// response look more cacheable than it is.
func (v *View) IsCacheable() bool {
	if !cacheableStatusCodes[v.status] {
		return false
	}
	if v.cc.NoStore || v.cc.Private {
		return false
	}
	return v.IsValidateable() || v.IsFresh()
}

// IsMustRevalidate reports whether must-revalidate or proxy-revalidate
// is present.
func (v *View) IsMustRevalidate() bool {
	return v.cc.MustRevalidate || v.cc.ProxyRevalidate
}

// IsPrivate reports whether the response carries the private directive.
func (v *View) IsPrivate() bool { return v.cc.Private }

// IsPublic reports whether the response carries the public directive.
func (v *View) IsPublic() bool { return v.cc.Public }

// IsNoCache reports whether the response carries the no-cache directive.
func (v *View) IsNoCache() bool { return v.cc.NoCache }

// IsNoStore reports whether the response carries the no-store directive.
func (v *View) IsNoStore() bool { return v.cc.NoStore }

// MarkPrivate sets the private directive on the response.
func (v *View) MarkPrivate() { v.cc.Private = true }

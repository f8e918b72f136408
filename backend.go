package relaycache

import (
	"io"
	"net/http"
	"net/http/httptest"
)

// cloneRequest returns a shallow copy of req with its own Header map, so
// callers may add/strip conditional headers without mutating the
// original inbound request.
func cloneRequest(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header = req.Header.Clone()
	return clone
}

// callDownstream invokes the backend http.Handler synchronously and
// materialises the full response, per §1 ("Streaming/chunked response
// bodies are deliberately materialised fully before storage"). This is
// the Go-idiomatic stand-in for the spec's "opaque downstream callable
// returning (status, headers, body)" — httptest.ResponseRecorder already
// captures exactly that triple from an http.Handler.
func callDownstream(downstream http.Handler, req *http.Request) (*http.Response, []byte, error) {
	rec := httptest.NewRecorder()
	downstream.ServeHTTP(rec, req)
	result := rec.Result()
	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, nil, err
	}
	result.Body.Close()
	return result, body, nil
}

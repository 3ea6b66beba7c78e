// Package app defines the one external collaborator spec.md §1 leaves
// unspecified beyond its contract: the user-supplied request-handling
// callable (spec.md §6 "Application callable contract"). In a WSGI server
// that callable is app(environ, start_response); the idiomatic Go shape of
// the same contract is http.Handler, since both give the handler a
// metadata/body view of the request and a write callback for the response.
package app

import "net/http"

// Handler is the application callable. Workers call it through serveOne
// (internal/worker), which recovers a panicking handler into a 500 response
// (or a closed connection if the response had already started) rather than
// crashing the worker's event loop outright. A slow handler is not
// interrupted by serveOne; the arbiter's liveness timeout handles it.
type Handler = http.Handler

// HandlerFunc adapts a plain function to Handler, mirroring http.HandlerFunc.
type HandlerFunc = http.HandlerFunc

// Echo is a minimal reference application used by the test suite and served
// by every `gunicorn serve` worker (there is no flag to pick another app):
// it writes back the method and request URI (the body is not read),
// standing in for "a user-supplied request-handling callable"
// without requiring an external app to exercise the server end-to-end.
var Echo Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(r.Method + " " + r.URL.RequestURI() + "\n"))
})

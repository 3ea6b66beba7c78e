package worker

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tomasen/realip"

	"github.com/zippy1981/gunicorn/internal/app"
)

type ctxKey int

const (
	ctxKeyMeta ctxKey = iota
)

// RequestMeta carries the fields spec.md's external WSGI-style environ
// construction derives by hand from headers (grounded on
// _examples/original_source/gunicorn/http/wsgi.py's WSGIRequest.handle_header):
// forwarded scheme, the real client address, and a per-request correlation
// id, which appears in the worker's application-error log line. App
// handlers read all three through MetaFromContext.
type RequestMeta struct {
	Scheme     string
	ClientAddr string
	RequestID  string
}

// MetaFromContext recovers the RequestMeta app handlers can use; it is
// always present on requests built by this package.
func MetaFromContext(r *http.Request) RequestMeta {
	if m, ok := r.Context().Value(ctxKeyMeta).(RequestMeta); ok {
		return m
	}
	return RequestMeta{}
}

func buildMeta(r *http.Request, conn net.Conn) RequestMeta {
	scheme := "http"
	if v := r.Header.Get("X-Forwarded-Protocol"); strings.EqualFold(v, "ssl") {
		scheme = "https"
	}
	if v := r.Header.Get("X-Forwarded-Ssl"); strings.EqualFold(v, "on") {
		scheme = "https"
	}
	if v := r.Header.Get("X-Forwarded-Proto"); v != "" {
		scheme = v
	}
	return RequestMeta{
		Scheme:     scheme,
		ClientAddr: realip.FromRequest(r),
		RequestID:  uuid.NewString(),
	}
}

// connResponseWriter writes the response to the connection through bw as
// the handler produces it (spec.md §6 "the application returns a lazy
// sequence of byte chunks") instead of collecting the whole body first.
// Bytes reach the wire whenever bw's buffer fills and when serveOne flushes
// after the handler returns; a single Write is not flushed on its own.
type connResponseWriter struct {
	conn        net.Conn
	bw          *bufio.Writer
	req         *http.Request
	header      http.Header
	wroteHeader bool
	status      int
	bytesSent   int64
	close       bool // Connection: close on this response
}

func newResponseWriter(conn net.Conn, bw *bufio.Writer, req *http.Request, forceClose bool) *connResponseWriter {
	return &connResponseWriter{conn: conn, bw: bw, req: req, header: make(http.Header), close: forceClose}
}

func (w *connResponseWriter) Header() http.Header { return w.header }

func (w *connResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status

	if w.close {
		w.header.Set("Connection", "close")
	} else {
		w.header.Set("Connection", "keep-alive")
	}
	if w.header.Get("Date") == "" {
		w.header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}

	fmt.Fprintf(w.bw, "HTTP/1.1 %d %s\r\n", status, http.StatusText(status))
	w.header.Write(w.bw)
	w.bw.WriteString("\r\n")
}

func (w *connResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.bw.Write(p)
	w.bytesSent += int64(n)
	return n, err
}

// SendFile lets a handler stream a file-backed body through the worker's
// sendfile(2) wrapper instead of the normal Write path (spec.md §1's
// in-scope sendfile contract). It must be called instead of, not after,
// Write.
func (w *connResponseWriter) SendFile(f *os.File, size int64) error {
	if !w.wroteHeader {
		w.header.Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	n, err := Sendfile(w.conn, f, 0, size)
	w.bytesSent += n
	return err
}

// FileResponder is the optional interface a handler's ResponseWriter may be
// asked for (analogous to http.Flusher/http.Hijacker) to stream a file body
// via sendfile(2).
type FileResponder interface {
	SendFile(f *os.File, size int64) error
}

var _ FileResponder = (*connResponseWriter)(nil)

// serveOne parses and handles exactly one request off conn using bw/br,
// invoking handler and recovering from panics per spec.md §7 ("Application
// error... converted to a 500 response if no bytes have been sent,
// otherwise the connection is closed"). It reports whether the connection
// should stay open for another request.
func serveOne(conn net.Conn, br *bufio.Reader, bw *bufio.Writer, handler app.Handler, closeAfter bool, logger *log.Logger) (keepOpen bool) {
	req, err := http.ReadRequest(br)
	if err != nil {
		return false // EOF / malformed request / idle-timeout read: close quietly
	}
	defer req.Body.Close()

	if req.Header.Get("Expect") == "100-continue" {
		fmt.Fprint(bw, "HTTP/1.1 100 Continue\r\n\r\n")
		_ = bw.Flush()
	}

	forceClose := closeAfter || req.Close ||
		(!req.ProtoAtLeast(1, 1) && !strings.EqualFold(req.Header.Get("Connection"), "keep-alive"))
	meta := buildMeta(req, conn)
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyMeta, meta))

	w := newResponseWriter(conn, bw, req, forceClose)

	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("application error [%s]: %v\n%s", meta.RequestID, r, debug.Stack())
				if !w.wroteHeader {
					w.header.Set("Content-Type", "text/plain; charset=utf-8")
					w.close = true
					w.WriteHeader(http.StatusInternalServerError)
					fmt.Fprintf(w, "internal server error\n")
				} else {
					// bytes already sent: spec.md §6 says close, not repair
					w.close = true
				}
			}
		}()
		handler.ServeHTTP(w, req)
	}()

	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if err := bw.Flush(); err != nil {
		return false
	}
	return !w.close
}

// Package admin exposes a small local HTTP surface for operators:
// /status, /health, /metrics, and /sys. It is separate from the
// application listeners the arbiter hands to workers (spec.md §3's
// Listener) — this is the arbiter's own process serving its own state,
// never proxied through a worker. Grounded on the teacher's
// server.ServerState/StartServer, narrowed from a full request-proxying
// HTTP frontend (router/proxy/IPC dispatch to a JS worker) to a
// read-only supervision surface, since this domain's workers already
// accept connections directly off shared listen sockets.
package admin

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"

	"github.com/zippy1981/gunicorn/internal/control"
	"github.com/zippy1981/gunicorn/internal/sysinfo"
)

// ArbiterView is the subset of internal/arbiter.Arbiter the admin surface
// needs, kept as an interface so this package never imports internal/arbiter
// (which in turn keeps internal/arbiter free to import this one later
// without a cycle, should a future ctl command want to do so).
type ArbiterView interface {
	WorkerCount() int
	Generation() uint64
}

// Server is the admin HTTP surface. A zero-value Addr disables it
// entirely (Serve becomes a no-op), matching the rest of this module's
// "empty config value means disabled" convention.
type Server struct {
	Addr        string
	RequestRate float64 // requests/sec per client IP; <=0 disables rate limiting

	Arbiter ArbiterView
	Control *control.Bridge
	Logger  *log.Logger

	startedAt time.Time
}

func New(addr string, requestRate float64, a ArbiterView, c *control.Bridge, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[admin] ", log.LstdFlags)
	}
	return &Server{Addr: addr, RequestRate: requestRate, Arbiter: a, Control: c, Logger: logger, startedAt: time.Now()}
}

// Serve blocks running the admin HTTP server. A no-op returning nil if
// Addr is empty, so callers can always launch it in a goroutine without
// nil-checking first.
func (s *Server) Serve() error {
	if s.Addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.HandleFunc("/sys", s.sysHandler)

	var handler http.Handler = mux
	if s.RequestRate > 0 {
		lim := tollbooth.NewLimiter(s.RequestRate, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Minute})
		handler = tollbooth.LimitHandler(lim, mux)
	}
	handler = compressionMiddleware(handler)

	server := &http.Server{
		Addr:         s.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.Logger.Printf("admin surface listening on %s", s.Addr)
	return server.ListenAndServe()
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	view := map[string]any{
		"status":          "online",
		"uptime_seconds":  int64(time.Since(s.startedAt).Seconds()),
		"control_enabled": s.Control != nil,
	}
	if s.Arbiter != nil {
		view["workers"] = s.Arbiter.WorkerCount()
		view["generation"] = s.Arbiter.Generation()
	}
	writeJSON(w, view)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "healthy"})
}

// metricsHandler surfaces the per-worker StatsReport snapshots the control
// bridge has collected (spec.md's liveness/heartbeat protocol reported up a
// level), not the teacher's per-route latency histograms
// (ipc.MetricsManager) — aggregating those across independently re-exec'd
// worker processes would need infrastructure this server doesn't have yet.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if s.Control == nil {
		writeJSON(w, map[string]any{"workers": map[int]control.StatsReport{}})
		return
	}
	writeJSON(w, map[string]any{"workers": s.Control.Snapshot()})
}

func (s *Server) sysHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, sysinfo.Read())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type compressionResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w compressionResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

// compressionMiddleware mirrors the teacher's CompressionMiddleware
// (server.go), preferring brotli over gzip when the client advertises
// both, trimmed to the two algorithms this binary's go.mod already
// depends on.
func compressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept-Encoding")

		if strings.Contains(accept, "br") {
			w.Header().Set("Content-Encoding", "br")
			w.Header().Add("Vary", "Accept-Encoding")
			bw := brotli.NewWriter(w)
			defer bw.Close()
			next.ServeHTTP(compressionResponseWriter{Writer: bw, ResponseWriter: w}, r)
			return
		}

		if strings.Contains(accept, "gzip") {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Add("Vary", "Accept-Encoding")
			gz := gzip.NewWriter(w)
			defer gz.Close()
			next.ServeHTTP(compressionResponseWriter{Writer: gz, ResponseWriter: w}, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package admin

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArbiterView struct {
	workers    int
	generation uint64
}

func (f fakeArbiterView) WorkerCount() int    { return f.workers }
func (f fakeArbiterView) Generation() uint64 { return f.generation }

func TestServeIsNoopWithoutAddr(t *testing.T) {
	s := New("", 0, nil, nil, nil)
	assert.NoError(t, s.Serve())
}

func TestStatusHandlerReportsArbiterView(t *testing.T) {
	s := New("", 0, fakeArbiterView{workers: 3, generation: 7}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.statusHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"online"`)
	assert.Contains(t, body, `"workers":3`)
	assert.Contains(t, body, `"generation":7`)
}

func TestHealthHandler(t *testing.T) {
	s := New("", 0, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestMetricsHandlerWithoutControlReturnsEmptySet(t *testing.T) {
	s := New("", 0, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.metricsHandler(rec, req)

	assert.Contains(t, rec.Body.String(), `"workers":{}`)
}

func TestSysHandlerReturnsSnapshot(t *testing.T) {
	s := New("", 0, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/sys", nil)
	rec := httptest.NewRecorder()
	s.sysHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hostname"`)
}

func TestCompressionMiddlewarePrefersBrotli(t *testing.T) {
	handler := compressionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello world"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))

	reader := brotli.NewReader(rec.Body)
	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestCompressionMiddlewareFallsBackToGzip(t *testing.T) {
	handler := compressionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello world"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestCompressionMiddlewareNoEncodingPassesThrough(t *testing.T) {
	handler := compressionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello world"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "hello world", rec.Body.String())
}

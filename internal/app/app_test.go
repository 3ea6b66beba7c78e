package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEchoReportsMethodAndPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/hello?x=1", nil)
	rec := httptest.NewRecorder()

	Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST /hello?x=1\n", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

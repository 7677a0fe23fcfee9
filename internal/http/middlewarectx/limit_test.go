package middlewarectx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/examprep/internal/http/middlewarectx"
)

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewLimiter(0.001, 2)
	h := middlewarectx.RateLimitMiddleware(newNoopLogger(), limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(uid string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(middlewarectx.WithUser(req.Context(), uid))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusOK, do("u1"))
	assert.Equal(t, http.StatusTooManyRequests, do("u1"), "burst exhausted")
	assert.Equal(t, http.StatusOK, do("u2"), "other user has own bucket")
}

package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedHandler(t *testing.T, max int, window time.Duration) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Wrap(ok, RateLimit(ctx, RateLimitConfig{Max: max, Window: window}))
}

func doRequest(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_AllowsUpToMax(t *testing.T) {
	h := newLimitedHandler(t, 3, time.Minute)

	for i := range 3 {
		rec := doRequest(h, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := doRequest(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimit_Headers(t *testing.T) {
	h := newLimitedHandler(t, 5, time.Minute)

	rec := doRequest(h, "10.0.0.1")
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_KeysAreIndependent(t *testing.T) {
	h := newLimitedHandler(t, 1, time.Minute)

	require.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.2").Code)
}

func TestRateLimit_WindowResets(t *testing.T) {
	h := newLimitedHandler(t, 1, 50*time.Millisecond)

	require.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1").Code)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1").Code)
}

func TestRateLimit_ForwardedForTakesPrecedence(t *testing.T) {
	h := newLimitedHandler(t, 1, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same forwarded client, different socket: still the same key.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "10.0.0.2:9999"
	req2.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

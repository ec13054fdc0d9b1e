package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, fn http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()
	rec := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyEndpoint_ReadyWithPassingChecks(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, time.Minute)
	defer h.Stop()
	h.SetReady(true)

	require.Eventually(t, func() bool {
		return probe(t, h.ReadyEndpoint).Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	rec := probe(t, h.ReadyEndpoint)
	assert.Contains(t, rec.Body.String(), `"db":"ok"`)
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, time.Minute)
	defer h.Stop()
	h.SetReady(true)

	require.Eventually(t, func() bool {
		rec := probe(t, h.ReadyEndpoint)
		return rec.Code == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)

	rec := probe(t, h.ReadyEndpoint)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestLiveEndpoint_IndependentOfReadiness(t *testing.T) {
	h := New()
	rec := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

// Package health provides liveness and readiness probe endpoints. Registered
// checks run periodically in the background; probe handlers only read the
// latest recorded state, so they stay fast even when a dependency hangs.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// check holds one registered check and its last observed state.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	// lastErr is written by the runner goroutine and read by probe handlers.
	lastErr atomic.Pointer[error]
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)
}

func (c *check) healthy() bool {
	p := c.lastErr.Load()
	return p == nil || *p == nil
}

// Health manages liveness and readiness state for a service.
type Health struct {
	ready atomic.Bool

	// mu protects registration and start/stop. Checks are registered before
	// Start and never removed.
	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a Health instance in a not-ready state. Call SetReady(true)
// once initialization has finished.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check reported by the liveness endpoint.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, &check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check reported by the readiness endpoint.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, &check{name: name, timeout: timeout, fn: fn})
}

// Start runs all registered checks now and then on every interval tick, until
// ctx is cancelled or Stop is called. Checks within one tick run concurrently.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	all := make([]*check, 0, len(h.liveness)+len(h.readiness))
	all = append(all, h.liveness...)
	all = append(all, h.readiness...)

	go func() {
		defer close(h.done)

		runAll(ctx, all)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runAll(ctx, all)
			}
		}
	}()
}

func runAll(ctx context.Context, checks []*check) {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range checks {
		g.Go(func() error {
			c.run(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// Stop cancels the background runner and waits for it to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetReady flips the overall readiness gate. A service that is not ready
// fails the readiness endpoint regardless of check results.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint is the HTTP handler for the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := h.liveness
	h.mu.Unlock()
	respond(w, true, checks)
}

// ReadyEndpoint is the HTTP handler for the readiness probe.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := h.readiness
	h.mu.Unlock()
	respond(w, h.ready.Load(), checks)
}

func respond(w http.ResponseWriter, ready bool, checks []*check) {
	status := map[string]string{}
	healthy := ready
	for _, c := range checks {
		if c.healthy() {
			status[c.name] = "ok"
			continue
		}
		healthy = false
		if p := c.lastErr.Load(); p != nil && *p != nil {
			status[c.name] = (*p).Error()
		} else {
			status[c.name] = "unknown"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	code := http.StatusOK
	overall := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		overall = "unavailable"
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": overall,
		"checks": status,
	})
}

// GoroutineCountCheck returns a check that fails when the number of
// goroutines exceeds max, a cheap proxy for leaks.
func GoroutineCountCheck(max int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("too many goroutines: %d > %d", n, max)
		}
		return nil
	}
}

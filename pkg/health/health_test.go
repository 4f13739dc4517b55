package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusBody {
	t.Helper()
	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probeN(h *Health, name string, n int) {
	for _, c := range h.checks {
		if c.name == name {
			for range n {
				c.probe(context.Background())
			}
		}
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestLiveEndpoint_NoFailures(t *testing.T) {
	h := New()
	h.Register(Liveness, "goroutines", time.Second, GoroutineCountCheck(1_000_000))
	probeN(h, "goroutines", 1)

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decodeStatus(t, w)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveEndpoint_FailsAfterThreshold(t *testing.T) {
	h := New()
	h.Register(Liveness, "loop", time.Second, failing("stuck"))

	probeN(h, "loop", defaultFailAfter-1)
	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	probeN(h, "loop", 1)
	w = httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeStatus(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "stuck", body.Checks["loop"])
}

func TestCheck_RecoversOnFirstSuccess(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)
	h := New()
	h.Register(Readiness, "storage", time.Second, PingCheck(pingerFunc(func(context.Context) error {
		if broken.Load() {
			return errors.New("connection refused")
		}
		return nil
	})))
	h.SetReady(true)

	probeN(h, "storage", defaultFailAfter)
	assert.False(t, h.Ready())

	broken.Store(false)
	probeN(h, "storage", 1)
	assert.True(t, h.Ready())
}

func TestReadyEndpoint_NotMarkedReady(t *testing.T) {
	h := New()

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeStatus(t, w)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])
}

func TestReadyEndpoint_StorageDown(t *testing.T) {
	h := New()
	h.Register(Readiness, "storage", time.Second, PingCheck(pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))
	h.SetReady(true)
	probeN(h, "storage", defaultFailAfter)

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeStatus(t, w)
	assert.Equal(t, "ping: connection refused", body.Checks["storage"])
}

func TestReadinessIgnoresLivenessChecks(t *testing.T) {
	h := New()
	h.Register(Liveness, "loop", time.Second, failing("stuck"))
	h.SetReady(true)
	probeN(h, "loop", defaultFailAfter)

	assert.True(t, h.Ready())
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Register(Readiness, "slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.SetReady(true)
	probeN(h, "slow", defaultFailAfter)

	assert.False(t, h.Ready())
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Register(Readiness, "counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	h.Stop()

	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())

	// Second Stop is a no-op.
	h.Stop()
}

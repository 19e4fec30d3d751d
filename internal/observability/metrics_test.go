package observability

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewMetrics builds an independent registry per call, so concurrent
// construction must not collide on registration.
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()

	const numGoroutines = 20

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines)
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics("engine")
			if err != nil {
				errs <- err
				return
			}
			if m.Engine == nil || m.Registry() == nil {
				errs <- assert.AnError
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics("handler-test")
	require.NoError(t, err)
	m.Engine.Direction("capture").Cycles.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `audioengine_cycles_total{direction="capture",engine_id="handler-test"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioengine/internal/audioengine"
	"github.com/tphakala/audioengine/internal/audioengine/platform/mockplatform"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/observability"
)

func testSettings() *conf.Settings {
	s := conf.Defaults()
	s.Telemetry.Enabled = true
	s.Telemetry.Listen = "127.0.0.1:0"
	return s
}

// fakeSource hands out a queued worker error once, like the engine does.
type fakeSource struct {
	status  audioengine.Status
	pending error
}

func (f *fakeSource) Status() audioengine.Status {
	st := f.status
	st.LastError = f.pending
	f.pending = nil
	return st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewEndpointDisabled(t *testing.T) {
	t.Parallel()
	s := conf.Defaults()
	s.Telemetry.Enabled = false
	_, err := NewEndpoint(s, &fakeSource{}, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestStatusRouteServesEngineSnapshot(t *testing.T) {
	t.Parallel()
	engine := audioengine.New(mockplatform.NewDefault(), audioengine.WithEngineID("status-test"))
	require.NoError(t, engine.Initialize())
	t.Cleanup(func() { _ = engine.Terminate() })
	require.NoError(t, engine.SetRecordingDevice(-1))

	ep, err := NewEndpoint(testSettings(), engine, nil)
	require.NoError(t, err)

	rec := get(t, ep.Handler(), StatusPath)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "status-test", body["engineId"])
	assert.Equal(t, true, body["initialized"])
	capture, ok := body["capture"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bound", capture["state"])
	assert.NotContains(t, body, "lastError")
}

func TestStatusRouteRemembersWorkerError(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		status:  audioengine.Status{Initialized: true},
		pending: audioengine.ErrPlatform,
	}
	ep, err := NewEndpoint(testSettings(), src, nil)
	require.NoError(t, err)

	for range 2 {
		rec := get(t, ep.Handler(), StatusPath)
		require.Equal(t, http.StatusOK, rec.Code)
		var body StatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.LastError)
		assert.Equal(t, "platform_error", body.LastErrorKind)
		assert.NotNil(t, body.LastErrorAt)
	}

	rec := get(t, ep.Handler(), HealthPath)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestHealthRoute(t *testing.T) {
	t.Parallel()
	ep, err := NewEndpoint(testSettings(), &fakeSource{status: audioengine.Status{Initialized: true}}, nil)
	require.NoError(t, err)
	rec := get(t, ep.Handler(), HealthPath)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	ep, err = NewEndpoint(testSettings(), &fakeSource{}, nil)
	require.NoError(t, err)
	rec = get(t, ep.Handler(), HealthPath)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()
	m, err := observability.NewMetrics("metrics-test")
	require.NoError(t, err)
	m.Engine.UpdateState("capture", 4)

	ep, err := NewEndpoint(testSettings(), &fakeSource{}, m.Handler())
	require.NoError(t, err)
	rec := get(t, ep.Handler(), MetricsPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `engine_id="metrics-test"`)

	// no metrics handler, no route
	ep, err = NewEndpoint(testSettings(), &fakeSource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get(t, ep.Handler(), MetricsPath).Code)
}

func TestDebugRoutesOnlyInDebugMode(t *testing.T) {
	t.Parallel()
	s := testSettings()
	ep, err := NewEndpoint(s, &fakeSource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get(t, ep.Handler(), debugPath+"cmdline").Code)

	s.Debug = true
	ep, err = NewEndpoint(s, &fakeSource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(t, ep.Handler(), debugPath+"cmdline").Code)
}

func TestEndpointStartAndShutdown(t *testing.T) {
	t.Parallel()
	ep, err := NewEndpoint(testSettings(), &fakeSource{status: audioengine.Status{Initialized: true}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, ep.Start(ctx))
	addr := ep.Addr()
	require.NotEmpty(t, addr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+HealthPath, http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	ep.Wait()
	require.NoError(t, ep.Shutdown())
}

func TestEndpointStartFailsOnBadAddress(t *testing.T) {
	t.Parallel()
	s := testSettings()
	s.Telemetry.Listen = "256.0.0.1:bad"
	ep, err := NewEndpoint(s, &fakeSource{}, nil)
	require.NoError(t, err)
	err = ep.Start(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Empty(t, ep.Addr())
}

package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/audioengine/internal/audioengine"
)

// StatusSource is implemented by *audioengine.Engine.
type StatusSource interface {
	Status() audioengine.Status
}

// StatusResponse is the JSON body of the engine status route.
type StatusResponse struct {
	audioengine.Status
	LastError     string     `json:"lastError,omitempty"`
	LastErrorKind string     `json:"lastErrorKind,omitempty"`
	LastErrorAt   *time.Time `json:"lastErrorAt,omitempty"`
}

// statusHandler serves engine snapshots. Reading engine status consumes the
// recorded worker error, so the handler keeps the latest one it has seen
// and keeps reporting it.
type statusHandler struct {
	source StatusSource

	mu      sync.Mutex
	lastErr error
	lastAt  time.Time
}

func (h *statusHandler) snapshot() StatusResponse {
	st := h.source.Status()

	h.mu.Lock()
	defer h.mu.Unlock()
	if st.LastError != nil {
		h.lastErr = st.LastError
		h.lastAt = time.Now()
	}

	resp := StatusResponse{Status: st}
	if h.lastErr != nil {
		at := h.lastAt
		resp.LastError = h.lastErr.Error()
		resp.LastErrorKind = audioengine.Kind(h.lastErr).String()
		resp.LastErrorAt = &at
	}
	return resp
}

func (h *statusHandler) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.snapshot())
}

// getHealth reports 503 once either direction was stopped by a worker
// failure.
func (h *statusHandler) getHealth(c echo.Context) error {
	resp := h.snapshot()
	status := "ok"
	code := http.StatusOK
	if !resp.Initialized {
		status = "uninitialized"
		code = http.StatusServiceUnavailable
	} else if resp.LastError != "" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{
		"status":  status,
		"capture": resp.Capture.State,
		"render":  resp.Render.State,
	})
}

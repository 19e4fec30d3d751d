// endpoint.go: Prometheus compatible telemetry and engine status endpoint
package telemetry

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

const (
	// StatusPath serves the engine snapshot as JSON.
	StatusPath = "/api/v1/engine/status"
	// HealthPath reports whether the engine is running without worker failures.
	HealthPath = "/healthz"
	// MetricsPath serves the Prometheus exposition.
	MetricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Endpoint serves metrics, engine status and pprof over HTTP.
type Endpoint struct {
	ListenAddress string

	echo     *echo.Echo
	listener net.Listener
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// NewEndpoint builds the routes. metrics may be nil, in which case only the
// status routes are served.
func NewEndpoint(settings *conf.Settings, source StatusSource, metrics http.Handler) (*Endpoint, error) {
	if !settings.Telemetry.Enabled {
		return nil, errors.Newf("telemetry not enabled").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	h := &statusHandler{source: source}
	e.GET(StatusPath, h.getStatus)
	e.GET(HealthPath, h.getHealth)
	if metrics != nil {
		e.GET(MetricsPath, echo.WrapHandler(metrics))
	}
	if settings.Debug {
		RegisterDebugHandlers(e)
		GetLogger().Info("pprof debugging endpoints enabled", logger.String("path", debugPath))
	}

	return &Endpoint{
		ListenAddress: settings.Telemetry.Listen,
		echo:          e,
		stop:          make(chan struct{}),
	}, nil
}

// Handler exposes the router, mainly for tests.
func (e *Endpoint) Handler() http.Handler { return e.echo }

// Start listens on ListenAddress and serves in the background until ctx is
// cancelled or Shutdown is called.
func (e *Endpoint) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", e.ListenAddress)
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryNetwork).
			Context("listen", e.ListenAddress).
			Build()
	}
	e.listener = ln
	e.echo.Listener = ln

	e.wg.Go(func() {
		GetLogger().Info("telemetry endpoint starting", logger.String("listen", ln.Addr().String()))
		if err := e.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			GetLogger().Error("telemetry server failed", logger.String("listen", e.ListenAddress), logger.Error(err))
		}
	})

	e.wg.Go(func() {
		select {
		case <-ctx.Done():
			if err := e.Shutdown(); err != nil {
				GetLogger().Warn("failed to shutdown telemetry server gracefully", logger.Error(err))
			}
		case <-e.stop:
		}
	})
	return nil
}

// Addr returns the bound address once started.
func (e *Endpoint) Addr() string {
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// Shutdown stops the server. It is safe to call more than once.
func (e *Endpoint) Shutdown() error {
	e.stopOnce.Do(func() { close(e.stop) })
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Wait blocks until the server goroutines exit.
func (e *Endpoint) Wait() { e.wg.Wait() }

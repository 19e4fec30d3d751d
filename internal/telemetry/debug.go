// debug.go: pprof debug routes for the telemetry endpoint
package telemetry

import (
	"net/http"
	"net/http/pprof"

	"github.com/labstack/echo/v4"
)

const debugPath = "/debug/pprof/"

// RegisterDebugHandlers adds pprof debugging routes to e.
func RegisterDebugHandlers(e *echo.Echo) {
	e.GET(debugPath, echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	e.GET(debugPath+"cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	e.GET(debugPath+"profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	e.GET(debugPath+"symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	e.GET(debugPath+"trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		e.GET(debugPath+name, echo.WrapHandler(pprof.Handler(name)))
	}
}

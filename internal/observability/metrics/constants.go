// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation names recorded by the engine control API.
const (
	OpInitialize = "initialize"
	OpTerminate  = "terminate"
	OpBind       = "bind"
	OpSetFormat  = "set_format"
	OpPrepare    = "prepare"
	OpStart      = "start"
	OpStop       = "stop"
	OpEnumerate  = "enumerate"
	OpEncode     = "encode"
)

// Operation status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ShutdownTimeout bounds graceful shutdown of the metrics HTTP server.
const ShutdownTimeout = 5 * time.Second

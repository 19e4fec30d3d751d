// Package metrics provides Prometheus metrics for the audio engine.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on this abstraction so tests can substitute a
// capturing implementation for the Prometheus collectors.
type Recorder interface {
	// RecordOperation records an operation (e.g. "bind", "start") with its status.
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its category.
	RecordError(operation, errorType string)
}

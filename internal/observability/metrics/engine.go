package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics contains Prometheus metrics for the capture/render engine.
type EngineMetrics struct {
	engineID string

	// Real-time loop metrics
	cycles           *prometheus.CounterVec
	frames           *prometheus.CounterVec
	underruns        *prometheus.CounterVec
	overruns         *prometheus.CounterVec
	waitTimeouts     *prometheus.CounterVec
	callbackDuration *prometheus.HistogramVec

	// Control metrics
	state           *prometheus.GaugeVec
	operations      *prometheus.CounterVec
	operationTiming *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	degraded        *prometheus.CounterVec
	aecAvailable    prometheus.Gauge
	priorityBoosted *prometheus.GaugeVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// DirectionMetrics holds collectors pre-resolved for one engine direction so
// the real-time loop only touches atomic counters.
type DirectionMetrics struct {
	Cycles           prometheus.Counter
	Frames           prometheus.Counter
	Underruns        prometheus.Counter
	Overruns         prometheus.Counter
	WaitTimeouts     prometheus.Counter
	CallbackDuration prometheus.Observer
}

// NewEngineMetrics creates and registers engine metrics for one engine instance.
func NewEngineMetrics(registry prometheus.Registerer, engineID string) (*EngineMetrics, error) {
	m := &EngineMetrics{engineID: engineID}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	constLabels := prometheus.Labels{"engine_id": m.engineID}

	m.cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_cycles_total",
			Help:        "Total number of real-time wake cycles that moved audio",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_frames_total",
			Help:        "Total number of audio frames moved between device and application",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.underruns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_underruns_total",
			Help:        "Render cycles where the application supplied fewer frames than requested",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.overruns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_overruns_total",
			Help:        "Cycles where device data was dropped or short",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.waitTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_wait_timeouts_total",
			Help:        "Readiness waits that timed out without a shutdown request",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.callbackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "audioengine_callback_duration_seconds",
			Help:        "Time spent in the application buffer callback per cycle",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 12), // 100µs to ~200ms
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.state = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "audioengine_direction_state",
			Help:        "Current engine state per direction (0=unbound .. 5=stopped)",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_operations_total",
			Help:        "Control API operations by outcome",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)

	m.operationTiming = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "audioengine_operation_duration_seconds",
			Help:        "Duration of control API operations",
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 12),
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	m.errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_errors_total",
			Help:        "Errors returned by the engine by category",
			ConstLabels: constLabels,
		},
		[]string{"operation", "category"},
	)

	m.degraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "audioengine_degraded_total",
			Help:        "Non-fatal capability losses such as failed priority boost or AEC init",
			ConstLabels: constLabels,
		},
		[]string{"direction", "reason"},
	)

	m.aecAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "audioengine_aec_available",
			Help:        "1 when echo cancellation is active for the capture session",
			ConstLabels: constLabels,
		},
	)

	m.priorityBoosted = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "audioengine_priority_boosted",
			Help:        "1 when the worker thread runs in a real-time scheduling class",
			ConstLabels: constLabels,
		},
		[]string{"direction"},
	)

	m.collectors = []prometheus.Collector{
		m.cycles,
		m.frames,
		m.underruns,
		m.overruns,
		m.waitTimeouts,
		m.callbackDuration,
		m.state,
		m.operations,
		m.operationTiming,
		m.errors,
		m.degraded,
		m.aecAvailable,
		m.priorityBoosted,
	}
}

// Describe implements the Collector interface
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Direction resolves the per-direction collectors. Call once per worker start.
func (m *EngineMetrics) Direction(direction string) *DirectionMetrics {
	return &DirectionMetrics{
		Cycles:           m.cycles.WithLabelValues(direction),
		Frames:           m.frames.WithLabelValues(direction),
		Underruns:        m.underruns.WithLabelValues(direction),
		Overruns:         m.overruns.WithLabelValues(direction),
		WaitTimeouts:     m.waitTimeouts.WithLabelValues(direction),
		CallbackDuration: m.callbackDuration.WithLabelValues(direction),
	}
}

// UpdateState records the numeric state of a direction
func (m *EngineMetrics) UpdateState(direction string, state int) {
	m.state.WithLabelValues(direction).Set(float64(state))
}

// RecordDegraded records a non-fatal capability loss
func (m *EngineMetrics) RecordDegraded(direction, reason string) {
	m.degraded.WithLabelValues(direction, reason).Inc()
}

// SetAECAvailable records whether echo cancellation is active
func (m *EngineMetrics) SetAECAvailable(available bool) {
	m.aecAvailable.Set(boolToFloat(available))
}

// SetPriorityBoosted records whether a worker thread got real-time scheduling
func (m *EngineMetrics) SetPriorityBoosted(direction string, boosted bool) {
	m.priorityBoosted.WithLabelValues(direction).Set(boolToFloat(boosted))
}

// RecordOperation implements Recorder
func (m *EngineMetrics) RecordOperation(operation, status string) {
	m.operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *EngineMetrics) RecordDuration(operation string, seconds float64) {
	m.operationTiming.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *EngineMetrics) RecordError(operation, errorType string) {
	m.errors.WithLabelValues(operation, errorType).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var _ Recorder = (*EngineMetrics)(nil)

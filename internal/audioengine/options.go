package audioengine

import (
	"time"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/logger"
	"github.com/tphakala/audioengine/internal/observability/metrics"
)

// Defaults used when no settings are supplied.
const (
	DefaultPeriodFrames       = 480 // 10 ms at 48 kHz
	DefaultWaitTimeoutPeriods = 2
	DefaultFailureThreshold   = 10
	DefaultGeometryCacheTTL   = 5 * time.Minute
	DefaultRTPriority         = 10
)

type config struct {
	periodFrames       int
	waitTimeoutPeriods int
	failureThreshold   int
	shareMode          platform.ShareMode
	priorityEnabled    bool
	priorityProfile    string
	rtPriority         int
	aecEnabled         bool
	geometryTTL        time.Duration
}

func defaultConfig() config {
	return config{
		periodFrames:       DefaultPeriodFrames,
		waitTimeoutPeriods: DefaultWaitTimeoutPeriods,
		failureThreshold:   DefaultFailureThreshold,
		shareMode:          platform.Shared,
		priorityEnabled:    true,
		priorityProfile:    DefaultPriorityProfile,
		rtPriority:         DefaultRTPriority,
		geometryTTL:        DefaultGeometryCacheTTL,
	}
}

// waitTimeout returns the readiness wait bound for a stream at sampleRate.
func (c *config) waitTimeout(sampleRate int) time.Duration {
	period := time.Duration(c.periodFrames) * time.Second / time.Duration(sampleRate)
	return period * time.Duration(c.waitTimeoutPeriods)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings applies the engine section of loaded settings.
func WithSettings(s *conf.EngineSettings) Option {
	return func(e *Engine) {
		if s == nil {
			return
		}
		if s.PeriodFrames > 0 {
			e.cfg.periodFrames = s.PeriodFrames
		}
		if s.WaitTimeoutPeriods > 0 {
			e.cfg.waitTimeoutPeriods = s.WaitTimeoutPeriods
		}
		if s.FailureThreshold > 0 {
			e.cfg.failureThreshold = s.FailureThreshold
		}
		e.cfg.priorityEnabled = s.ThreadPriority.Enabled
		if s.ThreadPriority.Profile != "" {
			e.cfg.priorityProfile = s.ThreadPriority.Profile
		}
		if s.ThreadPriority.RTPriority > 0 {
			e.cfg.rtPriority = s.ThreadPriority.RTPriority
		}
		e.cfg.aecEnabled = e.cfg.aecEnabled || s.AEC.Enabled
		if s.AEC.GeometryCacheTTL > 0 {
			e.cfg.geometryTTL = s.AEC.GeometryCacheTTL
		}
	}
}

// WithPeriodFrames sets the hardware period size in frames.
func WithPeriodFrames(frames int) Option {
	return func(e *Engine) {
		if frames > 0 {
			e.cfg.periodFrames = frames
		}
	}
}

// WithWaitTimeout sets the readiness wait bound in periods and the number of
// consecutive timeouts after which a direction is stopped.
func WithWaitTimeout(periods, failureThreshold int) Option {
	return func(e *Engine) {
		if periods > 0 {
			e.cfg.waitTimeoutPeriods = periods
		}
		if failureThreshold > 0 {
			e.cfg.failureThreshold = failureThreshold
		}
	}
}

// WithShareMode selects shared or exclusive endpoint access.
func WithShareMode(mode platform.ShareMode) Option {
	return func(e *Engine) {
		e.cfg.shareMode = mode
	}
}

// WithLogger replaces the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithEngineID sets the engine identifier used in logs, metrics and status.
func WithEngineID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}

// WithMetrics attaches Prometheus collectors. The collectors should carry
// the same engine ID as WithEngineID.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithPriorityManager replaces the platform thread priority manager.
func WithPriorityManager(pm PriorityManager) Option {
	return func(e *Engine) {
		e.priority = pm
	}
}

// WithEchoCanceller enables echo cancellation using factory.
func WithEchoCanceller(factory EchoCancellerFactory) Option {
	return func(e *Engine) {
		e.aecFactory = factory
		e.cfg.aecEnabled = true
	}
}

// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/tphakala/audioengine/internal/errors"
)

// ValidBackends lists the accepted engine.backend values.
var ValidBackends = []string{"auto", "wasapi", "alsa", "pulseaudio", "coreaudio", "null"}

const (
	minSampleRate  = 8000
	maxSampleRate  = 384000
	maxChannels    = 32
	maxRTPriority  = 99
	maxPeriodFrame = 1 << 16
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ErrorCategory marks configuration problems as validation errors.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryValidation
}

// Validate checks every section and returns a categorized ValidationError listing all problems.
func (s *Settings) Validate() error {
	ve := ValidationError{}

	if err := validateEngineSettings(&s.Engine); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDirectionSettings("capture", &s.Capture); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDirectionSettings("render", &s.Render); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateTelemetrySettings(&s.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Category(errors.CategoryValidation).
			Context("errors", len(ve.Errors)).
			Build()
	}
	return nil
}

func isValidBackend(backend string) bool {
	return slices.Contains(ValidBackends, strings.ToLower(backend))
}

func validateEngineSettings(e *EngineSettings) error {
	var problems []string

	if !isValidBackend(e.Backend) {
		problems = append(problems, fmt.Sprintf("unknown backend %q", e.Backend))
	}
	if e.PeriodFrames <= 0 || e.PeriodFrames > maxPeriodFrame {
		problems = append(problems, fmt.Sprintf("periodframes must be in 1..%d, got %d", maxPeriodFrame, e.PeriodFrames))
	}
	if e.WaitTimeoutPeriods < 1 {
		problems = append(problems, fmt.Sprintf("waittimeoutperiods must be at least 1, got %d", e.WaitTimeoutPeriods))
	}
	if e.FailureThreshold < 1 {
		problems = append(problems, fmt.Sprintf("failurethreshold must be at least 1, got %d", e.FailureThreshold))
	}
	if e.UnderrunFill != "silence" {
		problems = append(problems, fmt.Sprintf("underrunfill %q is not supported, only \"silence\"", e.UnderrunFill))
	}
	if e.ThreadPriority.Enabled && (e.ThreadPriority.RTPriority < 1 || e.ThreadPriority.RTPriority > maxRTPriority) {
		problems = append(problems, fmt.Sprintf("threadpriority.rtpriority must be in 1..%d, got %d", maxRTPriority, e.ThreadPriority.RTPriority))
	}
	if e.AEC.GeometryCacheTTL < 0 {
		problems = append(problems, "aec.geometrycachettl must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("engine: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateDirectionSettings(name string, d *DirectionSettings) error {
	var problems []string

	if d.Device < -1 {
		problems = append(problems, fmt.Sprintf("device must be -1 or a non-negative index, got %d", d.Device))
	}
	if d.SampleRate < minSampleRate || d.SampleRate > maxSampleRate {
		problems = append(problems, fmt.Sprintf("samplerate must be in %d..%d, got %d", minSampleRate, maxSampleRate, d.SampleRate))
	}
	if d.Channels < 1 || d.Channels > maxChannels {
		problems = append(problems, fmt.Sprintf("channels must be in 1..%d, got %d", maxChannels, d.Channels))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s: %s", name, strings.Join(problems, "; "))
	}
	return nil
}

func validateTelemetrySettings(t *TelemetrySettings) error {
	if !t.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(t.Listen); err != nil {
		return fmt.Errorf("telemetry: invalid listen address %q: %w", t.Listen, err)
	}
	return nil
}

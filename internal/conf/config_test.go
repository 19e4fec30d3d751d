package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioengine/internal/errors"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	s := Defaults()

	assert.Equal(t, "auto", s.Engine.Backend)
	assert.Equal(t, 480, s.Engine.PeriodFrames)
	assert.Equal(t, 2, s.Engine.WaitTimeoutPeriods)
	assert.Equal(t, 10, s.Engine.FailureThreshold)
	assert.Equal(t, "silence", s.Engine.UnderrunFill)
	assert.True(t, s.Engine.ThreadPriority.Enabled)
	assert.Equal(t, "Pro Audio", s.Engine.ThreadPriority.Profile)
	assert.Equal(t, 5*time.Minute, s.Engine.AEC.GeometryCacheTTL)
	assert.Equal(t, DirectionSettings{Device: -1, SampleRate: 48000, Channels: 1}, s.Capture)
	assert.Equal(t, DirectionSettings{Device: -1, SampleRate: 48000, Channels: 2}, s.Render)
	assert.Equal(t, "localhost:8090", s.Telemetry.Listen)
	require.NotNil(t, s.Logging.Console)
	assert.True(t, s.Logging.Console.Enabled)

	require.NoError(t, s.Validate())
}

func TestWaitTimeout(t *testing.T) {
	t.Parallel()

	e := EngineSettings{PeriodFrames: 480, WaitTimeoutPeriods: 2}
	assert.Equal(t, 20*time.Millisecond, e.WaitTimeout(48000))
	assert.Zero(t, e.WaitTimeout(0))
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"unknown backend", func(s *Settings) { s.Engine.Backend = "jack" }},
		{"zero period", func(s *Settings) { s.Engine.PeriodFrames = 0 }},
		{"zero threshold", func(s *Settings) { s.Engine.FailureThreshold = 0 }},
		{"unsupported fill", func(s *Settings) { s.Engine.UnderrunFill = "repeat" }},
		{"rt priority out of range", func(s *Settings) { s.Engine.ThreadPriority.RTPriority = 120 }},
		{"bad device index", func(s *Settings) { s.Capture.Device = -2 }},
		{"zero channels", func(s *Settings) { s.Render.Channels = 0 }},
		{"low sample rate", func(s *Settings) { s.Capture.SampleRate = 100 }},
		{"bad listen address", func(s *Settings) {
			s.Telemetry.Enabled = true
			s.Telemetry.Listen = "nohostport"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Defaults()
			tt.mutate(s)

			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

// Load uses the global viper instance, so these tests do not run in parallel.
func TestLoad_ConfigFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	yaml := []byte(`engine:
  periodframes: 256
  failurethreshold: 3
capture:
  device: 1
  samplerate: 16000
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("AUDIOENGINE_RENDER_CHANNELS", "1")

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 256, s.Engine.PeriodFrames)
	assert.Equal(t, 3, s.Engine.FailureThreshold)
	assert.Equal(t, 1, s.Capture.Device)
	assert.Equal(t, 16000, s.Capture.SampleRate)
	assert.Equal(t, 1, s.Render.Channels)
	assert.Same(t, s, GetSettings())
}

func TestLoad_InvalidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("engine:\n  underrunfill: repeat\n"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

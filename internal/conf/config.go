// config.go: audio engine configuration loaded with viper
package conf

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

// Settings contains all configuration options for the audio engine and its CLI.
type Settings struct {
	Debug bool // true to enable debug mode

	Engine    EngineSettings
	Capture   DirectionSettings
	Render    DirectionSettings
	Telemetry TelemetrySettings
	Logging   logger.LoggingConfig
}

// EngineSettings contains the real-time engine knobs.
type EngineSettings struct {
	Backend            string // auto, wasapi, alsa, pulseaudio, coreaudio, null
	PeriodFrames       int    // hardware period in frames
	WaitTimeoutPeriods int    // readiness wait timeout, in periods
	FailureThreshold   int    // consecutive wait timeouts before a direction is stopped
	UnderrunFill       string // render shortfall policy, only "silence" is supported
	ThreadPriority     ThreadPrioritySettings
	AEC                AECSettings
}

// ThreadPrioritySettings controls real-time scheduling of worker threads.
type ThreadPrioritySettings struct {
	Enabled    bool
	Profile    string // scheduling profile name, "Pro Audio" on Windows
	RTPriority int    // SCHED_FIFO priority on linux, 1-99
}

// AECSettings controls the echo cancellation stage.
type AECSettings struct {
	Enabled          bool
	GeometryCacheTTL time.Duration // how long resolved microphone geometry is reused
}

// DirectionSettings selects the endpoint and format for one direction.
type DirectionSettings struct {
	Device     int // endpoint index, -1 for the default endpoint
	SampleRate int
	Channels   int
}

// TelemetrySettings controls the metrics and status HTTP endpoint.
type TelemetrySettings struct {
	Enabled bool
	Listen  string // host:port
}

// WaitTimeout returns the readiness wait timeout for the given sample rate.
func (e *EngineSettings) WaitTimeout(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	period := time.Duration(e.PeriodFrames) * time.Second / time.Duration(sampleRate)
	return period * time.Duration(e.WaitTimeoutPeriods)
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the optional config file and AUDIOENGINE_ environment
// variables into a validated Settings instance. Extra paths are searched
// before the default config locations.
func Load(paths ...string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(paths...); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.Wrap(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults, env bindings and config search paths, then reads the config file.
func initViper(paths ...string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	for _, path := range paths {
		viper.AddConfigPath(path)
	}

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return errors.Wrap(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Build()
	}

	GetLogger().Info("loaded config file", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// GetSettings returns the current settings instance, nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings, loading them on first use.
func Setting() *Settings {
	if s := GetSettings(); s != nil {
		return s
	}
	s, err := Load()
	if err != nil {
		GetLogger().Error("failed to load settings, using defaults", logger.Error(err))
		s = Defaults()
	}
	return s
}

// Defaults returns Settings populated only from the built-in defaults.
func Defaults() *Settings {
	v := viper.New()
	setDefaultsOn(v)
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		GetLogger().Error("failed to apply default settings", logger.Error(err))
	}
	return s
}

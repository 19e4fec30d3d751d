// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "AUDIOENGINE"

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly validated environment bindings.
// Every other key is still reachable through AutomaticEnv.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"engine.backend", "AUDIOENGINE_ENGINE_BACKEND", validateEnvBackend},
		{"engine.periodframes", "AUDIOENGINE_ENGINE_PERIODFRAMES", validateEnvPositiveInt},
		{"engine.failurethreshold", "AUDIOENGINE_ENGINE_FAILURETHRESHOLD", validateEnvPositiveInt},
		{"engine.aec.enabled", "AUDIOENGINE_ENGINE_AEC_ENABLED", validateEnvBool},
		{"capture.device", "AUDIOENGINE_CAPTURE_DEVICE", validateEnvDeviceIndex},
		{"render.device", "AUDIOENGINE_RENDER_DEVICE", validateEnvDeviceIndex},
		{"telemetry.enabled", "AUDIOENGINE_TELEMETRY_ENABLED", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvDeviceIndex(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid device index: %w", err)
	}
	if n < -1 {
		return fmt.Errorf("device index must be -1 (default) or >= 0, got %d", n)
	}
	return nil
}

func validateEnvBackend(value string) error {
	if !isValidBackend(value) {
		return fmt.Errorf("unknown backend %q, expected one of %v", value, ValidBackends)
	}
	return nil
}

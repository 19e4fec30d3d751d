package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audioengine/cmd/devices"
	"github.com/tphakala/audioengine/cmd/loopback"
	"github.com/tphakala/audioengine/cmd/play"
	"github.com/tphakala/audioengine/cmd/record"
	"github.com/tphakala/audioengine/internal/buildinfo"
	"github.com/tphakala/audioengine/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "audioengine",
		Short:         "Low-latency audio capture and playback",
		Version:       buildinfo.Current().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		devices.Command(settings),
		record.Command(settings),
		play.Command(settings),
		loopback.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// flags write straight into settings, so validate what they left
		return settings.Validate()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Engine.Backend, "backend", viper.GetString("engine.backend"), "Audio backend: auto, wasapi, alsa, pulseaudio, coreaudio, null")
	flags.IntVar(&settings.Engine.PeriodFrames, "period", viper.GetInt("engine.periodframes"), "Period size in frames")
	flags.BoolVar(&settings.Engine.AEC.Enabled, "aec", viper.GetBool("engine.aec.enabled"), "Enable acoustic echo cancellation")
	flags.BoolVar(&settings.Engine.ThreadPriority.Enabled, "rt", viper.GetBool("engine.threadpriority.enabled"), "Run audio threads with real-time priority")
	flags.BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry and status endpoint")
	flags.StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	bindings := map[string]string{
		"debug":                         "debug",
		"engine.backend":                "backend",
		"engine.periodframes":           "period",
		"engine.aec.enabled":            "aec",
		"engine.threadpriority.enabled": "rt",
		"telemetry.enabled":             "telemetry",
		"telemetry.listen":              "listen",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

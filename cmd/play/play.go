package play

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audioengine/internal/audioengine"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/playback"
	"github.com/tphakala/audioengine/internal/runner"
)

// Command creates the file playback command.
func Command(settings *conf.Settings) *cobra.Command {
	var loop bool

	cmd := &cobra.Command{
		Use:   "play [input.wav|input.flac]",
		Short: "Play a WAV or FLAC file on a render endpoint",
		Long:  "Decode a WAV or FLAC file, convert it to the negotiated render format and play it until it ends or the command is interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, args[0], loop)
		},
	}

	if err := setupFlags(cmd, settings, &loop); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings, loop *bool) error {
	cmd.Flags().BoolVar(loop, "loop", false, "Repeat the file until interrupted")
	cmd.Flags().IntVar(&settings.Render.Device, "device", viper.GetInt("render.device"), "Render endpoint index, -1 for the default")
	cmd.Flags().IntVar(&settings.Render.SampleRate, "rate", viper.GetInt("render.samplerate"), "Render sample rate")
	cmd.Flags().IntVar(&settings.Render.Channels, "channels", viper.GetInt("render.channels"), "Render channel count")

	for key, flag := range map[string]string{
		"render.device":     "device",
		"render.samplerate": "rate",
		"render.channels":   "channels",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run plays path until it ends or ctx is done.
func Run(ctx context.Context, settings *conf.Settings, path string, loop bool, opts ...runner.Option) error {
	r, err := runner.New(settings, opts...)
	if err != nil {
		return err
	}

	return r.Run(ctx, runner.Job{
		Render: true,
		Setup: func(f runner.Formats) (audioengine.BufferCallback, <-chan struct{}, error) {
			src, err := playback.OpenFile(path, f.Render, loop)
			if err != nil {
				return nil, nil, err
			}
			if loop {
				return playback.Callback{Source: src}, nil, nil
			}
			return playback.Callback{Source: src}, src.Done(), nil
		},
	})
}

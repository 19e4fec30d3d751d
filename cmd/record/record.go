package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/audioengine/internal/audioengine"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/encoder"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
	"github.com/tphakala/audioengine/internal/playback"
	"github.com/tphakala/audioengine/internal/runner"
)

// Command creates the capture-to-file command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		fileType string
		duration time.Duration
		depth    int
	)

	cmd := &cobra.Command{
		Use:   "record [output file]",
		Short: "Record from a capture endpoint to a file",
		Long:  "Record from the selected capture endpoint until interrupted or the duration elapses. The file type follows the extension unless --type is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveType(fileType, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return Run(ctx, settings, args[0], t, depth)
		},
	}

	if err := setupFlags(cmd, settings, &fileType, &duration, &depth); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings, fileType *string, duration *time.Duration, depth *int) error {
	cmd.Flags().StringVar(fileType, "type", "", "Output type: pcm, wav (default: from extension)")
	cmd.Flags().DurationVar(duration, "duration", 0, "Stop after this long, 0 records until interrupted")
	cmd.Flags().IntVar(depth, "queue", playback.DefaultQueueDepth, "Periods buffered ahead of the encoder")
	cmd.Flags().IntVar(&settings.Capture.Device, "device", viper.GetInt("capture.device"), "Capture endpoint index, -1 for the default")
	cmd.Flags().IntVar(&settings.Capture.SampleRate, "rate", viper.GetInt("capture.samplerate"), "Capture sample rate")
	cmd.Flags().IntVar(&settings.Capture.Channels, "channels", viper.GetInt("capture.channels"), "Capture channel count")

	for key, flag := range map[string]string{
		"capture.device":     "device",
		"capture.samplerate": "rate",
		"capture.channels":   "channels",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func resolveType(name, path string) (encoder.FileType, error) {
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	return encoder.ParseFileType(name)
}

// Run records to path until ctx is done.
func Run(ctx context.Context, settings *conf.Settings, path string, t encoder.FileType, depth int, opts ...runner.Option) error {
	r, err := runner.New(settings, opts...)
	if err != nil {
		return err
	}

	var rec *playback.Recorder
	var out *os.File

	return r.Run(ctx, runner.Job{
		Capture: true,
		Setup: func(f runner.Formats) (audioengine.BufferCallback, <-chan struct{}, error) {
			file, err := os.Create(path) //nolint:gosec // G304: output path comes from the command line
			if err != nil {
				return nil, nil, errors.New(err).
					Component("record").
					Category(errors.CategoryFileIO).
					Context("path", path).
					Build()
			}
			enc, err := encoder.Create(t, file, encoder.Config{
				SampleRate: f.Capture.SampleRate,
				Channels:   f.Capture.Channels,
			})
			if err != nil {
				_ = file.Close()
				return nil, nil, err
			}
			out = file
			rec = playback.NewRecorder(enc, f.Capture.FrameSize(), settings.Engine.PeriodFrames*f.Capture.FrameSize(), depth)
			logger.Global().Module("record").Info("recording",
				logger.String("path", path),
				logger.String("type", t.String()),
				logger.String("format", f.Capture.String()))
			return playback.Callback{Sink: rec}, nil, nil
		},
		Teardown: func() error {
			var errs []error
			if rec != nil {
				errs = append(errs, rec.Close())
			}
			if out != nil {
				errs = append(errs, out.Close())
			}
			return errors.Join(errs...)
		},
	})
}

package loopback

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/audioengine/internal/audioengine"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/logger"
	"github.com/tphakala/audioengine/internal/playback"
	"github.com/tphakala/audioengine/internal/runner"
)

// Command creates the capture-to-render loopback command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		duration time.Duration
		periods  int
	)

	cmd := &cobra.Command{
		Use:   "loopback",
		Short: "Play captured audio straight back out",
		Long:  "Run capture and render together and route captured audio to the render endpoint. Useful for latency checks and echo cancellation tests with --aec.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return Run(ctx, settings, periods)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long, 0 runs until interrupted")
	cmd.Flags().IntVar(&periods, "buffer", playback.DefaultLoopbackPeriods, "Loopback buffer size in periods")
	cmd.Flags().IntVar(&settings.Capture.Device, "capture-device", settings.Capture.Device, "Capture endpoint index, -1 for the default")
	cmd.Flags().IntVar(&settings.Render.Device, "render-device", settings.Render.Device, "Render endpoint index, -1 for the default")
	return cmd
}

// Run loops capture to render until ctx is done.
func Run(ctx context.Context, settings *conf.Settings, periods int, opts ...runner.Option) error {
	r, err := runner.New(settings, opts...)
	if err != nil {
		return err
	}

	var lb *playback.Loopback
	err = r.Run(ctx, runner.Job{
		Capture: true,
		Render:  true,
		Setup: func(f runner.Formats) (audioengine.BufferCallback, <-chan struct{}, error) {
			l, err := playback.NewLoopback(f.Capture, f.Render, settings.Engine.PeriodFrames, periods)
			if err != nil {
				return nil, nil, err
			}
			lb = l
			return playback.Callback{Sink: l, Source: l}, nil, nil
		},
	})
	if lb != nil {
		logger.Global().Module("loopback").Info("loopback finished",
			logger.Uint64("overflows", lb.Overflows()),
			logger.Uint64("underflows", lb.Underflows()))
	}
	return err
}

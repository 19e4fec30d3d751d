// Package runner wires configuration, the audio engine, metrics and the
// telemetry endpoint together for the command line tools.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/audioengine/internal/audioengine"
	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/audioengine/platform/malgoplatform"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
	"github.com/tphakala/audioengine/internal/observability"
	"github.com/tphakala/audioengine/internal/telemetry"
)

// DefaultStatusInterval is how often a run polls the engine for worker
// failures.
const DefaultStatusInterval = time.Second

// Formats carries the negotiated stream formats. An unused direction is
// left zero.
type Formats struct {
	Capture platform.Format
	Render  platform.Format
}

// Job describes one engine run.
type Job struct {
	Capture bool
	Render  bool

	// Setup builds the buffer callback once formats are negotiated. A
	// non-nil done channel ends the run when closed.
	Setup func(Formats) (cb audioengine.BufferCallback, done <-chan struct{}, err error)

	// Teardown runs after both directions have stopped.
	Teardown func() error
}

// Runner owns one engine instance.
type Runner struct {
	settings       *conf.Settings
	provider       platform.Provider
	engine         *audioengine.Engine
	metrics        *observability.Metrics
	log            logger.Logger
	statusInterval time.Duration
	engineOpts     []audioengine.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithProvider replaces the miniaudio provider selected by the settings.
func WithProvider(p platform.Provider) Option {
	return func(r *Runner) { r.provider = p }
}

// WithStatusInterval sets the worker failure polling interval.
func WithStatusInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.statusInterval = d
		}
	}
}

// WithEngineOptions appends engine options after the ones derived from the
// settings.
func WithEngineOptions(opts ...audioengine.Option) Option {
	return func(r *Runner) { r.engineOpts = append(r.engineOpts, opts...) }
}

// New builds the engine described by settings.
func New(settings *conf.Settings, opts ...Option) (*Runner, error) {
	r := &Runner{
		settings:       settings,
		log:            GetLogger(),
		statusInterval: DefaultStatusInterval,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.provider == nil {
		p, err := malgoplatform.New(settings.Engine.Backend)
		if err != nil {
			return nil, err
		}
		r.provider = p
	}

	id := uuid.NewString()
	m, err := observability.NewMetrics(id)
	if err != nil {
		return nil, errors.New(err).
			Component("runner").
			Category(errors.CategorySystem).
			Context("operation", "create_metrics").
			Build()
	}
	r.metrics = m

	engineOpts := []audioengine.Option{
		audioengine.WithSettings(&settings.Engine),
		audioengine.WithEngineID(id),
		audioengine.WithMetrics(m.Engine),
	}
	r.engine = audioengine.New(r.provider, append(engineOpts, r.engineOpts...)...)
	return r, nil
}

// Engine returns the engine.
func (r *Runner) Engine() *audioengine.Engine { return r.engine }

// Metrics returns the metrics registry the engine reports into.
func (r *Runner) Metrics() *observability.Metrics { return r.metrics }

// Devices lists capture and render endpoints, default first.
func (r *Runner) Devices() (capture, render []platform.EndpointDescriptor, err error) {
	if err := r.engine.Initialize(); err != nil {
		return nil, nil, err
	}
	defer func() { err = errors.Join(err, r.engine.Terminate()) }()

	if capture, err = r.engine.Enumerate(platform.Capture); err != nil {
		return nil, nil, err
	}
	if render, err = r.engine.Enumerate(platform.Render); err != nil {
		return nil, nil, err
	}
	return capture, render, nil
}

// Run prepares the directions the job asks for, runs until ctx is done, the
// job's done channel closes or a worker fails, then tears everything down.
// Cancellation is a normal end of run and returns nil.
func (r *Runner) Run(ctx context.Context, job Job) (err error) {
	if !job.Capture && !job.Render {
		return errors.Newf("job uses neither capture nor render").
			Component("runner").
			Category(errors.CategoryValidation).
			Build()
	}

	e := r.engine
	ctx = logger.WithTraceID(ctx, e.ID())
	r.log = r.log.WithContext(ctx)

	if err := e.Initialize(); err != nil {
		return err
	}
	defer func() { err = errors.Join(err, e.Terminate()) }()

	if r.settings.Telemetry.Enabled {
		stop, err := r.startTelemetry(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	formats, err := r.prepare(job)
	if err != nil {
		return err
	}

	cb, done, err := job.Setup(formats)
	if err != nil {
		return err
	}
	if err := e.SetAudioBufferCallback(cb); err != nil {
		return err
	}

	if err := r.start(ctx, job); err != nil {
		return r.teardown(job, err)
	}
	started := time.Now()
	r.log.Info("engine running",
		logger.Bool("capture", job.Capture),
		logger.Bool("render", job.Render))

	runErr := r.wait(ctx, job, done)
	runErr = errors.Join(runErr, e.StopAll())

	// a worker failing while the run was ending is reported here
	st := e.Status()
	runErr = errors.Join(runErr, st.LastError)
	r.log.Info("engine stopped",
		logger.Time("started_at", started),
		logger.Duration("elapsed", time.Since(started)),
		logger.Any("capture_stats", st.Capture.Stats),
		logger.Any("render_stats", st.Render.Stats))
	return r.teardown(job, runErr)
}

func (r *Runner) teardown(job Job, err error) error {
	if job.Teardown == nil {
		return err
	}
	return errors.Join(err, job.Teardown())
}

func (r *Runner) startTelemetry(ctx context.Context) (func(), error) {
	ep, err := telemetry.NewEndpoint(r.settings, r.engine, r.metrics.Handler())
	if err != nil {
		return nil, err
	}
	tctx, cancel := context.WithCancel(ctx)
	if err := ep.Start(tctx); err != nil {
		cancel()
		return nil, err
	}
	return func() {
		cancel()
		ep.Wait()
	}, nil
}

// prepare binds and negotiates every direction the job uses before
// preparing any of them, so capture echo cancellation is built against the
// negotiated render format.
func (r *Runner) prepare(job Job) (Formats, error) {
	var f Formats
	e := r.engine
	if job.Capture {
		c := r.settings.Capture
		if err := e.SetRecordingDevice(c.Device); err != nil {
			return f, err
		}
		got, err := e.SetRecordingFormat(c.SampleRate, c.Channels)
		if err != nil {
			return f, err
		}
		f.Capture = got
		r.logFormat(platform.Capture, c.SampleRate, c.Channels, got)
	}
	if job.Render {
		c := r.settings.Render
		if err := e.SetPlayoutDevice(c.Device); err != nil {
			return f, err
		}
		got, err := e.SetPlayoutFormat(c.SampleRate, c.Channels)
		if err != nil {
			return f, err
		}
		f.Render = got
		r.logFormat(platform.Render, c.SampleRate, c.Channels, got)
	}

	if job.Render {
		if err := e.InitPlayout(); err != nil {
			return f, err
		}
	}
	if job.Capture {
		if err := e.InitRecording(); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (r *Runner) logFormat(dir platform.Direction, rate, channels int, got platform.Format) {
	fields := []logger.Field{
		logger.String("direction", dir.String()),
		logger.String("format", got.String()),
	}
	if got.SampleRate != rate || got.Channels != channels {
		r.log.Warn("requested format substituted", append(fields,
			logger.Int("requested_rate", rate),
			logger.Int("requested_channels", channels))...)
		return
	}
	r.log.Info("format negotiated", fields...)
}

func (r *Runner) start(ctx context.Context, job Job) error {
	switch {
	case job.Capture && job.Render:
		return r.engine.StartAll(ctx)
	case job.Capture:
		return r.engine.StartRecording()
	default:
		return r.engine.StartPlayout()
	}
}

// wait blocks until the run should end. A direction that is no longer
// running was stopped by its worker.
func (r *Runner) wait(ctx context.Context, job Job, done <-chan struct{}) error {
	ticker := time.NewTicker(r.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("run cancelled")
			return nil
		case <-done:
			r.log.Info("source finished")
			return nil
		case <-ticker.C:
			st := r.engine.Status()
			if st.LastError != nil {
				return st.LastError
			}
			if job.Capture && st.Capture.State != audioengine.StateRunning {
				return stoppedUnexpectedly(platform.Capture, st.Capture.State)
			}
			if job.Render && st.Render.State != audioengine.StateRunning {
				return stoppedUnexpectedly(platform.Render, st.Render.State)
			}
		}
	}
}

func stoppedUnexpectedly(dir platform.Direction, state audioengine.State) error {
	return errors.Newf("%s stopped unexpectedly", dir).
		Component("runner").
		Category(errors.CategoryAudio).
		Context("direction", dir.String()).
		Context("state", state.String()).
		Build()
}

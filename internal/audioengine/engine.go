package audioengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
	"github.com/tphakala/audioengine/internal/observability/metrics"
)

// StreamFormat is a negotiated stream format.
type StreamFormat = platform.Format

// direction holds everything the control thread mutates for one direction.
// All fields are guarded by mu; the worker only sees the snapshot it was
// started with.
type direction struct {
	dir     platform.Direction
	mu      sync.Mutex
	state   State
	binding *binding
	format  platform.Format
	stream  *owned[platform.Stream]
	aec     *echoAdapter // capture only
	worker  *worker
	stats   directionStats

	priorityClass string
}

// Engine drives one capture and one render direction over a platform
// provider. Control methods may be called from any goroutine; calls for the
// same direction are serialized.
type Engine struct {
	id         string
	provider   platform.Provider
	cfg        config
	log        logger.Logger
	metrics    *metrics.EngineMetrics
	priority   PriorityManager
	aecFactory EchoCancellerFactory
	geometry   *geometryCache
	reference  *ReferenceBuffer

	// mu guards session and callback. Lock order: mu, then direction.mu.
	mu       sync.RWMutex
	session  *owned[platform.Session]
	callback BufferCallback

	capture direction
	render  direction

	renderFormat atomic.Pointer[platform.Format]

	errMu   sync.Mutex
	lastErr error
}

// New returns an engine for provider p. Call Initialize before anything else.
func New(p platform.Provider, opts ...Option) *Engine {
	e := &Engine{
		id:       uuid.NewString(),
		provider: p,
		cfg:      defaultConfig(),
		log:      GetLogger(),
		capture:  direction{dir: platform.Capture},
		render:   direction{dir: platform.Render},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.priority == nil {
		if e.cfg.priorityEnabled {
			e.priority = NewThreadPriorityManager(e.cfg.rtPriority)
		} else {
			e.priority = noPriority{}
		}
	}
	e.geometry = newGeometryCache(e.cfg.geometryTTL)
	e.reference = NewReferenceBuffer(e.cfg.periodFrames * 2 * platform.BitsPerSample / 8)
	e.log = e.log.With(logger.String("engine_id", e.id))
	return e
}

// ID returns the engine identifier.
func (e *Engine) ID() string {
	return e.id
}

// Initialize opens the platform audio session. Calling it again while
// initialized is a no-op.
func (e *Engine) Initialize() (err error) {
	start := time.Now()
	defer func() { e.observe(metrics.OpInitialize, start, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return nil
	}
	sess, err := e.provider.OpenSession()
	if err != nil {
		return engineError(errors.CategoryAudio, "initialize", nil, err, "open %s audio session", e.provider.Name())
	}
	e.session = own(sess, platform.Session.Close)

	e.log.Info("audio engine initialized", logger.String("backend", e.provider.Name()))
	return nil
}

// Terminate stops both directions, releases every platform handle and
// closes the session. It is legal from any state.
func (e *Engine) Terminate() (err error) {
	start := time.Now()
	defer func() { e.observe(metrics.OpTerminate, start, err) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil
	}

	var errs []error
	for _, d := range []*direction{&e.capture, &e.render} {
		d.mu.Lock()
		e.reapLocked(d)
		errs = append(errs, e.unbindLocked(d))
		d.mu.Unlock()
	}
	errs = append(errs, e.session.Release())
	e.session = nil
	e.callback = nil
	e.renderFormat.Store(nil)
	e.geometry.flush()

	e.log.Info("audio engine terminated")
	if joined := errors.Join(errs...); joined != nil {
		return engineError(errors.CategoryAudio, "terminate", nil, joined, "release platform handles")
	}
	return nil
}

// sessionLocked returns the live session or nil. Caller holds mu.
func (e *Engine) sessionLocked() platform.Session {
	if e.session == nil {
		return nil
	}
	return e.session.Get()
}

func notInitialized(op string, dir platform.Direction) error {
	return engineError(errors.CategoryState, op, &dir, nil, "engine not initialized")
}

func (e *Engine) dirFor(d platform.Direction) *direction {
	if d == platform.Capture {
		return &e.capture
	}
	return &e.render
}

// Enumerate returns a fresh snapshot of dir's endpoints, default first.
func (e *Engine) Enumerate(dir platform.Direction) (list []platform.EndpointDescriptor, err error) {
	start := time.Now()
	defer func() { e.observe(metrics.OpEnumerate, start, err) }()

	e.mu.RLock()
	defer e.mu.RUnlock()

	sess := e.sessionLocked()
	if sess == nil {
		return []platform.EndpointDescriptor{}, notInitialized("enumerate", dir)
	}
	return enumerate(sess, dir)
}

// RecordingDeviceCount returns the number of capture endpoints. On failure
// the count is zero.
func (e *Engine) RecordingDeviceCount() (int, error) {
	list, err := e.Enumerate(platform.Capture)
	return len(list), err
}

// PlayoutDeviceCount returns the number of render endpoints. On failure the
// count is zero.
func (e *Engine) PlayoutDeviceCount() (int, error) {
	list, err := e.Enumerate(platform.Render)
	return len(list), err
}

// RecordingDeviceName returns the display name and unique ID of the capture
// endpoint at index, or of the default endpoint for index -1.
func (e *Engine) RecordingDeviceName(index int) (name, id string, err error) {
	return e.deviceName(platform.Capture, index)
}

// PlayoutDeviceName returns the display name and unique ID of the render
// endpoint at index, or of the default endpoint for index -1.
func (e *Engine) PlayoutDeviceName(index int) (name, id string, err error) {
	return e.deviceName(platform.Render, index)
}

func (e *Engine) deviceName(dir platform.Direction, index int) (name, id string, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sess := e.sessionLocked()
	if sess == nil {
		return "", "", notInitialized("device_name", dir)
	}
	ep, err := resolveEndpoint(sess, dir, index)
	if err != nil {
		return "", "", err
	}
	return ep.Name, ep.ID, nil
}

// SetRecordingDevice binds the capture direction to the endpoint at index
// (-1 for the default endpoint), releasing any previous binding first.
func (e *Engine) SetRecordingDevice(index int) error {
	return e.setDevice(&e.capture, index)
}

// SetPlayoutDevice binds the render direction to the endpoint at index (-1
// for the default endpoint), releasing any previous binding first.
func (e *Engine) SetPlayoutDevice(index int) error {
	return e.setDevice(&e.render, index)
}

func (e *Engine) setDevice(d *direction, index int) (err error) {
	start := time.Now()
	defer func() { e.observe(metrics.OpBind, start, err) }()

	e.mu.RLock()
	defer e.mu.RUnlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	e.reapLocked(d)

	sess := e.sessionLocked()
	if sess == nil {
		return notInitialized("bind", d.dir)
	}
	if d.state == StateRunning {
		return invalidState("bind", d.dir, d.state)
	}

	ep, err := resolveEndpoint(sess, d.dir, index)
	if err != nil {
		return err
	}

	// the old binding goes first; exclusive endpoints admit a single client
	if err := e.unbindLocked(d); err != nil {
		e.log.Warn("releasing previous binding failed",
			logger.String("direction", d.dir.String()), logger.Error(err))
	}

	b, err := e.bind(sess, d.dir, ep)
	if err != nil {
		return err
	}
	d.binding = b
	d.state = StateBound
	e.updateState(d)

	e.log.Info("endpoint bound",
		logger.String("direction", d.dir.String()),
		logger.Int("index", index),
		logger.String("endpoint", ep.Name),
		logger.String("endpoint_id", ep.ID),
		logger.Bool("mic_array", ep.IsMicArray))
	return nil
}

// IsRecordingFormatSupported reports whether the bound capture endpoint
// accepts (rate, channels), directly or through a same-channel substitute.
func (e *Engine) IsRecordingFormatSupported(rate, channels int) bool {
	return e.isFormatSupported(&e.capture, rate, channels)
}

// IsPlayoutFormatSupported reports whether the bound render endpoint accepts
// (rate, channels), directly or through a same-channel substitute.
func (e *Engine) IsPlayoutFormatSupported(rate, channels int) bool {
	return e.isFormatSupported(&e.render, rate, channels)
}

func (e *Engine) isFormatSupported(d *direction, rate, channels int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.binding == nil {
		return false
	}
	_, err := negotiate(d.binding.client.Get(), d.dir, rate, channels)
	return err == nil
}

// SetRecordingFormat negotiates the capture stream format.
func (e *Engine) SetRecordingFormat(rate, channels int) (StreamFormat, error) {
	return e.setFormat(&e.capture, rate, channels)
}

// SetPlayoutFormat negotiates the render stream format.
func (e *Engine) SetPlayoutFormat(rate, channels int) (StreamFormat, error) {
	return e.setFormat(&e.render, rate, channels)
}

func (e *Engine) setFormat(d *direction, rate, channels int) (f StreamFormat, err error) {
	start := time.Now()
	defer func() { e.observe(metrics.OpSetFormat, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()
	e.reapLocked(d)

	if d.state == StateRunning || !d.state.hasBinding() {
		return StreamFormat{}, invalidState("set_format", d.dir, d.state)
	}

	f, err = negotiate(d.binding.client.Get(), d.dir, rate, channels)
	if err != nil {
		return StreamFormat{}, err
	}
	if d.state.hasFormat() && f == d.format {
		return f, nil
	}

	if d.state.hasStream() {
		if err := e.releaseStreamLocked(d); err != nil {
			e.log.Warn("releasing stream for format change failed",
				logger.String("direction", d.dir.String()), logger.Error(err))
		}
	}
	d.format = f
	d.state = StateFormatSet
	if d.dir == platform.Render {
		e.renderFormat.Store(&f)
	}
	e.updateState(d)

	e.log.Info("stream format set",
		logger.String("direction", d.dir.String()),
		logger.String("requested", platform.NewFormat(rate, channels).String()),
		logger.String("format", f.String()))
	return f, nil
}

// RecordingFormat returns the negotiated capture format.
func (e *Engine) RecordingFormat() (StreamFormat, error) {
	return e.currentFormat(&e.capture)
}

// PlayoutFormat returns the negotiated render format.
func (e *Engine) PlayoutFormat() (StreamFormat, error) {
	return e.currentFormat(&e.render)
}

func (e *Engine) currentFormat(d *direction) (StreamFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.hasFormat() {
		return StreamFormat{}, invalidState("format", d.dir, d.state)
	}
	return d.format, nil
}

// InitRecording prepares the capture stream and, when enabled, the echo
// canceller. Already prepared directions are left as they are.
func (e *Engine) InitRecording() error {
	return e.prepare(&e.capture)
}

// InitPlayout prepares the render stream. Already prepared directions are
// left as they are.
func (e *Engine) InitPlayout() error {
	return e.prepare(&e.render)
}

func (e *Engine) prepare(d *direction) (err error) {
	start := time.Now()
	defer func() { e.observe(metrics.OpPrepare, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()
	e.reapLocked(d)

	switch d.state {
	case StatePrepared, StateStopped:
		return nil
	case StateFormatSet:
	default:
		return invalidState("prepare", d.dir, d.state)
	}

	s, err := d.binding.client.Get().OpenStream(d.format, e.cfg.periodFrames)
	if err != nil {
		return platformError("prepare", d.dir, err)
	}
	d.stream = own(s, platform.Stream.Close)

	if d.dir == platform.Capture && e.cfg.aecEnabled {
		d.aec = e.newEchoAdapter(d)
	}

	d.state = StatePrepared
	e.updateState(d)

	e.log.Info("stream prepared",
		logger.String("direction", d.dir.String()),
		logger.String("format", d.format.String()),
		logger.Int("period_frames", e.cfg.periodFrames))
	return nil
}

// newEchoAdapter initializes echo cancellation for capture. Failures leave
// capture in pass-through and are reported as degraded.
func (e *Engine) newEchoAdapter(d *direction) *echoAdapter {
	a, err := newEchoAdapter(e.aecFactory, EchoCancellerConfig{
		Capture:      d.format,
		Render:       e.currentRenderFormat(d.format),
		PeriodFrames: e.cfg.periodFrames,
		Geometry:     d.binding.geometry,
	})
	if err != nil {
		e.degraded(d.dir, reasonEchoCancellation, err)
		return nil
	}
	e.setAECAvailable(true)
	return a
}

// currentRenderFormat returns the negotiated render format, or fallback when
// playout has no format yet.
func (e *Engine) currentRenderFormat(fallback platform.Format) platform.Format {
	if f := e.renderFormat.Load(); f != nil {
		return *f
	}
	return fallback
}

// rebuildEchoAdapterLocked replaces a capture echo adapter that was built
// for a different render format. Caller holds d.mu and d is not running.
func (e *Engine) rebuildEchoAdapterLocked(d *direction) {
	if err := d.aec.close(); err != nil {
		e.log.Warn("closing echo canceller failed", logger.Error(err))
	}
	d.aec = e.newEchoAdapter(d)
	e.log.Info("echo canceller rebuilt for render format",
		logger.String("render_format", e.currentRenderFormat(d.format).String()))
}

// SetAudioBufferCallback registers the application callback. It cannot be
// changed while either direction is running.
func (e *Engine) SetAudioBufferCallback(cb BufferCallback) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, d := range []*direction{&e.capture, &e.render} {
		d.mu.Lock()
		e.reapLocked(d)
		running := d.state == StateRunning
		d.mu.Unlock()
		if running {
			return invalidState("set_callback", d.dir, StateRunning)
		}
	}
	e.callback = cb
	return nil
}

// StartRecording starts the capture worker. It returns once the worker is in
// its loop and the device stream is running.
func (e *Engine) StartRecording() error {
	return e.start(context.Background(), &e.capture)
}

// StartPlayout starts the render worker. It returns once the worker is in
// its loop and the device stream is running.
func (e *Engine) StartPlayout() error {
	return e.start(context.Background(), &e.render)
}

func (e *Engine) start(ctx context.Context, d *direction) (err error) {
	begin := time.Now()
	defer func() { e.observe(metrics.OpStart, begin, err) }()

	e.mu.RLock()
	defer e.mu.RUnlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	e.reapLocked(d)

	if !d.state.canStart() {
		return invalidState("start", d.dir, d.state)
	}
	if e.callback == nil {
		return engineError(errors.CategoryState, "start", &d.dir, nil, "no audio buffer callback registered")
	}
	if d.dir == platform.Capture && d.aec != nil && d.aec.cfg.Render != e.currentRenderFormat(d.format) {
		e.rebuildEchoAdapterLocked(d)
	}

	w := e.newWorker(d, e.callback)
	go w.run()

	select {
	case <-w.started:
	case <-w.done:
		return w.err
	case <-ctx.Done():
		w.stop()
		return errors.New(ctx.Err()).
			Component(componentEngine).
			Category(errors.CategoryCancellation).
			Context("operation", "start").
			Context("direction", d.dir.String()).
			Build()
	}

	if err := d.stream.Get().Start(); err != nil {
		w.stop()
		return platformError("start", d.dir, err)
	}

	d.worker = w
	d.priorityClass = w.priorityClass
	d.state = StateRunning
	e.updateState(d)
	if e.metrics != nil {
		e.metrics.SetPriorityBoosted(d.dir.String(), w.priorityClass == PriorityRealtime)
	}

	e.log.Info("direction started",
		logger.String("direction", d.dir.String()),
		logger.String("priority", w.priorityClass),
		logger.Duration("wait_timeout", w.timeout))
	return nil
}

func (e *Engine) newWorker(d *direction, cb BufferCallback) *worker {
	frameSize := d.format.FrameSize()
	// a restarted direction gets the full threshold again
	d.stats.consecutiveTimeouts.Store(0)
	w := &worker{
		dir:       d.dir,
		stream:    d.stream.Get(),
		session:   e.sessionLocked(),
		priority:  e.priority,
		profile:   e.cfg.priorityProfile,
		timeout:   e.cfg.waitTimeout(d.format.SampleRate),
		threshold: uint64(e.cfg.failureThreshold), //nolint:gosec // G115: validated positive
		buf:       make([]byte, e.cfg.periodFrames*frameSize),
		frames:    e.cfg.periodFrames,
		frameSize: frameSize,
		seq:       d.stats.cycles.Load(),
		stats:     &d.stats,
		log:       e.log.With(logger.String("direction", d.dir.String())),
		warn:      rate.NewLimiter(rate.Every(time.Second), 1),
		shutdown:  make(chan struct{}),
		started:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	w.onDegr = func(reason string, err error) { e.degraded(d.dir, reason, err) }
	if e.metrics != nil {
		w.metrics = e.metrics.Direction(d.dir.String())
	}

	var ref *ReferenceBuffer
	if e.cfg.aecEnabled {
		ref = e.reference
	}
	if d.dir == platform.Capture {
		w.cycle = w.captureCycle(cb, d.aec, ref)
	} else {
		w.cycle = w.renderCycle(cb, ref)
	}
	return w
}

// StopRecording stops the capture worker and the device stream.
func (e *Engine) StopRecording() error {
	return e.stop(&e.capture)
}

// StopPlayout stops the render worker and the device stream.
func (e *Engine) StopPlayout() error {
	return e.stop(&e.render)
}

func (e *Engine) stop(d *direction) (err error) {
	start := time.Now()
	defer func() { e.observe(metrics.OpStop, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	if e.reapLocked(d) {
		// the worker had already stopped itself
		return nil
	}
	if d.state != StateRunning {
		return invalidState("stop", d.dir, d.state)
	}
	e.stopLocked(d)
	return nil
}

// StartAll starts capture and render concurrently. If either fails, the
// direction this call did start is stopped again and the first error is
// returned.
func (e *Engine) StartAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	var started [2]atomic.Bool
	for i, d := range []*direction{&e.capture, &e.render} {
		g.Go(func() error {
			if err := e.start(gctx, d); err != nil {
				return err
			}
			started[i].Store(true)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		return nil
	}
	for i, d := range []*direction{&e.capture, &e.render} {
		if started[i].Load() {
			_ = e.stop(d)
		}
	}
	return err
}

// StopAll stops whichever directions are running.
func (e *Engine) StopAll() error {
	var g errgroup.Group
	for _, d := range []*direction{&e.capture, &e.render} {
		g.Go(func() error {
			d.mu.Lock()
			defer d.mu.Unlock()
			if e.reapLocked(d) || d.state != StateRunning {
				return nil
			}
			e.stopLocked(d)
			return nil
		})
	}
	return g.Wait()
}

// Recording reports whether capture is running.
func (e *Engine) Recording() bool {
	return e.running(&e.capture)
}

// Playing reports whether render is running.
func (e *Engine) Playing() bool {
	return e.running(&e.render)
}

func (e *Engine) running(d *direction) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e.reapLocked(d)
	return d.state == StateRunning
}

// RecordingVolume returns the capture endpoint volume in [0, 1].
func (e *Engine) RecordingVolume() (float32, error) {
	return e.volume(&e.capture)
}

// SetRecordingVolume sets the capture endpoint volume in [0, 1].
func (e *Engine) SetRecordingVolume(level float32) error {
	return e.setVolume(&e.capture, level)
}

// PlayoutVolume returns the render endpoint volume in [0, 1].
func (e *Engine) PlayoutVolume() (float32, error) {
	return e.volume(&e.render)
}

// SetPlayoutVolume sets the render endpoint volume in [0, 1].
func (e *Engine) SetPlayoutVolume(level float32) error {
	return e.setVolume(&e.render, level)
}

func (e *Engine) volume(d *direction) (float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.binding == nil {
		return 0, invalidState("volume", d.dir, d.state)
	}
	level, err := d.binding.volume.Level()
	if err != nil {
		return 0, platformError("volume", d.dir, err)
	}
	return level, nil
}

func (e *Engine) setVolume(d *direction, level float32) error {
	if level < 0 || level > 1 {
		return errors.Newf("volume %.2f out of range [0, 1]", level).
			Component(componentEngine).
			Category(errors.CategoryValidation).
			Context("direction", d.dir.String()).
			Build()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.binding == nil {
		return invalidState("set_volume", d.dir, d.state)
	}
	if err := d.binding.volume.SetLevel(level); err != nil {
		return platformError("set_volume", d.dir, err)
	}
	return nil
}

// stopLocked shuts the worker down and stops the device stream. Caller holds
// d.mu and d.state is Running.
func (e *Engine) stopLocked(d *direction) {
	w := d.worker
	w.stop()

	if err := d.stream.Get().Stop(); err != nil {
		e.log.Warn("device stream stop failed",
			logger.String("direction", d.dir.String()), logger.Error(err))
	}
	if w.err != nil {
		e.recordAsync(w.err)
		e.log.Error("worker stopped on failure",
			logger.String("direction", d.dir.String()), logger.Error(w.err))
	}

	d.worker = nil
	d.state = StateStopped
	e.updateState(d)
	if e.metrics != nil {
		e.metrics.SetPriorityBoosted(d.dir.String(), false)
	}
	e.log.Info("direction stopped", logger.String("direction", d.dir.String()))
}

// reapLocked finalizes a worker that exited on its own. It reports whether
// it did so. Caller holds d.mu.
func (e *Engine) reapLocked(d *direction) bool {
	if d.state != StateRunning || d.worker == nil || !d.worker.exited() {
		return false
	}
	e.stopLocked(d)
	return true
}

// releaseStreamLocked stops and releases the prepared stream, leaving the
// direction at FormatSet. Caller holds d.mu.
func (e *Engine) releaseStreamLocked(d *direction) error {
	if d.state == StateRunning {
		e.stopLocked(d)
	}
	var errs []error
	if d.aec != nil {
		errs = append(errs, d.aec.close())
		d.aec = nil
	}
	errs = append(errs, d.stream.Release())
	d.stream = nil
	if d.state.hasStream() {
		d.state = StateFormatSet
	}
	return errors.Join(errs...)
}

// unbindLocked releases everything held by d and returns it to Unbound.
// Caller holds d.mu.
func (e *Engine) unbindLocked(d *direction) error {
	err := errors.Join(e.releaseStreamLocked(d), d.binding.release())
	d.binding = nil
	d.format = platform.Format{}
	d.state = StateUnbound
	if d.dir == platform.Render {
		e.renderFormat.Store(nil)
	}
	e.updateState(d)
	return err
}

func (e *Engine) recordAsync(err error) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	e.lastErr = err
}

// degraded records a non-fatal loss of capability.
func (e *Engine) degraded(dir platform.Direction, reason string, err error) {
	if reason == reasonEchoCancellation {
		e.setAECAvailable(false)
	}
	e.log.Warn("degraded operation",
		logger.String("component", componentEngine),
		logger.String("direction", dir.String()),
		logger.String("reason", reason),
		logger.Error(err))
	if e.metrics != nil {
		e.metrics.RecordDegraded(dir.String(), reason)
	}
}

func (e *Engine) setAECAvailable(ok bool) {
	if e.metrics != nil {
		e.metrics.SetAECAvailable(ok)
	}
}

func (e *Engine) updateState(d *direction) {
	if e.metrics != nil {
		e.metrics.UpdateState(d.dir.String(), int(d.state))
	}
}

func (e *Engine) observe(op string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		e.metrics.RecordOperation(op, metrics.StatusError)
		e.metrics.RecordError(op, Kind(err).String())
		return
	}
	e.metrics.RecordOperation(op, metrics.StatusSuccess)
}

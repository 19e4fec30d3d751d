package audioengine

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
	"github.com/tphakala/audioengine/internal/observability/metrics"
)

// directionStats are written by the worker and read by Status.
type directionStats struct {
	cycles              atomic.Uint64
	frames              atomic.Uint64
	underruns           atomic.Uint64
	overruns            atomic.Uint64
	waitTimeouts        atomic.Uint64
	consecutiveTimeouts atomic.Uint64
}

// worker is the real-time loop for one direction. It owns a locked OS thread
// for its lifetime; everything it touches was snapshotted at Start.
type worker struct {
	dir       platform.Direction
	stream    platform.Stream
	session   platform.Session
	priority  PriorityManager
	profile   string
	timeout   time.Duration
	threshold uint64

	buf       []byte
	frames    int
	frameSize int
	seq       uint64

	stats   *directionStats
	metrics *metrics.DirectionMetrics // nil without metrics
	onDegr  func(reason string, err error)
	log     logger.Logger
	warn    *rate.Limiter
	cycle   func() error

	shutdown chan struct{}
	started  chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// written before started or done is closed
	priorityClass string
	err           error
}

func (w *worker) run() {
	defer close(w.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	detach, err := w.session.AttachThread()
	if err != nil {
		w.err = platformError("attach_thread", w.dir, err)
		return
	}
	defer detach()

	tok, err := w.priority.Elevate(w.profile)
	if err != nil {
		w.onDegr(reasonThreadPriority, err)
	}
	defer func() {
		if err := tok.Revert(); err != nil {
			w.log.Warn("failed to revert thread priority", logger.Error(err))
		}
	}()
	w.priorityClass = tok.Class()

	close(w.started)
	w.loop()
}

func (w *worker) loop() {
	ready := w.stream.Ready()
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		select {
		case <-w.shutdown:
			return

		case <-ready:
			w.stats.consecutiveTimeouts.Store(0)
			if err := w.cycle(); err != nil {
				w.err = err
				return
			}

		case <-timer.C:
			n := w.stats.consecutiveTimeouts.Add(1)
			w.stats.waitTimeouts.Add(1)
			if w.metrics != nil {
				w.metrics.WaitTimeouts.Inc()
			}
			if n >= w.threshold {
				w.err = engineError(errors.CategoryAudio, "wait", &w.dir, nil,
					"%d consecutive readiness timeouts, stopping %s", n, w.dir)
				return
			}
			if w.warn.Allow() {
				w.log.Warn("readiness wait timed out",
					logger.Duration("timeout", w.timeout),
					logger.Uint64("consecutive", n))
			}
		}
		timer.Reset(w.timeout)
	}
}

// stop signals shutdown and waits for the loop to exit. Safe to call after
// the loop already ended on its own.
func (w *worker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
	<-w.done
}

func (w *worker) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *worker) observeCallback(start time.Time) {
	if w.metrics == nil {
		return
	}
	w.metrics.CallbackDuration.Observe(time.Since(start).Seconds())
	w.metrics.Cycles.Inc()
	w.metrics.Frames.Add(float64(w.frames))
}

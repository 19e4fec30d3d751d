package playback

import (
	"sync"
	"sync/atomic"

	"github.com/tphakala/audioengine/internal/audioengine"
	"github.com/tphakala/audioengine/internal/encoder"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

// DefaultQueueDepth is the number of capture periods a Recorder buffers
// ahead of its encoder.
const DefaultQueueDepth = 64

// Recorder hands captured periods to an encoder on its own goroutine. The
// capture thread only copies into a recycled buffer; when the encoder falls
// behind and no buffer is free the period is dropped and counted.
type Recorder struct {
	enc    encoder.Encoder
	queue  chan []byte
	free   chan []byte
	closed atomic.Bool

	frameSize int
	frames    atomic.Uint64
	dropped   atomic.Uint64

	done      chan struct{}
	err       error
	closeOnce sync.Once
	closeErr  error
}

// NewRecorder starts a recorder writing frameSize-byte frames to enc.
// periodBytes sizes the recycled buffers; larger blocks still fit because
// the buffers grow on demand.
func NewRecorder(enc encoder.Encoder, frameSize, periodBytes, depth int) *Recorder {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	r := &Recorder{
		enc:       enc,
		queue:     make(chan []byte, depth),
		free:      make(chan []byte, depth),
		frameSize: frameSize,
		done:      make(chan struct{}),
	}
	for range depth {
		r.free <- make([]byte, 0, periodBytes)
	}
	go r.run()
	return r
}

// OnCapturedFrames queues a copy of the block. It must not be called after
// Close.
func (r *Recorder) OnCapturedFrames(block audioengine.FrameBlock) {
	if r.closed.Load() {
		return
	}
	select {
	case buf := <-r.free:
		r.queue <- append(buf[:0], block.Data...)
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for buf := range r.queue {
		if r.err == nil {
			n, err := r.enc.Write(buf)
			r.frames.Add(uint64(n / r.frameSize)) //nolint:gosec // G115: n is non-negative
			if err != nil {
				r.err = err
				GetLogger().Error("encoder write failed, discarding further audio",
					logger.String("type", r.enc.Type().String()),
					logger.Error(err))
			}
		}
		r.free <- buf
	}
}

// Close drains queued periods into the encoder and closes it. Capture must
// have stopped delivering to the recorder first.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.queue)
		<-r.done
		if err := r.enc.Close(); err != nil {
			r.closeErr = errors.Join(r.err, err)
			return
		}
		r.closeErr = r.err
		if d := r.dropped.Load(); d > 0 {
			GetLogger().Warn("recorder dropped periods",
				logger.Uint64("dropped", d),
				logger.Uint64("frames_written", r.frames.Load()))
		}
	})
	return r.closeErr
}

// Frames returns the number of frames handed to the encoder.
func (r *Recorder) Frames() uint64 { return r.frames.Load() }

// Dropped returns the number of periods discarded because the queue was full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

package malgoplatform

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

// stream bridges miniaudio's data callback and the engine worker.
//
// capture: callback writes device frames into ring, worker reads periods.
// render: worker writes periods into ring, callback drains it into the device.
type stream struct {
	dir        platform.Direction
	format     platform.Format
	blockBytes int
	frameSize  int
	ring       *ringbuffer.RingBuffer
	ready      chan struct{}
	volume     *softwareVolume
	device     *malgo.Device

	dropped atomic.Uint64 // frames lost on the device side
	stopped atomic.Bool   // device stopped on its own (unplugged)

	closeOnce sync.Once
	closed    atomic.Bool
}

func newStream(dir platform.Direction, f platform.Format, periodFrames, ringPeriods int, vol *softwareVolume) *stream {
	block := periodFrames * f.FrameSize()
	return &stream{
		dir:        dir,
		format:     f,
		blockBytes: block,
		frameSize:  f.FrameSize(),
		ring:       ringbuffer.New(block * ringPeriods),
		ready:      make(chan struct{}, 1),
		volume:     vol,
	}
}

func (s *stream) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// onData runs on miniaudio's device thread.
func (s *stream) onData(pOutput, pInput []byte, _ uint32) {
	if s.dir == platform.Capture {
		s.captureCallback(pInput)
		return
	}
	s.renderCallback(pOutput)
}

func (s *stream) captureCallback(in []byte) {
	if len(in) == 0 {
		return
	}
	s.volume.apply(in)

	free := s.ring.Free()
	n := len(in)
	if n > free {
		s.dropped.Add(uint64((n - free) / s.frameSize)) //nolint:gosec // positive by construction
		n = free - free%s.frameSize
	}
	if n > 0 {
		if _, err := s.ring.Write(in[:n]); err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
			s.dropped.Add(uint64(n / s.frameSize)) //nolint:gosec // positive by construction
		}
	}
	if s.ring.Length() >= s.blockBytes {
		s.signal()
	}
}

func (s *stream) renderCallback(out []byte) {
	if len(out) == 0 {
		return
	}
	avail := s.ring.Length()
	n := min(avail, len(out))
	if n > 0 {
		read, _ := s.ring.Read(out[:n])
		n = read
	}
	if n < len(out) {
		clear(out[n:])
		s.dropped.Add(uint64((len(out) - n) / s.frameSize)) //nolint:gosec // positive by construction
	}
	s.volume.apply(out[:n])
	if s.ring.Free() >= s.blockBytes {
		s.signal()
	}
}

func (s *stream) onStop() {
	if !s.closed.Load() {
		s.stopped.Store(true)
		GetLogger().Warn("device stopped by backend", logger.String("direction", s.dir.String()))
	}
}

// Ready implements platform.Stream.
func (s *stream) Ready() <-chan struct{} { return s.ready }

// Read moves at most one period out of the capture ring.
func (s *stream) Read(p []byte) (int, error) {
	if s.closed.Load() || s.stopped.Load() {
		return 0, platform.ErrStreamClosed
	}
	if s.ring.Length() < s.blockBytes {
		return 0, nil
	}
	n, err := s.ring.Read(p[:min(len(p), s.blockBytes)])
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return n, err
	}
	if s.ring.Length() >= s.blockBytes {
		s.signal()
	}
	return n, nil
}

// Write moves at most one period into the render ring.
func (s *stream) Write(p []byte) (int, error) {
	if s.closed.Load() || s.stopped.Load() {
		return 0, platform.ErrStreamClosed
	}
	n := min(len(p), s.blockBytes, s.ring.Free())
	if n == 0 {
		return 0, nil
	}
	written, err := s.ring.Write(p[:n])
	if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
		return written, err
	}
	if s.ring.Free() >= s.blockBytes {
		s.signal()
	}
	return written, nil
}

// Start implements platform.Stream. Render streams start with an empty ring
// and are immediately writable.
func (s *stream) Start() error {
	s.ring.Reset()
	s.stopped.Store(false)
	if err := s.device.Start(); err != nil {
		return mapDeviceError(err, "device_start", s.dir)
	}
	if s.dir == platform.Render {
		s.signal()
	}
	return nil
}

// Stop implements platform.Stream.
func (s *stream) Stop() error {
	if !s.device.IsStarted() {
		return nil
	}
	if err := s.device.Stop(); err != nil {
		return mapDeviceError(err, "device_stop", s.dir)
	}
	return nil
}

// Close uninitializes the device exactly once.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.device.Uninit()
	})
	return nil
}

// DroppedFrames implements platform.DropCounter.
func (s *stream) DroppedFrames() uint64 {
	return s.dropped.Load()
}

var (
	_ platform.Stream      = (*stream)(nil)
	_ platform.DropCounter = (*stream)(nil)
)

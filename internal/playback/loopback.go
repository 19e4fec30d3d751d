package playback

import (
	"sync/atomic"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/audioengine/internal/audioengine"
	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
)

// DefaultLoopbackPeriods is the loopback ring capacity in render periods.
const DefaultLoopbackPeriods = 8

// Loopback plays captured audio back out. Capture writes into a ring
// buffer after remixing to the render channel count; render drains it.
// Both formats must share a sample rate.
type Loopback struct {
	ring    *ringbuffer.RingBuffer
	in, out platform.Format
	scratch []byte

	overflows  atomic.Uint64
	underflows atomic.Uint64
}

// NewLoopback sizes the ring for periods render periods of periodFrames.
func NewLoopback(in, out platform.Format, periodFrames, periods int) (*Loopback, error) {
	if in.SampleRate != out.SampleRate {
		return nil, errors.Newf("loopback needs matching sample rates, capture %d Hz, render %d Hz", in.SampleRate, out.SampleRate).
			Component("playback").
			Category(errors.CategoryAudioFormat).
			Context("capture_format", in.String()).
			Context("render_format", out.String()).
			Build()
	}
	if periodFrames <= 0 {
		periodFrames = audioengine.DefaultPeriodFrames
	}
	if periods <= 0 {
		periods = DefaultLoopbackPeriods
	}
	return &Loopback{
		ring:    ringbuffer.New(periodFrames * periods * out.FrameSize()),
		in:      in,
		out:     out,
		scratch: make([]byte, periodFrames*out.FrameSize()),
	}, nil
}

// OnCapturedFrames implements CaptureSink.
func (l *Loopback) OnCapturedFrames(block audioengine.FrameBlock) {
	need := block.Frames * l.out.FrameSize()
	if cap(l.scratch) < need {
		l.scratch = make([]byte, need)
	}
	n := remix(l.scratch[:need], block.Data[:block.Frames*l.in.FrameSize()], l.in.Channels, l.out.Channels)

	// Only whole frames go in so render never reads a torn frame.
	fs := l.out.FrameSize()
	room := l.ring.Free() - l.ring.Free()%fs
	if n > room {
		l.overflows.Add(1)
		n = room
	}
	if n == 0 {
		return
	}
	if _, err := l.ring.Write(l.scratch[:n]); err != nil && errors.Is(err, ringbuffer.ErrIsFull) {
		l.overflows.Add(1)
	}
}

// OnNeedRenderFrames implements RenderSource.
func (l *Loopback) OnNeedRenderFrames(dst []byte, requested int) int {
	fs := l.out.FrameSize()
	avail := l.ring.Length() - l.ring.Length()%fs
	n := min(requested*fs, avail)
	if n > 0 {
		read, err := l.ring.Read(dst[:n])
		if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			n = 0
		} else {
			n = read
		}
	}
	frames := n / fs
	if frames < requested {
		l.underflows.Add(1)
	}
	return frames
}

// Buffered returns the number of frames waiting for render.
func (l *Loopback) Buffered() int { return l.ring.Length() / l.out.FrameSize() }

// Overflows counts capture periods that did not fully fit in the ring.
func (l *Loopback) Overflows() uint64 { return l.overflows.Load() }

// Underflows counts render periods the ring could not fill.
func (l *Loopback) Underflows() uint64 { return l.underflows.Load() }

// Reset discards buffered audio.
func (l *Loopback) Reset() { l.ring.Reset() }

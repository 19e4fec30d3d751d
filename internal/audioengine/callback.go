package audioengine

import "time"

// FrameBlock is one period of interleaved 16-bit little-endian PCM.
type FrameBlock struct {
	// Data is only valid for the duration of the callback; copy it to keep it.
	Data      []byte
	Frames    int
	Sequence  uint64 // per-direction cycle number, strictly increasing
	Timestamp time.Time
}

// BufferCallback exchanges audio with the application. Both methods run on
// the real-time worker threads and must return quickly: no blocking I/O, no
// locks shared with slow code.
type BufferCallback interface {
	// OnCapturedFrames receives each captured period after echo
	// cancellation.
	OnCapturedFrames(block FrameBlock)

	// OnNeedRenderFrames fills dst with up to requested frames and returns
	// the number of frames written. Shortfalls are padded with silence and
	// counted as underruns.
	OnNeedRenderFrames(dst []byte, requested int) int
}

// BufferCallbackFuncs adapts plain functions to BufferCallback. A nil field
// drops captured frames or renders silence.
type BufferCallbackFuncs struct {
	Captured   func(block FrameBlock)
	NeedRender func(dst []byte, requested int) int
}

// OnCapturedFrames implements BufferCallback.
func (f BufferCallbackFuncs) OnCapturedFrames(block FrameBlock) {
	if f.Captured != nil {
		f.Captured(block)
	}
}

// OnNeedRenderFrames implements BufferCallback.
func (f BufferCallbackFuncs) OnNeedRenderFrames(dst []byte, requested int) int {
	if f.NeedRender == nil {
		return 0
	}
	return f.NeedRender(dst, requested)
}

package playback

import "github.com/tphakala/audioengine/internal/audioengine"

// CaptureSink consumes captured periods.
type CaptureSink interface {
	OnCapturedFrames(block audioengine.FrameBlock)
}

// RenderSource produces render periods.
type RenderSource interface {
	OnNeedRenderFrames(dst []byte, requested int) int
}

// Callback joins an optional sink and source into one engine callback. A
// missing sink drops captured frames; a missing source renders silence.
type Callback struct {
	Sink   CaptureSink
	Source RenderSource
}

// OnCapturedFrames implements audioengine.BufferCallback.
func (c Callback) OnCapturedFrames(block audioengine.FrameBlock) {
	if c.Sink != nil {
		c.Sink.OnCapturedFrames(block)
	}
}

// OnNeedRenderFrames implements audioengine.BufferCallback.
func (c Callback) OnNeedRenderFrames(dst []byte, requested int) int {
	if c.Source == nil {
		return 0
	}
	return c.Source.OnNeedRenderFrames(dst, requested)
}

var _ audioengine.BufferCallback = Callback{}

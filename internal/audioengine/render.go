package audioengine

import "time"

// renderCycle pulls one period from the callback, pads any shortfall with
// silence, publishes it as the echo reference and writes it to the device.
func (w *worker) renderCycle(cb BufferCallback, ref *ReferenceBuffer) func() error {
	return func() error {
		now := time.Now()
		got := cb.OnNeedRenderFrames(w.buf, w.frames)
		w.observeCallback(now)

		got = max(0, min(got, w.frames))
		if got < w.frames {
			clear(w.buf[got*w.frameSize:])
			w.stats.underruns.Add(1)
			if w.metrics != nil {
				w.metrics.Underruns.Inc()
			}
		}

		w.seq++
		if ref != nil {
			ref.Publish(w.buf, w.seq)
		}

		n, err := w.stream.Write(w.buf)
		if err != nil {
			return platformError("render_write", w.dir, err)
		}
		if n < len(w.buf) {
			w.stats.overruns.Add(1)
			if w.metrics != nil {
				w.metrics.Overruns.Inc()
			}
		}

		w.stats.cycles.Store(w.seq)
		w.stats.frames.Add(uint64(w.frames)) //nolint:gosec // G115: period size is positive
		return nil
	}
}

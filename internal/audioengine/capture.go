package audioengine

import "time"

// captureCycle reads one period, runs it through echo cancellation when
// configured and hands it to the callback.
func (w *worker) captureCycle(cb BufferCallback, aec *echoAdapter, ref *ReferenceBuffer) func() error {
	return func() error {
		n, err := w.stream.Read(w.buf)
		if err != nil {
			return platformError("capture_read", w.dir, err)
		}
		if n < len(w.buf) {
			// woken without a complete period
			if n > 0 {
				w.stats.overruns.Add(1)
				if w.metrics != nil {
					w.metrics.Overruns.Inc()
				}
			}
			return nil
		}

		data := w.buf
		if aec.available() {
			var reference []byte
			if ref != nil {
				reference, _, _ = ref.Latest()
			}
			out, err := aec.process(data, reference)
			if err != nil {
				w.onDegr(reasonEchoCancellation, err)
			}
			data = out
		}

		w.seq++
		w.stats.cycles.Store(w.seq)
		w.stats.frames.Add(uint64(w.frames)) //nolint:gosec // G115: period size is positive

		now := time.Now()
		cb.OnCapturedFrames(FrameBlock{
			Data:      data,
			Frames:    w.frames,
			Sequence:  w.seq,
			Timestamp: now,
		})
		w.observeCallback(now)
		return nil
	}
}

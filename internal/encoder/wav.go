package encoder

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/audioengine/internal/errors"
)

const (
	bitDepth      = 16
	wavFormatPCM  = 1
	bytesPerInt16 = 2
)

// wavEncoder streams 16-bit PCM into a RIFF/WAVE container. The header sizes
// are patched on Close, which is why the output must be seekable.
type wavEncoder struct {
	enc      *wav.Encoder
	buf      *audio.IntBuffer
	carry    byte // odd trailing byte from the previous Write
	hasCarry bool
	frames   int
	closed   bool
}

func newWAVEncoder(w io.WriteSeeker, cfg Config) (Encoder, error) {
	return &wavEncoder{
		enc: wav.NewEncoder(w, cfg.SampleRate, bitDepth, cfg.Channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: cfg.SampleRate, NumChannels: cfg.Channels},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

func (e *wavEncoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, errClosed(WAV)
	}
	total := len(p)
	if e.hasCarry {
		total++
	}
	byteAt := func(i int) byte {
		if !e.hasCarry {
			return p[i]
		}
		if i == 0 {
			return e.carry
		}
		return p[i-1]
	}

	samples := total / bytesPerInt16
	if cap(e.buf.Data) < samples {
		e.buf.Data = make([]int, samples)
	}
	e.buf.Data = e.buf.Data[:samples]
	for i := range samples {
		lo, hi := byteAt(2*i), byteAt(2*i+1)
		e.buf.Data[i] = int(int16(uint16(lo) | uint16(hi)<<8)) //nolint:gosec // G115: reinterpreting sample bits
	}
	if total%bytesPerInt16 != 0 {
		e.carry = byteAt(total - 1)
		e.hasCarry = true
	} else {
		e.hasCarry = false
	}

	if samples == 0 {
		return len(p), nil
	}
	if err := e.enc.Write(e.buf); err != nil {
		return 0, errors.New(err).
			Component("encoder").
			Category(errors.CategoryFileIO).
			Context("operation", "wav_write").
			Build()
	}
	e.frames += samples / e.buf.Format.NumChannels
	return len(p), nil
}

func (e *wavEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.enc.Close(); err != nil {
		return errors.New(err).
			Component("encoder").
			Category(errors.CategoryFileIO).
			Context("operation", "wav_close").
			Context("frames", e.frames).
			Build()
	}
	return nil
}

func (e *wavEncoder) Type() FileType { return WAV }

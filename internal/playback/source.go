package playback

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

// FileSource renders decoded file audio. The whole file is decoded and
// converted to the render format up front so the render thread only copies.
type FileSource struct {
	pcm       []byte
	format    platform.Format
	frameSize int
	loop      bool

	pos      atomic.Int64
	done     chan struct{}
	doneOnce sync.Once
}

// NewSource renders pcm, which must already be in format.
func NewSource(pcm []byte, format platform.Format, loop bool) *FileSource {
	fs := format.FrameSize()
	return &FileSource{
		pcm:       pcm[:len(pcm)-len(pcm)%fs],
		format:    format,
		frameSize: fs,
		loop:      loop,
		done:      make(chan struct{}),
	}
}

// OpenFile decodes a WAV or FLAC file and converts it to target.
func OpenFile(path string, target platform.Format, loop bool) (*FileSource, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is a user supplied media file
	if err != nil {
		return nil, errors.New(err).
			Component("playback").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = f.Close() }()

	var (
		samples        []int16
		rate, channels int
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		samples, rate, channels, err = decodeWAV(f)
	case ".flac":
		samples, rate, channels, err = decodeFLAC(f)
	default:
		return nil, errors.Newf("unsupported media file extension %q", ext).
			Component("playback").
			Category(errors.CategoryUnsupported).
			Context("path", path).
			Build()
	}
	if err != nil {
		return nil, err
	}
	if rate <= 0 || channels <= 0 {
		return nil, errors.Newf("media file reports %d Hz, %d channels", rate, channels).
			Component("playback").
			Category(errors.CategoryAudioFormat).
			Context("path", path).
			Build()
	}

	samples = resample(samples, channels, rate, target.SampleRate)
	raw := int16sToBytes(samples)
	frames := len(samples) / channels
	pcm := make([]byte, frames*target.FrameSize())
	remix(pcm, raw, channels, target.Channels)

	GetLogger().Info("media file loaded",
		logger.String("path", path),
		logger.Int("source_rate", rate),
		logger.Int("source_channels", channels),
		logger.String("format", target.String()),
		logger.Int("frames", frames))

	return NewSource(pcm, target, loop), nil
}

// OnNeedRenderFrames copies the next frames into dst. Without looping the
// source runs dry at the end of the file and Done is closed.
func (s *FileSource) OnNeedRenderFrames(dst []byte, requested int) int {
	want := requested * s.frameSize
	pos := int(s.pos.Load())
	n := copy(dst[:want], s.pcm[pos:])
	pos += n
	if s.loop && len(s.pcm) > 0 {
		for n < want {
			pos = copy(dst[n:want], s.pcm)
			n += pos
		}
	}
	s.pos.Store(int64(pos))
	if !s.loop && pos >= len(s.pcm) {
		s.doneOnce.Do(func() { close(s.done) })
	}
	return n / s.frameSize
}

// Done is closed once a non-looping source has rendered every frame.
func (s *FileSource) Done() <-chan struct{} { return s.done }

// Format returns the render format the source was converted to.
func (s *FileSource) Format() platform.Format { return s.format }

// Frames returns the total number of frames in the source.
func (s *FileSource) Frames() int { return len(s.pcm) / s.frameSize }

// Position returns the next frame to be rendered.
func (s *FileSource) Position() int { return int(s.pos.Load()) / s.frameSize }

// Rewind restarts the source from the first frame. Done stays closed once
// it has fired.
func (s *FileSource) Rewind() { s.pos.Store(0) }

func decodeWAV(r io.ReadSeeker) (samples []int16, rate, channels int, err error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if !d.IsValidFile() {
		return nil, 0, 0, errors.Newf("invalid WAV file").
			Component("playback").
			Category(errors.CategoryAudioFormat).
			Build()
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, errors.New(err).
			Component("playback").
			Category(errors.CategoryAudioFormat).
			Context("operation", "decode_wav").
			Build()
	}

	depth := int(d.BitDepth)
	samples = make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = scaleTo16(v, depth)
	}
	return samples, int(d.SampleRate), int(d.NumChans), nil
}

func decodeFLAC(r io.Reader) (samples []int16, rate, channels int, err error) {
	d, err := flac.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, errors.New(err).
			Component("playback").
			Category(errors.CategoryAudioFormat).
			Context("operation", "decode_flac").
			Build()
	}

	width := d.BitsPerSample / 8
	if width < 1 || width > 4 {
		return nil, 0, 0, errors.Newf("unsupported FLAC bit depth: %d", d.BitsPerSample).
			Component("playback").
			Category(errors.CategoryAudioFormat).
			Build()
	}
	if d.TotalSamples > 0 {
		samples = make([]int16, 0, int(d.TotalSamples)*d.NChannels) //nolint:gosec // G115: sample count from stream header
	}

	for {
		frame, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, errors.New(err).
				Component("playback").
				Category(errors.CategoryAudioFormat).
				Context("operation", "decode_flac").
				Build()
		}
		for i := 0; i+width <= len(frame); i += width {
			var v int
			switch d.BitsPerSample {
			case 16:
				v = int(int16(binary.LittleEndian.Uint16(frame[i:]))) //nolint:gosec // G115: reinterpreting sample bits
			case 24:
				v = int(int32(uint32(frame[i])|uint32(frame[i+1])<<8|uint32(frame[i+2])<<16) << 8 >> 8) //nolint:gosec // G115: sign extension
			case 32:
				v = int(int32(binary.LittleEndian.Uint32(frame[i:]))) //nolint:gosec // G115: reinterpreting sample bits
			default:
				// FLAC 8-bit is signed, unlike WAV
				v = int(int8(frame[i])) //nolint:gosec // G115: reinterpreting sample bits
				samples = append(samples, int16(v<<8))
				continue
			}
			samples = append(samples, scaleTo16(v, d.BitsPerSample))
		}
	}
	return samples, d.SampleRate, d.NChannels, nil
}

package malgoplatform

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

// defaultMixFormat is offered when the device reports no native formats.
var defaultMixFormat = platform.NewFormat(48000, 2)

type client struct {
	session *session
	dir     platform.Direction
	id      malgo.DeviceID
	mode    malgo.ShareMode
	formats []malgo.DataFormat
	volume  *softwareVolume

	closeOnce sync.Once
	closed    atomic.Bool
}

// matches reports whether a native data format accepts f. Zero fields in a
// native format mean "any".
func matches(df malgo.DataFormat, f platform.Format) bool {
	if df.Format != malgo.FormatUnknown && df.Format != malgo.FormatS16 {
		return false
	}
	if df.Channels != 0 && int(df.Channels) != f.Channels {
		return false
	}
	if df.SampleRate != 0 && int(df.SampleRate) != f.SampleRate {
		return false
	}
	return true
}

// IsFormatSupported checks f against the device's native formats. In shared
// mode miniaudio converts sample rates, so a native format with the requested
// channel count is offered as the closest match.
func (c *client) IsFormatSupported(f platform.Format) (bool, *platform.Format, error) {
	if c.closed.Load() {
		return false, nil, platform.ErrStreamClosed
	}
	if f.BitsPerSample != platform.BitsPerSample {
		return false, nil, nil
	}
	if len(c.formats) == 0 {
		// backend does not report native formats, miniaudio converts everything
		return true, nil, nil
	}
	for _, df := range c.formats {
		if matches(df, f) {
			return true, nil, nil
		}
	}
	if c.mode == malgo.Exclusive {
		return false, nil, nil
	}

	mix, err := c.MixFormat()
	if err != nil {
		return false, nil, err
	}
	for _, df := range c.formats {
		if df.Channels == 0 || int(df.Channels) == f.Channels {
			closest := platform.NewFormat(f.SampleRate, f.Channels)
			if df.SampleRate != 0 {
				closest.SampleRate = int(df.SampleRate)
			}
			return false, &closest, nil
		}
	}
	return false, &mix, nil
}

// MixFormat returns the first native format with unset fields filled from the default mix.
func (c *client) MixFormat() (platform.Format, error) {
	if len(c.formats) == 0 {
		return defaultMixFormat, nil
	}
	df := c.formats[0]
	mix := defaultMixFormat
	if df.Channels != 0 {
		mix.Channels = int(df.Channels)
	}
	if df.SampleRate != 0 {
		mix.SampleRate = int(df.SampleRate)
	}
	return mix, nil
}

func (c *client) Volume() platform.Volume {
	return c.volume
}

// OpenStream initializes a miniaudio device for the negotiated format.
func (c *client) OpenStream(f platform.Format, periodFrames int) (platform.Stream, error) {
	if c.closed.Load() {
		return nil, platform.ErrStreamClosed
	}

	kind := deviceType(c.dir)
	cfg := malgo.DefaultDeviceConfig(kind)
	cfg.SampleRate = uint32(f.SampleRate)         //nolint:gosec // validated sample rate
	cfg.PeriodSizeInFrames = uint32(periodFrames) //nolint:gosec // validated period
	cfg.Periods = 2
	cfg.PerformanceProfile = malgo.LowLatency
	cfg.Alsa.NoMMap = 1

	sub := malgo.SubConfig{
		Format:    malgo.FormatS16,
		Channels:  uint32(f.Channels), //nolint:gosec // validated channel count
		DeviceID:  c.id.Pointer(),
		ShareMode: c.mode,
	}
	if c.dir == platform.Render {
		cfg.Playback = sub
	} else {
		cfg.Capture = sub
	}

	s := newStream(c.dir, f, periodFrames, c.session.provider.ringPeriods, c.volume)
	device, err := malgo.InitDevice(c.session.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	})
	if err != nil {
		return nil, mapDeviceError(err, "init_device", c.dir)
	}
	s.device = device

	GetLogger().Debug("device initialized",
		logger.String("direction", c.dir.String()),
		logger.String("format", f.String()),
		logger.Int("period_frames", periodFrames))

	return s, nil
}

func (c *client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
	})
	return nil
}

// softwareVolume scales samples in the data callback. malgo does not expose
// the endpoint volume, so the level applies to this stream only.
type softwareVolume struct {
	bits atomic.Uint32
}

func newSoftwareVolume() *softwareVolume {
	v := &softwareVolume{}
	v.bits.Store(math.Float32bits(1))
	return v
}

func (v *softwareVolume) Level() (float32, error) {
	return math.Float32frombits(v.bits.Load()), nil
}

func (v *softwareVolume) SetLevel(level float32) error {
	if level < 0 || level > 1 || math.IsNaN(float64(level)) {
		return errors.Newf("volume level %v out of range 0..1", level).
			Component(componentMalgo).
			Category(errors.CategoryValidation).
			Build()
	}
	v.bits.Store(math.Float32bits(level))
	return nil
}

// apply scales 16-bit little-endian samples in place.
func (v *softwareVolume) apply(p []byte) {
	level := math.Float32frombits(v.bits.Load())
	if level == 1 {
		return
	}
	for i := 0; i+1 < len(p); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(p[i:])) //nolint:gosec // reinterpret PCM bits
		scaled := int16(float32(sample) * level)
		binary.LittleEndian.PutUint16(p[i:], uint16(scaled)) //nolint:gosec // reinterpret PCM bits
	}
}

package audioengine

import (
	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
)

// binding is the live association between a direction and one endpoint.
type binding struct {
	endpoint platform.EndpointDescriptor
	client   *owned[platform.Client]
	volume   platform.Volume
	geometry *platform.Geometry
}

func (b *binding) release() error {
	if b == nil {
		return nil
	}
	return b.client.Release()
}

// bind acquires the client and volume handles for ep. For capture endpoints
// with echo cancellation enabled it also resolves the mic array geometry;
// failing that is reported as degraded, not returned.
func (e *Engine) bind(sess platform.Session, dir platform.Direction, ep platform.EndpointDescriptor) (*binding, error) {
	client, err := sess.OpenClient(dir, ep.ID, e.cfg.shareMode)
	if err != nil {
		return nil, platformError("bind", dir, err)
	}

	b := &binding{
		endpoint: ep,
		client:   own(client, platform.Client.Close),
		volume:   client.Volume(),
	}

	if dir == platform.Capture && e.cfg.aecEnabled && ep.IsMicArray {
		geo, err := e.geometry.lookup(sess, ep)
		if err != nil {
			e.degraded(dir, "mic_array_geometry", err)
		}
		b.geometry = geo
	}
	return b, nil
}

// negotiate picks the stream format for a (rate, channels) request. The
// exact format wins; otherwise the platform's closest match is accepted only
// when it keeps the requested channel count.
func negotiate(client platform.Client, dir platform.Direction, rate, channels int) (platform.Format, error) {
	if rate <= 0 || channels <= 0 {
		return platform.Format{}, formatUnsupported(dir, rate, channels, "rate and channels must be positive")
	}

	want := platform.NewFormat(rate, channels)
	ok, closest, err := client.IsFormatSupported(want)
	if err != nil {
		return platform.Format{}, platformError("set_format", dir, err)
	}
	if ok {
		return want, nil
	}
	if closest == nil {
		return platform.Format{}, formatUnsupported(dir, rate, channels, "no substitute offered")
	}
	if closest.Channels != channels {
		return platform.Format{}, formatUnsupported(dir, rate, channels, "closest format has a different channel count")
	}
	// sample depth is fixed by the engine
	return platform.NewFormat(closest.SampleRate, closest.Channels), nil
}

func formatUnsupported(dir platform.Direction, rate, channels int, reason string) error {
	return errors.Newf("%s format %dHz/%dch unsupported: %s", dir, rate, channels, reason).
		Component(componentEngine).
		Category(errors.CategoryAudioFormat).
		Context("operation", "set_format").
		Context("direction", dir.String()).
		Context("sample_rate", rate).
		Context("channels", channels).
		Build()
}

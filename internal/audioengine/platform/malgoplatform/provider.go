// Package malgoplatform implements the engine's platform interfaces on top of
// miniaudio through github.com/gen2brain/malgo.
//
// miniaudio drives its own device threads and hands audio to a data callback.
// Each stream bridges that callback to the engine through a ring buffer and a
// one-slot readiness channel, so the engine's worker loop keeps the
// wait/read/deliver shape it has on every platform.
package malgoplatform

import (
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

const componentMalgo = "audioengine.malgo"

// Provider opens miniaudio contexts for a fixed backend list.
type Provider struct {
	name        string
	backends    []malgo.Backend
	ringPeriods int
	log         logger.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithRingPeriods sets how many periods each stream's ring buffer holds.
func WithRingPeriods(n int) Option {
	return func(p *Provider) {
		if n >= 2 {
			p.ringPeriods = n
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a provider for the named backend. "auto" or "" selects the
// native stack for the running OS.
func New(backend string, opts ...Option) (*Provider, error) {
	backends, name, err := resolveBackend(backend)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		name:        name,
		backends:    backends,
		ringPeriods: 4,
		log:         GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// resolveBackend maps a configured backend name to miniaudio backends.
func resolveBackend(backend string) ([]malgo.Backend, string, error) {
	switch strings.ToLower(backend) {
	case "", "auto":
		switch runtime.GOOS {
		case "linux":
			return []malgo.Backend{malgo.BackendAlsa}, "alsa", nil
		case "windows":
			return []malgo.Backend{malgo.BackendWasapi}, "wasapi", nil
		case "darwin":
			return []malgo.Backend{malgo.BackendCoreaudio}, "coreaudio", nil
		default:
			return nil, "", errors.Newf("unsupported operating system: %s", runtime.GOOS).
				Component(componentMalgo).
				Category(errors.CategorySystem).
				Context("operation", "resolve_backend").
				Build()
		}
	case "wasapi":
		return []malgo.Backend{malgo.BackendWasapi}, "wasapi", nil
	case "alsa":
		return []malgo.Backend{malgo.BackendAlsa}, "alsa", nil
	case "pulseaudio":
		return []malgo.Backend{malgo.BackendPulseaudio}, "pulseaudio", nil
	case "coreaudio":
		return []malgo.Backend{malgo.BackendCoreaudio}, "coreaudio", nil
	case "null":
		return []malgo.Backend{malgo.BackendNull}, "null", nil
	default:
		return nil, "", errors.Newf("unknown audio backend %q", backend).
			Component(componentMalgo).
			Category(errors.CategoryConfiguration).
			Context("backend", backend).
			Build()
	}
}

// Name implements platform.Provider.
func (p *Provider) Name() string { return p.name }

// OpenSession initializes a miniaudio context.
func (p *Provider) OpenSession() (platform.Session, error) {
	ctx, err := malgo.InitContext(p.backends, malgo.ContextConfig{}, func(message string) {
		p.log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, errors.New(errors.Join(platform.ErrServiceUnavailable, err)).
			Component(componentMalgo).
			Category(errors.CategoryAudio).
			Context("operation", "init_context").
			Context("backend", p.name).
			Build()
	}

	return &session{
		provider: p,
		ctx:      ctx,
		ids:      make(map[string]malgo.DeviceID),
	}, nil
}

type session struct {
	provider *Provider
	ctx      *malgo.AllocatedContext

	mu     sync.Mutex
	ids    map[string]malgo.DeviceID // endpoint ID string to miniaudio ID
	closed bool
}

func deviceType(dir platform.Direction) malgo.DeviceType {
	if dir == platform.Render {
		return malgo.Playback
	}
	return malgo.Capture
}

// Enumerate implements platform.Session. miniaudio exposes no endpoint
// topology, so microphone arrays are recognized by name.
func (s *session) Enumerate(dir platform.Direction) ([]platform.EndpointDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, platform.ErrServiceUnavailable
	}

	infos, err := s.ctx.Devices(deviceType(dir))
	if err != nil {
		return nil, errors.New(errors.Join(platform.ErrServiceUnavailable, err)).
			Component(componentMalgo).
			Category(errors.CategoryAudio).
			Context("operation", "enumerate_devices").
			Context("direction", dir.String()).
			Build()
	}

	out := make([]platform.EndpointDescriptor, 0, len(infos))
	for i := range infos {
		info := &infos[i]
		id := info.ID.String()
		s.ids[id] = info.ID
		name := info.Name()
		out = append(out, platform.EndpointDescriptor{
			Name:       platform.Truncate(name),
			ID:         platform.Truncate(id),
			Direction:  dir,
			IsMicArray: dir == platform.Capture && isMicArrayName(name),
			IsDefault:  info.IsDefault == 1,
		})
	}
	return out, nil
}

func isMicArrayName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "array") || strings.Contains(lower, "mic array")
}

// OpenClient implements platform.Session.
func (s *session) OpenClient(dir platform.Direction, endpointID string, mode platform.ShareMode) (platform.Client, error) {
	s.mu.Lock()
	id, ok := s.ids[endpointID]
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, platform.ErrServiceUnavailable
	}
	if !ok {
		// IDs are learned during enumeration
		if _, err := s.Enumerate(dir); err != nil {
			return nil, err
		}
		s.mu.Lock()
		id, ok = s.ids[endpointID]
		s.mu.Unlock()
		if !ok {
			return nil, platform.ErrEndpointNotFound
		}
	}

	shareMode := malgo.Shared
	if mode == platform.Exclusive {
		shareMode = malgo.Exclusive
	}

	info, err := s.ctx.DeviceInfo(deviceType(dir), id, shareMode)
	if err != nil {
		return nil, mapDeviceError(err, "device_info", dir)
	}

	return &client{
		session: s,
		dir:     dir,
		id:      id,
		mode:    shareMode,
		formats: info.Formats,
		volume:  newSoftwareVolume(),
	}, nil
}

// AttachThread implements platform.Session. miniaudio performs COM
// initialization on the threads it owns, so worker threads need no setup.
func (s *session) AttachThread() (func(), error) {
	return func() {}, nil
}

// Close implements platform.Session.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.ctx.Uninit()
	s.ctx.Free()
	if err != nil {
		return errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudio).
			Context("operation", "uninit_context").
			Build()
	}
	return nil
}

// mapDeviceError translates miniaudio results into platform errors.
func mapDeviceError(err error, operation string, dir platform.Direction) error {
	var sentinel error
	switch {
	case errors.Is(err, malgo.ErrBusy), errors.Is(err, malgo.ErrAlreadyInUse), errors.Is(err, malgo.ErrShareModeNotSupported):
		sentinel = platform.ErrDeviceBusy
	case errors.Is(err, malgo.ErrNoDevice), errors.Is(err, malgo.ErrDoesNotExist):
		sentinel = platform.ErrEndpointNotFound
	case errors.Is(err, malgo.ErrFormatNotSupported):
		sentinel = platform.ErrFormatNotSupported
	default:
		return errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudio).
			Context("operation", operation).
			Context("direction", dir.String()).
			Build()
	}
	return errors.New(errors.Join(sentinel, err)).
		Component(componentMalgo).
		Category(errors.CategoryAudio).
		Context("operation", operation).
		Context("direction", dir.String()).
		Build()
}

var _ platform.Provider = (*Provider)(nil)

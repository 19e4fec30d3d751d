// Package mockplatform is a deterministic in-memory audio provider for tests.
//
// Hardware cycles are driven manually: each Stream.Tick produces one capture
// period or retires one render period and signals readiness. The provider
// counts every live handle so tests can assert that nothing leaks.
package mockplatform

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
)

// Endpoint configures one simulated endpoint.
type Endpoint struct {
	Descriptor platform.EndpointDescriptor
	Formats    []platform.Format  // formats accepted exactly, in addition to Mix
	Mix        platform.Format    // nearest format offered when a request is rejected
	Geometry   *platform.Geometry // nil when the endpoint has no array geometry
	Busy       bool               // held exclusively by another process
}

// Provider is a mock platform.Provider.
type Provider struct {
	mu             sync.Mutex
	endpoints      map[platform.Direction][]*Endpoint
	exclusive      map[string]bool
	streams        map[platform.Direction]*Stream
	enumerateErr   error
	openSessionErr error
	openStreamErr  error
	startErr       error

	handles  atomic.Int64
	attached atomic.Int64
	attaches atomic.Int64
}

// New returns an empty provider.
func New() *Provider {
	return &Provider{
		endpoints: make(map[platform.Direction][]*Endpoint),
		exclusive: make(map[string]bool),
		streams:   make(map[platform.Direction]*Stream),
	}
}

// NewDefault returns a provider with the two capture endpoints used across the
// engine tests ("Default Mic" as default, "Array Mic 2" as a mic array) and a
// default stereo speaker.
func NewDefault() *Provider {
	p := New()
	p.AddEndpoint(Endpoint{
		Descriptor: platform.EndpointDescriptor{Name: "Default Mic", ID: "mic-default", Direction: platform.Capture, IsDefault: true},
		Formats:    []platform.Format{platform.NewFormat(16000, 1), platform.NewFormat(48000, 1)},
		Mix:        platform.NewFormat(48000, 2),
	})
	p.AddEndpoint(Endpoint{
		Descriptor: platform.EndpointDescriptor{Name: "Array Mic 2", ID: "mic-array-2", Direction: platform.Capture, IsMicArray: true},
		Formats:    []platform.Format{platform.NewFormat(16000, 4)},
		Mix:        platform.NewFormat(44100, 4),
		Geometry: &platform.Geometry{Microphones: []platform.MicPosition{
			{X: -0.03}, {X: -0.01}, {X: 0.01}, {X: 0.03},
		}},
	})
	p.AddEndpoint(Endpoint{
		Descriptor: platform.EndpointDescriptor{Name: "Speakers", ID: "spk-default", Direction: platform.Render, IsDefault: true},
		Formats:    []platform.Format{platform.NewFormat(48000, 2)},
		Mix:        platform.NewFormat(48000, 2),
	})
	return p
}

// AddEndpoint appends an endpoint in platform enumeration order.
func (p *Provider) AddEndpoint(ep Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dir := ep.Descriptor.Direction
	p.endpoints[dir] = append(p.endpoints[dir], &ep)
}

// RemoveEndpoint simulates unplugging the endpoint with the given ID.
func (p *Provider) RemoveEndpoint(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for dir, eps := range p.endpoints {
		p.endpoints[dir] = slices.DeleteFunc(eps, func(ep *Endpoint) bool { return ep.Descriptor.ID == id })
	}
}

// SetBusy marks an endpoint as held exclusively by another process.
func (p *Provider) SetBusy(id string, busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ep := p.findLocked(id); ep != nil {
		ep.Busy = busy
	}
}

// SetEnumerateError makes Session.Enumerate fail with err (nil clears it).
func (p *Provider) SetEnumerateError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enumerateErr = err
}

// SetOpenSessionError makes OpenSession fail with err.
func (p *Provider) SetOpenSessionError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openSessionErr = err
}

// SetOpenStreamError makes Client.OpenStream fail with err.
func (p *Provider) SetOpenStreamError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openStreamErr = err
}

// SetStartError makes Stream.Start fail with err.
func (p *Provider) SetStartError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startErr = err
}

// OpenHandles returns the number of live sessions, clients, volume controls and streams.
func (p *Provider) OpenHandles() int {
	return int(p.handles.Load())
}

// AttachedThreads returns the number of threads currently attached to a session.
func (p *Provider) AttachedThreads() int {
	return int(p.attached.Load())
}

// TotalAttaches returns how many times AttachThread succeeded.
func (p *Provider) TotalAttaches() int {
	return int(p.attaches.Load())
}

// Stream returns the most recently opened stream for dir, or nil.
func (p *Provider) Stream(dir platform.Direction) *Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streams[dir]
}

// Name implements platform.Provider.
func (p *Provider) Name() string { return "mock" }

// OpenSession implements platform.Provider.
func (p *Provider) OpenSession() (platform.Session, error) {
	p.mu.Lock()
	err := p.openSessionErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &session{provider: p, release: p.acquire()}, nil
}

// acquire counts a new handle and returns its exactly-once release.
func (p *Provider) acquire() func() {
	p.handles.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { p.handles.Add(-1) })
	}
}

func (p *Provider) findLocked(id string) *Endpoint {
	for _, eps := range p.endpoints {
		for _, ep := range eps {
			if ep.Descriptor.ID == id {
				return ep
			}
		}
	}
	return nil
}

type session struct {
	provider *Provider
	release  func()
}

func (s *session) Enumerate(dir platform.Direction) ([]platform.EndpointDescriptor, error) {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enumerateErr != nil {
		return nil, p.enumerateErr
	}
	out := make([]platform.EndpointDescriptor, 0, len(p.endpoints[dir]))
	for _, ep := range p.endpoints[dir] {
		out = append(out, ep.Descriptor)
	}
	return out, nil
}

func (s *session) OpenClient(dir platform.Direction, endpointID string, mode platform.ShareMode) (platform.Client, error) {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	ep := p.findLocked(endpointID)
	if ep == nil || ep.Descriptor.Direction != dir {
		return nil, platform.ErrEndpointNotFound
	}
	if ep.Busy || p.exclusive[endpointID] {
		return nil, platform.ErrDeviceBusy
	}
	if mode == platform.Exclusive {
		p.exclusive[endpointID] = true
	}

	c := &client{
		provider:      p,
		endpoint:      ep,
		dir:           dir,
		mode:          mode,
		release:       p.acquire(),
		volume:        &volume{},
		releaseVolume: p.acquire(),
	}
	c.volume.set(1.0)
	return c, nil
}

func (s *session) AttachThread() (func(), error) {
	p := s.provider
	p.attached.Add(1)
	p.attaches.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { p.attached.Add(-1) })
	}, nil
}

func (s *session) MicArrayGeometry(endpointID string) (platform.Geometry, error) {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	ep := p.findLocked(endpointID)
	if ep == nil {
		return platform.Geometry{}, platform.ErrEndpointNotFound
	}
	if ep.Geometry == nil {
		return platform.Geometry{}, platform.ErrNoGeometry
	}
	return platform.Geometry{Microphones: slices.Clone(ep.Geometry.Microphones)}, nil
}

func (s *session) Close() error {
	s.release()
	return nil
}

type client struct {
	provider      *Provider
	endpoint      *Endpoint
	dir           platform.Direction
	mode          platform.ShareMode
	volume        *volume
	release       func()
	releaseVolume func()
	closeOnce     sync.Once
}

func (c *client) IsFormatSupported(f platform.Format) (bool, *platform.Format, error) {
	c.provider.mu.Lock()
	defer c.provider.mu.Unlock()

	if f == c.endpoint.Mix || slices.Contains(c.endpoint.Formats, f) {
		return true, nil, nil
	}
	if c.mode == platform.Exclusive {
		// exclusive mode never offers a substitute
		return false, nil, nil
	}
	closest := c.endpoint.Mix
	return false, &closest, nil
}

func (c *client) MixFormat() (platform.Format, error) {
	c.provider.mu.Lock()
	defer c.provider.mu.Unlock()
	return c.endpoint.Mix, nil
}

func (c *client) Volume() platform.Volume {
	return c.volume
}

func (c *client) OpenStream(f platform.Format, periodFrames int) (platform.Stream, error) {
	p := c.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openStreamErr != nil {
		return nil, p.openStreamErr
	}

	s := &Stream{
		provider:     p,
		dir:          c.dir,
		format:       f,
		periodFrames: periodFrames,
		blockBytes:   periodFrames * f.FrameSize(),
		ready:        make(chan struct{}, 1),
		release:      p.acquire(),
	}
	p.streams[c.dir] = s
	return s, nil
}

func (c *client) Close() error {
	c.closeOnce.Do(func() {
		c.provider.mu.Lock()
		if c.mode == platform.Exclusive {
			delete(c.provider.exclusive, c.endpoint.Descriptor.ID)
		}
		c.provider.mu.Unlock()
		c.releaseVolume()
		c.release()
	})
	return nil
}

var errVolumeRange = errors.New("volume level out of range")

type volume struct {
	bits atomic.Uint32
}

func (v *volume) set(level float32) {
	v.bits.Store(math.Float32bits(level))
}

func (v *volume) Level() (float32, error) {
	return math.Float32frombits(v.bits.Load()), nil
}

func (v *volume) SetLevel(level float32) error {
	if level < 0 || level > 1 {
		return errVolumeRange
	}
	v.set(level)
	return nil
}

// Stream is a simulated hardware stream driven by Tick.
type Stream struct {
	provider     *Provider
	dir          platform.Direction
	format       platform.Format
	periodFrames int
	blockBytes   int
	ready        chan struct{}
	release      func()

	mu      sync.Mutex
	pending [][]byte // capture periods not yet read
	written [][]byte // render periods written by the engine
	seq     uint16
	started bool
	closed  bool
}

// Format returns the stream format.
func (s *Stream) Format() platform.Format { return s.format }

// PeriodFrames returns the period size in frames.
func (s *Stream) PeriodFrames() int { return s.periodFrames }

// Tick simulates one hardware period. For capture it queues a period whose
// samples all carry the period's sequence number; for render it retires one
// period so the engine may write the next. Either way readiness is signalled.
func (s *Stream) Tick() {
	if s.dir == platform.Capture {
		s.mu.Lock()
		s.seq++
		block := make([]byte, s.blockBytes)
		for i := 0; i+1 < len(block); i += 2 {
			binary.LittleEndian.PutUint16(block[i:], s.seq)
		}
		s.pending = append(s.pending, block)
		s.mu.Unlock()
	}
	s.signal()
}

// Feed queues an explicit capture block and signals readiness.
func (s *Stream) Feed(block []byte) {
	s.mu.Lock()
	s.pending = append(s.pending, slices.Clone(block))
	s.mu.Unlock()
	s.signal()
}

// Signal raises readiness without producing data, simulating a spurious wake.
func (s *Stream) Signal() {
	s.signal()
}

// Written returns copies of all render periods written so far.
func (s *Stream) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.written))
	for i, b := range s.written {
		out[i] = slices.Clone(b)
	}
	return out
}

// Started reports whether the stream is running.
func (s *Stream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Closed reports whether the stream has been closed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Ready implements platform.Stream.
func (s *Stream) Ready() <-chan struct{} { return s.ready }

// Read implements platform.Stream.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, platform.ErrStreamClosed
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	block := s.pending[0]
	s.pending = s.pending[1:]
	more := len(s.pending) > 0
	s.mu.Unlock()

	n := copy(p, block)
	if more {
		s.signal()
	}
	return n, nil
}

// Write implements platform.Stream.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, platform.ErrStreamClosed
	}
	s.written = append(s.written, slices.Clone(p))
	return len(p), nil
}

// Start implements platform.Stream. A render stream starts with an empty
// buffer, so it is immediately ready for one period.
func (s *Stream) Start() error {
	s.provider.mu.Lock()
	err := s.provider.startErr
	s.provider.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	if s.dir == platform.Render {
		s.signal()
	}
	return nil
}

// Stop implements platform.Stream.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

// Close implements platform.Stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.started = false
	s.mu.Unlock()
	s.release()
	return nil
}

var (
	_ platform.Provider         = (*Provider)(nil)
	_ platform.GeometryProvider = (*session)(nil)
	_ platform.Stream           = (*Stream)(nil)
)

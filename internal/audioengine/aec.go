package audioengine

import (
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
)

// EchoCanceller is an external acoustic echo cancellation object. Process
// receives one captured period and the render period most recently played,
// and writes the cleaned period into out (len(out) == len(near)). reference
// is silence when nothing has been rendered yet.
type EchoCanceller interface {
	Process(near, reference, out []byte) error
	Close() error
}

// EchoCancellerConfig describes the streams an EchoCanceller will see.
type EchoCancellerConfig struct {
	Capture      platform.Format
	Render       platform.Format
	PeriodFrames int
	Geometry     *platform.Geometry // nil unless the capture endpoint is a mic array
}

// Degradation reasons reported in logs and metrics.
const (
	reasonEchoCancellation = "echo_cancellation"
	reasonThreadPriority   = "thread_priority"
)

// EchoCancellerFactory creates an EchoCanceller for one capture session.
type EchoCancellerFactory func(cfg EchoCancellerConfig) (EchoCanceller, error)

// echoAdapter sits between the capture loop and an EchoCanceller. When the
// canceller is missing or fails, the adapter degrades to passing captured
// frames through untouched for the rest of the session.
type echoAdapter struct {
	ec       EchoCanceller
	cfg      EchoCancellerConfig
	out      []byte
	silence  []byte
	degraded atomic.Bool
}

func newEchoAdapter(factory EchoCancellerFactory, cfg EchoCancellerConfig) (*echoAdapter, error) {
	if factory == nil {
		return nil, aecDegraded(nil, "no echo canceller configured")
	}
	ec, err := factory(cfg)
	if err != nil {
		return nil, aecDegraded(err, "echo canceller init failed")
	}
	block := cfg.PeriodFrames * cfg.Capture.FrameSize()
	return &echoAdapter{
		ec:      ec,
		cfg:     cfg,
		out:     make([]byte, block),
		silence: make([]byte, cfg.PeriodFrames*cfg.Render.FrameSize()),
	}, nil
}

// process returns the frames to deliver for near. A nil adapter passes
// frames through.
func (a *echoAdapter) process(near, reference []byte) ([]byte, error) {
	if a == nil || a.degraded.Load() {
		return near, nil
	}
	// a reference in another format than the canceller was built for
	// cannot be used; it is replaced with silence until the next start
	if len(reference) != len(a.silence) {
		reference = a.silence
	}
	if len(a.out) < len(near) {
		a.out = make([]byte, len(near))
	}
	out := a.out[:len(near)]
	if err := a.ec.Process(near, reference, out); err != nil {
		a.degraded.Store(true)
		return near, aecDegraded(err, "echo canceller failed, passing capture through")
	}
	return out, nil
}

func (a *echoAdapter) available() bool {
	return a != nil && !a.degraded.Load()
}

func (a *echoAdapter) close() error {
	if a == nil {
		return nil
	}
	return a.ec.Close()
}

func aecDegraded(cause error, msg string) error {
	err := errors.NewStd(msg)
	if cause != nil {
		err = errors.Join(err, cause)
	}
	return errors.New(err).
		Component(componentEngine).
		Category(errors.CategoryDegraded).
		Context("operation", reasonEchoCancellation).
		Build()
}

// geometryCache memoizes mic array geometry per endpoint ID. Topology walks
// are slow on some platforms, and rebinding the same array is common.
type geometryCache struct {
	c *cache.Cache
}

func newGeometryCache(ttl time.Duration) *geometryCache {
	// no janitor goroutine; expired entries are skipped by Get
	return &geometryCache{c: cache.New(ttl, 0)}
}

// lookup returns the geometry for ep, querying sess on a miss. It returns nil
// when ep is not a mic array or the platform cannot describe it.
func (g *geometryCache) lookup(sess platform.Session, ep platform.EndpointDescriptor) (*platform.Geometry, error) {
	if !ep.IsMicArray {
		return nil, nil
	}
	if v, ok := g.c.Get(ep.ID); ok {
		geo := v.(platform.Geometry)
		return &geo, nil
	}
	gp, ok := sess.(platform.GeometryProvider)
	if !ok {
		return nil, platform.ErrNoGeometry
	}
	geo, err := gp.MicArrayGeometry(ep.ID)
	if err != nil {
		return nil, err
	}
	g.c.Set(ep.ID, geo, cache.DefaultExpiration)
	return &geo, nil
}

func (g *geometryCache) flush() {
	g.c.Flush()
}

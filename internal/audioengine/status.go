package audioengine

import (
	"github.com/tphakala/audioengine/internal/audioengine/platform"
)

// Stats are cumulative per-direction counters since the engine was created.
type Stats struct {
	Cycles              uint64 `json:"cycles"`
	Frames              uint64 `json:"frames"`
	Underruns           uint64 `json:"underruns"`
	Overruns            uint64 `json:"overruns"`
	WaitTimeouts        uint64 `json:"waitTimeouts"`
	ConsecutiveTimeouts uint64 `json:"consecutiveTimeouts"`
	DroppedFrames       uint64 `json:"droppedFrames"` // reported by the platform stream, when supported
}

// DirectionStatus describes one direction.
type DirectionStatus struct {
	State    State                        `json:"state"`
	Endpoint *platform.EndpointDescriptor `json:"endpoint,omitempty"`
	Format   *platform.Format             `json:"format,omitempty"`
	Priority string                       `json:"priority"`
	Stats    Stats                        `json:"stats"`
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	EngineID     string          `json:"engineId"`
	Backend      string          `json:"backend"`
	Initialized  bool            `json:"initialized"`
	Capture      DirectionStatus `json:"capture"`
	Render       DirectionStatus `json:"render"`
	AECEnabled   bool            `json:"aecEnabled"`
	AECAvailable bool            `json:"aecAvailable"`

	// LastError is the most recent failure that stopped a worker on its own.
	// Reading Status clears it.
	LastError error `json:"-"`
}

// Status returns the engine snapshot and clears the recorded worker error.
// A direction whose worker stopped itself is finalized here, so its failure
// is reported by this call.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Status{
		EngineID:    e.id,
		Backend:     e.provider.Name(),
		Initialized: e.session != nil,
		AECEnabled:  e.cfg.aecEnabled,
	}

	var aecAvailable bool
	st.Capture, aecAvailable = e.directionStatus(&e.capture)
	st.Render, _ = e.directionStatus(&e.render)
	st.AECAvailable = aecAvailable

	e.errMu.Lock()
	st.LastError = e.lastErr
	e.lastErr = nil
	e.errMu.Unlock()
	return st
}

func (e *Engine) directionStatus(d *direction) (DirectionStatus, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e.reapLocked(d)

	ds := DirectionStatus{
		State:    d.state,
		Priority: PriorityNone,
		Stats: Stats{
			Cycles:              d.stats.cycles.Load(),
			Frames:              d.stats.frames.Load(),
			Underruns:           d.stats.underruns.Load(),
			Overruns:            d.stats.overruns.Load(),
			WaitTimeouts:        d.stats.waitTimeouts.Load(),
			ConsecutiveTimeouts: d.stats.consecutiveTimeouts.Load(),
		},
	}
	if d.binding != nil {
		ep := d.binding.endpoint
		ds.Endpoint = &ep
	}
	if d.state.hasFormat() {
		f := d.format
		ds.Format = &f
	}
	if d.state == StateRunning {
		ds.Priority = d.priorityClass
	}
	if d.stream != nil {
		if dc, ok := d.stream.Get().(platform.DropCounter); ok {
			ds.Stats.DroppedFrames = dc.DroppedFrames()
		}
	}
	return ds, d.aec.available()
}

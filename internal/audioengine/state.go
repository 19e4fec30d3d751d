package audioengine

// State is the lifecycle stage of one direction (capture or render).
//
//	Unbound -> Bound -> FormatSet -> Prepared -> Running -> Stopped
//
// Stopped may be started again. Terminate returns every direction to
// Unbound from any state.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateFormatSet
	StatePrepared
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateFormatSet:
		return "format_set"
	case StatePrepared:
		return "prepared"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// hasBinding reports whether an endpoint is bound in state s.
func (s State) hasBinding() bool {
	return s >= StateBound
}

// hasFormat reports whether a negotiated format exists in state s.
func (s State) hasFormat() bool {
	return s >= StateFormatSet
}

// hasStream reports whether a prepared stream exists in state s.
func (s State) hasStream() bool {
	return s >= StatePrepared
}

// canStart reports whether Start is legal from s.
func (s State) canStart() bool {
	return s == StatePrepared || s == StateStopped
}

// MarshalText renders the state name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

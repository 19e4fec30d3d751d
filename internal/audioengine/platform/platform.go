// Package platform defines the capability set the audio engine requires from a
// native audio stack. The engine core depends only on these interfaces; each
// target platform supplies one concrete Provider.
package platform

import (
	"errors"
	"fmt"
)

// MaxNameLength bounds endpoint display names and identifiers exposed to callers.
const MaxNameLength = 512

// BitsPerSample is the fixed sample depth used by the engine (signed 16-bit PCM).
const BitsPerSample = 16

// Direction selects the capture or render side of the engine.
type Direction int

const (
	Capture Direction = iota
	Render
)

// String returns the lowercase direction name used in logs and metric labels.
func (d Direction) String() string {
	switch d {
	case Capture:
		return "capture"
	case Render:
		return "render"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// MarshalText renders the direction name in JSON and YAML output.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ShareMode selects shared (mixed) or exclusive device access.
type ShareMode int

const (
	Shared ShareMode = iota
	Exclusive
)

func (m ShareMode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// EndpointDescriptor is an immutable snapshot of one endpoint produced by enumeration.
type EndpointDescriptor struct {
	Name       string    // display name, at most MaxNameLength bytes
	ID         string    // stable unique identifier, at most MaxNameLength bytes
	Direction  Direction // capture or render
	IsMicArray bool      // endpoint topology reports a microphone array
	IsDefault  bool      // default endpoint for Direction
}

// Format is a PCM stream format.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// NewFormat returns a 16-bit PCM format.
func NewFormat(sampleRate, channels int) Format {
	return Format{SampleRate: sampleRate, Channels: channels, BitsPerSample: BitsPerSample}
}

// FrameSize returns the size in bytes of one frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitsPerSample)
}

// Provider is the entry point of a native audio stack.
type Provider interface {
	// Name identifies the backend, e.g. "wasapi" or "mock".
	Name() string

	// OpenSession performs process-wide audio subsystem initialization.
	// The session must be closed by its owner.
	OpenSession() (Session, error)
}

// Session is an initialized audio subsystem.
type Session interface {
	// Enumerate returns the active endpoints for dir in platform order.
	// Implementations report ErrServiceUnavailable when the audio service is down.
	Enumerate(dir Direction) ([]EndpointDescriptor, error)

	// OpenClient acquires an audio client for the endpoint with the given ID.
	OpenClient(dir Direction, endpointID string, mode ShareMode) (Client, error)

	// AttachThread performs per-thread subsystem initialization for the calling
	// OS thread. The returned func undoes it and must run on the same thread.
	AttachThread() (detach func(), err error)

	// Close releases the session. Clients must be closed first.
	Close() error
}

// Client is an acquired endpoint used to negotiate a format and open a stream.
type Client interface {
	// IsFormatSupported reports whether f is accepted as-is. When it is not,
	// closest may carry the nearest mix format the service offers.
	IsFormatSupported(f Format) (ok bool, closest *Format, err error)

	// MixFormat returns the endpoint's native shared-mode format.
	MixFormat() (Format, error)

	// Volume returns the endpoint volume control handle.
	Volume() Volume

	// OpenStream allocates the hardware buffer for f with the given period.
	OpenStream(f Format, periodFrames int) (Stream, error)

	// Close releases the client handle.
	Close() error
}

// Volume is an endpoint volume control. Reads are safe concurrently with streaming.
type Volume interface {
	Level() (float32, error)
	SetLevel(level float32) error
}

// Stream is a prepared hardware stream.
//
// Ready delivers a signal whenever at least one full period can be read
// (capture) or written (render). Read and Write move at most one period and
// re-arm Ready when another full period is already available.
type Stream interface {
	Ready() <-chan struct{}
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Start() error
	Stop() error
	Close() error
}

// DropCounter is implemented by streams that can report frames lost on the
// device side because the engine did not keep up.
type DropCounter interface {
	DroppedFrames() uint64
}

// MicPosition is one microphone's position relative to the array center, in meters.
type MicPosition struct {
	X, Y, Z float64
}

// Geometry describes a microphone array.
type Geometry struct {
	Microphones []MicPosition
}

// GeometryProvider is implemented by sessions able to resolve microphone array geometry.
type GeometryProvider interface {
	MicArrayGeometry(endpointID string) (Geometry, error)
}

// Errors reported by providers. The engine maps them onto its own taxonomy.
var (
	ErrServiceUnavailable = errors.New("audio service unavailable")
	ErrEndpointNotFound   = errors.New("endpoint not found")
	ErrDeviceBusy         = errors.New("device in use in exclusive mode")
	ErrFormatNotSupported = errors.New("format not supported")
	ErrStreamClosed       = errors.New("stream closed")
	ErrNoGeometry         = errors.New("microphone array geometry unavailable")
)

// Truncate clips s to MaxNameLength bytes without splitting a UTF-8 sequence.
func Truncate(s string) string {
	if len(s) <= MaxNameLength {
		return s
	}
	cut := MaxNameLength
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

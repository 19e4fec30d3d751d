// Package testutil provides shared test helpers for driving the audio
// engine against the mock platform.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/audioengine/platform/mockplatform"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for most async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 2 * time.Second

	// TickInterval paces simulated hardware periods.
	TickInterval = time.Millisecond
)

// WaitForChannel waits for a signal on the channel or fails after timeout.
func WaitForChannel[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
	var zero T
	return zero
}

// WaitForStream waits until the provider has a started stream for dir and
// returns it.
func WaitForStream(t *testing.T, p *mockplatform.Provider, dir platform.Direction) *mockplatform.Stream {
	t.Helper()
	var s *mockplatform.Stream
	require.Eventually(t, func() bool {
		s = p.Stream(dir)
		return s != nil && s.Started()
	}, ShortTestTimeout, TickInterval, "no started %s stream", dir)
	return s
}

// TickUntil simulates hardware periods on s until ch yields a value, and
// returns it. The test fails if that takes longer than timeout.
func TickUntil[T any](t *testing.T, s *mockplatform.Stream, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	deadline := time.After(timeout)
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case v := <-ch:
			return v
		case <-deadline:
			require.Fail(t, "timed out while ticking stream")
			var zero T
			return zero
		case <-ticker.C:
			s.Tick()
		}
	}
}

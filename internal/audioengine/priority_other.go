//go:build !linux

package audioengine

import "github.com/tphakala/audioengine/internal/errors"

type threadPriority struct{}

// NewThreadPriorityManager returns the platform priority manager. Thread
// scheduling classes are only managed on Linux; elsewhere Elevate reports
// degraded and leaves the thread untouched.
func NewThreadPriorityManager(int) PriorityManager {
	return threadPriority{}
}

func (threadPriority) Elevate(profile string) (*PriorityToken, error) {
	return newPriorityToken(PriorityNone, nil),
		priorityDegraded(errors.Newf("profile %q", profile).Build(), "thread priority not supported on this platform")
}

package audioengine

import (
	"sync"

	"github.com/tphakala/audioengine/internal/errors"
)

// Priority classes reported by a PriorityToken.
const (
	PriorityRealtime   = "realtime"
	PriorityBestEffort = "best-effort"
	PriorityNone       = "none"
)

// DefaultPriorityProfile names the scheduling profile requested for worker
// threads. Platforms without named profiles ignore it.
const DefaultPriorityProfile = "Pro Audio"

// PriorityManager elevates the scheduling class of the calling OS thread.
// Elevate must run on a goroutine locked to its thread, and the returned
// token must be reverted on that same thread.
//
// A non-nil error is always ErrDegraded: the worker keeps running at whatever
// class the token reports.
type PriorityManager interface {
	Elevate(profile string) (*PriorityToken, error)
}

// PriorityToken restores the thread's previous scheduling class.
type PriorityToken struct {
	class  string
	revert func() error
	once   sync.Once
	err    error
}

func newPriorityToken(class string, revert func() error) *PriorityToken {
	return &PriorityToken{class: class, revert: revert}
}

// Class returns the scheduling class obtained. A nil token reports
// PriorityNone.
func (t *PriorityToken) Class() string {
	if t == nil {
		return PriorityNone
	}
	return t.class
}

// Revert restores the saved scheduling class. It is safe to call on a nil
// token and more than once.
func (t *PriorityToken) Revert() error {
	if t == nil {
		return nil
	}
	t.once.Do(func() {
		if t.revert != nil {
			t.err = t.revert()
		}
	})
	return t.err
}

func priorityDegraded(cause error, msg string) error {
	return errors.New(errors.Join(errors.NewStd(msg), cause)).
		Component(componentEngine).
		Category(errors.CategoryDegraded).
		Context("operation", "elevate_priority").
		Build()
}

// noPriority never changes scheduling. Used when thread priority is
// disabled in settings.
type noPriority struct{}

func (noPriority) Elevate(string) (*PriorityToken, error) {
	return newPriorityToken(PriorityNone, nil), nil
}

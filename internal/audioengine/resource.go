package audioengine

import "sync"

// owned wraps a platform handle so it is released exactly once, whichever
// of the success path, an error path or Terminate gets there first.
type owned[T any] struct {
	v       T
	release func(T) error
	once    sync.Once
	err     error
}

func own[T any](v T, release func(T) error) *owned[T] {
	return &owned[T]{v: v, release: release}
}

// Get returns the wrapped handle.
func (o *owned[T]) Get() T {
	return o.v
}

// Release releases the handle. Later calls return the first result. A nil
// receiver is a no-op.
func (o *owned[T]) Release() error {
	if o == nil {
		return nil
	}
	o.once.Do(func() {
		o.err = o.release(o.v)
	})
	return o.err
}

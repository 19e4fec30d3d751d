package encoder

import (
	"io"

	"github.com/tphakala/audioengine/internal/errors"
)

// pcmEncoder writes headerless PCM exactly as captured.
type pcmEncoder struct {
	w      io.Writer
	closed bool
}

func newPCMEncoder(w io.WriteSeeker, _ Config) (Encoder, error) {
	return &pcmEncoder{w: w}, nil
}

func (e *pcmEncoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, errClosed(PCM)
	}
	return e.w.Write(p)
}

func (e *pcmEncoder) Close() error {
	e.closed = true
	return nil
}

func (e *pcmEncoder) Type() FileType { return PCM }

func errClosed(t FileType) error {
	return errors.Newf("%s encoder is closed", t).
		Component("encoder").
		Category(errors.CategoryState).
		Build()
}

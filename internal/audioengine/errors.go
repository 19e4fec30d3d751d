package audioengine

import (
	"fmt"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
)

const componentEngine = "audioengine"

// Sentinel errors for the engine taxonomy. Every error returned by the engine
// carries one of these categories, so errors.Is(err, ErrInvalidState) and
// friends work on any returned error.
var (
	ErrInvalidState          = sentinel("invalid state", errors.CategoryState)
	ErrNotFound              = sentinel("endpoint not found", errors.CategoryNotFound)
	ErrAlreadyInUseExclusive = sentinel("endpoint in use exclusively", errors.CategoryConflict)
	ErrPlatform              = sentinel("platform audio error", errors.CategoryAudio)
	ErrFormatUnsupported     = sentinel("format unsupported", errors.CategoryAudioFormat)
	ErrDegraded              = sentinel("degraded operation", errors.CategoryDegraded)
)

func sentinel(msg string, category errors.ErrorCategory) *errors.EnhancedError {
	return errors.New(errors.NewStd(msg)).
		Component(componentEngine).
		Category(category).
		Build()
}

// ErrorKind classifies engine errors for callers that switch on them.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalidState
	KindNotFound
	KindAlreadyInUseExclusive
	KindPlatform
	KindFormatUnsupported
	KindDegraded
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidState:
		return "invalid_state"
	case KindNotFound:
		return "not_found"
	case KindAlreadyInUseExclusive:
		return "already_in_use_exclusive"
	case KindPlatform:
		return "platform_error"
	case KindFormatUnsupported:
		return "format_unsupported"
	case KindDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Kind returns the taxonomy kind of the outermost categorized error in err.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ee *errors.EnhancedError
	if !errors.As(err, &ee) {
		return KindUnknown
	}
	switch ee.Category {
	case errors.CategoryState:
		return KindInvalidState
	case errors.CategoryNotFound:
		return KindNotFound
	case errors.CategoryConflict:
		return KindAlreadyInUseExclusive
	case errors.CategoryAudio:
		return KindPlatform
	case errors.CategoryAudioFormat:
		return KindFormatUnsupported
	case errors.CategoryDegraded:
		return KindDegraded
	default:
		return KindUnknown
	}
}

// engineError builds a categorized error for op on dir. Only platform errors
// keep their cause in the chain; other kinds flatten it into the message so
// the outer category is the only one errors.Is can see.
func engineError(category errors.ErrorCategory, op string, dir *platform.Direction, cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var err error
	switch {
	case cause == nil:
		err = errors.NewStd(msg)
	case category == errors.CategoryAudio:
		err = fmt.Errorf("%s: %w", msg, cause)
	default:
		err = fmt.Errorf("%s: %v", msg, cause)
	}

	b := errors.New(err).
		Component(componentEngine).
		Category(category).
		Context("operation", op)
	if dir != nil {
		b = b.Context("direction", dir.String())
	}
	return b.Build()
}

func invalidState(op string, dir platform.Direction, state State) error {
	return engineError(errors.CategoryState, op, &dir, nil, "%s not allowed in state %s", op, state)
}

// platformError maps provider errors onto the engine taxonomy.
func platformError(op string, dir platform.Direction, cause error) error {
	switch {
	case errors.Is(cause, platform.ErrDeviceBusy):
		return engineError(errors.CategoryConflict, op, &dir, cause, "%s failed", op)
	case errors.Is(cause, platform.ErrEndpointNotFound):
		return engineError(errors.CategoryNotFound, op, &dir, cause, "%s failed", op)
	case errors.Is(cause, platform.ErrFormatNotSupported):
		return engineError(errors.CategoryAudioFormat, op, &dir, cause, "%s failed", op)
	default:
		return engineError(errors.CategoryAudio, op, &dir, cause, "%s failed", op)
	}
}

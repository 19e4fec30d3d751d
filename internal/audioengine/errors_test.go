package audioengine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
)

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"plain", fmt.Errorf("boom"), KindUnknown},
		{"invalid state", invalidState("start", platform.Capture, StateBound), KindInvalidState},
		{"busy", platformError("bind", platform.Capture, platform.ErrDeviceBusy), KindAlreadyInUseExclusive},
		{"gone", platformError("bind", platform.Render, platform.ErrEndpointNotFound), KindNotFound},
		{"format", platformError("prepare", platform.Render, platform.ErrFormatNotSupported), KindFormatUnsupported},
		{"platform", platformError("enumerate", platform.Capture, platform.ErrServiceUnavailable), KindPlatform},
		{"degraded", aecDegraded(nil, "no canceller"), KindDegraded},
		{"wrapped", fmt.Errorf("outer: %w", ErrNotFound), KindNotFound},
		{"validation", errors.ValidationError("bad"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestErrorSentinels(t *testing.T) {
	t.Parallel()

	err := invalidState("set_format", platform.Render, StateRunning)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrPlatform)
	assert.Contains(t, err.Error(), "running")

	busy := platformError("bind", platform.Capture, platform.ErrDeviceBusy)
	assert.ErrorIs(t, busy, ErrAlreadyInUseExclusive)
	assert.NotErrorIs(t, busy, ErrPlatform, "only platform errors keep their cause")

	svc := platformError("enumerate", platform.Capture, platform.ErrServiceUnavailable)
	assert.ErrorIs(t, svc, ErrPlatform)
	assert.ErrorIs(t, svc, platform.ErrServiceUnavailable)

	var ee *errors.EnhancedError
	if assert.ErrorAs(t, svc, &ee) {
		assert.Equal(t, "capture", ee.GetContext()["direction"])
		assert.Equal(t, "enumerate", ee.GetContext()["operation"])
	}
}

func TestErrorKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "invalid_state", KindInvalidState.String())
	assert.Equal(t, "platform_error", KindPlatform.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}

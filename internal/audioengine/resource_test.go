package audioengine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/audioengine/internal/errors"
)

func TestOwnedReleasesOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	failure := errors.NewStd("close failed")
	o := own("handle", func(h string) error {
		calls++
		assert.Equal(t, "handle", h)
		return failure
	})

	assert.Equal(t, "handle", o.Get())
	assert.ErrorIs(t, o.Release(), failure)
	assert.ErrorIs(t, o.Release(), failure, "later calls repeat the first result")
	assert.Equal(t, 1, calls)

	var none *owned[string]
	assert.NoError(t, none.Release())
}

func TestStateHelpers(t *testing.T) {
	t.Parallel()

	assert.False(t, StateUnbound.hasBinding())
	assert.True(t, StateBound.hasBinding())
	assert.False(t, StateBound.hasFormat())
	assert.True(t, StateStopped.hasStream())
	assert.True(t, StatePrepared.canStart())
	assert.True(t, StateStopped.canStart())
	assert.False(t, StateRunning.canStart())
	assert.False(t, StateFormatSet.canStart())

	text, err := StateFormatSet.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "format_set", string(text))
}

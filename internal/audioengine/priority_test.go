package audioengine

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityTokenRevert(t *testing.T) {
	t.Parallel()

	var nilToken *PriorityToken
	assert.NoError(t, nilToken.Revert())
	assert.Equal(t, PriorityNone, nilToken.Class())

	calls := 0
	tok := newPriorityToken(PriorityRealtime, func() error {
		calls++
		return nil
	})
	require.NoError(t, tok.Revert())
	require.NoError(t, tok.Revert())
	assert.Equal(t, 1, calls)
	assert.Equal(t, PriorityRealtime, tok.Class())
}

func TestThreadPriorityManager(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		tok, err := NewThreadPriorityManager(DefaultRTPriority).Elevate(DefaultPriorityProfile)
		if err != nil {
			// unprivileged test runs cannot raise their scheduling class
			assert.ErrorIs(t, err, ErrDegraded)
			assert.NotEqual(t, PriorityRealtime, tok.Class())
		} else {
			assert.Equal(t, PriorityRealtime, tok.Class())
		}
		first := tok.Revert()
		assert.Equal(t, first, tok.Revert())
	}()
	<-done
}

func TestNoPriority(t *testing.T) {
	t.Parallel()

	tok, err := noPriority{}.Elevate(DefaultPriorityProfile)
	require.NoError(t, err)
	assert.Equal(t, PriorityNone, tok.Class())
	assert.NoError(t, tok.Revert())
}

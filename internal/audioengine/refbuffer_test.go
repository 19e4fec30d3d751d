package audioengine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceBufferLatest(t *testing.T) {
	t.Parallel()

	r := NewReferenceBuffer(4)
	_, _, ok := r.Latest()
	assert.False(t, ok, "nothing published yet")

	r.Publish([]byte{1, 1, 1, 1}, 1)
	data, seq, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 1, 1, 1}, data)
	assert.Equal(t, uint64(1), seq)

	// several publishes between reads: only the newest is visible
	r.Publish([]byte{2, 2, 2, 2}, 2)
	r.Publish([]byte{3, 3, 3, 3}, 3)
	data, seq, _ = r.Latest()
	assert.Equal(t, []byte{3, 3, 3, 3}, data)
	assert.Equal(t, uint64(3), seq)

	// no new publish: the same frame again
	data, seq, _ = r.Latest()
	assert.Equal(t, []byte{3, 3, 3, 3}, data)
	assert.Equal(t, uint64(3), seq)
}

func TestReferenceBufferGrows(t *testing.T) {
	t.Parallel()

	r := NewReferenceBuffer(2)
	frame := []byte{9, 8, 7, 6, 5, 4}
	r.Publish(frame, 1)
	data, _, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, frame, data)
}

func TestReferenceBufferConcurrentNoTearing(t *testing.T) {
	t.Parallel()

	const (
		frames    = 5000
		frameSize = 256
	)
	r := NewReferenceBuffer(frameSize)

	var wg sync.WaitGroup
	wg.Go(func() {
		buf := make([]byte, frameSize)
		for i := 1; i <= frames; i++ {
			for j := range buf {
				buf[j] = byte(i)
			}
			r.Publish(buf, uint64(i))
		}
	})

	var lastSeq uint64
	for lastSeq < frames {
		data, seq, ok := r.Latest()
		if !ok {
			continue
		}
		require.GreaterOrEqual(t, seq, lastSeq, "reader went backwards")
		lastSeq = seq
		want := byte(seq)
		for _, b := range data {
			if b != want {
				require.Failf(t, "torn frame", "seq %d has byte %d", seq, b)
			}
		}
	}
	wg.Wait()
}

package audioengine

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/audioengine/internal/audioengine/platform/mockplatform"
	"github.com/tphakala/audioengine/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	testPeriod  = 480
	waitForData = 2 * time.Second
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// newTestEngine returns an initialized engine over p with a long wait
// timeout so slow test machines never trip the failure threshold.
func newTestEngine(t *testing.T, p *mockplatform.Provider, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(quietLogger()),
		WithPriorityManager(noPriority{}),
		WithPeriodFrames(testPeriod),
		WithWaitTimeout(50, 1000),
	}
	e := New(p, append(base, opts...)...)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() { _ = e.Terminate() })
	return e
}

// prepareCapture binds the default mic at 48 kHz mono and prepares it.
func prepareCapture(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.SetRecordingDevice(-1))
	_, err := e.SetRecordingFormat(48000, 1)
	require.NoError(t, err)
	require.NoError(t, e.InitRecording())
}

// preparePlayout binds the default speakers at 48 kHz stereo and prepares
// them.
func preparePlayout(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.SetPlayoutDevice(-1))
	_, err := e.SetPlayoutFormat(48000, 2)
	require.NoError(t, err)
	require.NoError(t, e.InitPlayout())
}

// recorder collects captured blocks and serves render requests.
type recorder struct {
	captured chan FrameBlock

	mu     sync.Mutex
	render func(dst []byte, requested int) int
}

func newRecorder() *recorder {
	return &recorder{captured: make(chan FrameBlock, 256)}
}

func (r *recorder) OnCapturedFrames(b FrameBlock) {
	b.Data = append([]byte(nil), b.Data...)
	r.captured <- b
}

func (r *recorder) OnNeedRenderFrames(dst []byte, requested int) int {
	r.mu.Lock()
	fn := r.render
	r.mu.Unlock()
	if fn == nil {
		return requested
	}
	return fn(dst, requested)
}

func (r *recorder) next(t *testing.T) FrameBlock {
	t.Helper()
	select {
	case b := <-r.captured:
		return b
	case <-time.After(waitForData):
		t.Fatal("timed out waiting for captured block")
		return FrameBlock{}
	}
}

// tickRender retires one render period and waits for the engine to write
// the next, so readiness signals are never coalesced.
func tickRender(t *testing.T, s *mockplatform.Stream) {
	t.Helper()
	want := len(s.Written()) + 1
	s.Tick()
	require.Eventually(t, func() bool { return len(s.Written()) >= want },
		waitForData, time.Millisecond)
}

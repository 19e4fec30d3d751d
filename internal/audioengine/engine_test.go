package audioengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/audioengine/platform/mockplatform"
	"github.com/tphakala/audioengine/internal/errors"
)

func TestEnumerateDefaultFirst(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())

	list, err := e.Enumerate(platform.Capture)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Default Mic", list[0].Name)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, "Array Mic 2", list[1].Name)
	assert.False(t, list[1].IsDefault)
	assert.True(t, list[1].IsMicArray)

	require.NoError(t, e.SetRecordingDevice(-1))
	st := e.Status()
	require.NotNil(t, st.Capture.Endpoint)
	assert.Equal(t, "Default Mic", st.Capture.Endpoint.Name)
	assert.Equal(t, StateBound, st.Capture.State)
}

func TestEnumerateReordersDefault(t *testing.T) {
	t.Parallel()

	p := mockplatform.New()
	p.AddEndpoint(mockplatform.Endpoint{
		Descriptor: platform.EndpointDescriptor{Name: "USB Headset", ID: "usb", Direction: platform.Render},
		Mix:        platform.NewFormat(48000, 2),
	})
	p.AddEndpoint(mockplatform.Endpoint{
		Descriptor: platform.EndpointDescriptor{Name: "HDMI", ID: "hdmi", Direction: platform.Render},
		Mix:        platform.NewFormat(48000, 2),
	})
	p.AddEndpoint(mockplatform.Endpoint{
		Descriptor: platform.EndpointDescriptor{Name: "Speakers", ID: "spk", Direction: platform.Render, IsDefault: true},
		Mix:        platform.NewFormat(48000, 2),
	})
	e := newTestEngine(t, p)

	list, err := e.Enumerate(platform.Render)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, ep := range list {
		names = append(names, ep.Name)
	}
	assert.Equal(t, []string{"Speakers", "USB Headset", "HDMI"}, names)

	name, id, err := e.PlayoutDeviceName(-1)
	require.NoError(t, err)
	assert.Equal(t, "Speakers", name)
	assert.Equal(t, "spk", id)

	name, _, err = e.PlayoutDeviceName(2)
	require.NoError(t, err)
	assert.Equal(t, "HDMI", name)
}

func TestEnumerateFailure(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	e := newTestEngine(t, p)
	p.SetEnumerateError(platform.ErrServiceUnavailable)

	list, err := e.Enumerate(platform.Capture)
	require.Error(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.ErrorIs(t, err, ErrPlatform)
	assert.ErrorIs(t, err, platform.ErrServiceUnavailable)

	n, err := e.RecordingDeviceCount()
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestOperationsBeforeInitialize(t *testing.T) {
	t.Parallel()

	e := New(mockplatform.NewDefault(), WithLogger(quietLogger()))

	list, err := e.Enumerate(platform.Capture)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, list)
	require.ErrorIs(t, e.SetRecordingDevice(-1), ErrInvalidState)
	require.NoError(t, e.Terminate(), "terminate before initialize is a no-op")
	assert.False(t, e.Status().Initialized)
}

func TestDeviceCounts(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())

	n, err := e.RecordingDeviceCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = e.PlayoutDeviceCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	name, id, err := e.RecordingDeviceName(1)
	require.NoError(t, err)
	assert.Equal(t, "Array Mic 2", name)
	assert.Equal(t, "mic-array-2", id)

	_, _, err = e.RecordingDeviceName(7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBindNotFoundKeepsState(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())
	require.NoError(t, e.SetRecordingDevice(0))

	err := e.SetRecordingDevice(5)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, Kind(err))

	st := e.Status()
	assert.Equal(t, StateBound, st.Capture.State)
	require.NotNil(t, st.Capture.Endpoint)
	assert.Equal(t, "mic-default", st.Capture.Endpoint.ID)
}

func TestBindNoDefault(t *testing.T) {
	t.Parallel()

	p := mockplatform.New()
	p.AddEndpoint(mockplatform.Endpoint{
		Descriptor: platform.EndpointDescriptor{Name: "Line In", ID: "line", Direction: platform.Capture},
		Mix:        platform.NewFormat(48000, 2),
	})
	e := newTestEngine(t, p)

	require.ErrorIs(t, e.SetRecordingDevice(-1), ErrNotFound)
	require.NoError(t, e.SetRecordingDevice(0))
}

func TestBindExclusiveBusy(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	p.SetBusy("mic-default", true)
	e := newTestEngine(t, p)

	err := e.SetRecordingDevice(-1)
	require.ErrorIs(t, err, ErrAlreadyInUseExclusive)
	assert.Equal(t, KindAlreadyInUseExclusive, Kind(err))
	assert.Equal(t, StateUnbound, e.Status().Capture.State)
}

func TestRebindLeavesNoDanglingHandles(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	e := newTestEngine(t, p, WithShareMode(platform.Exclusive))
	const sessionHandles = 1
	const bindingHandles = 2

	for _, dir := range []platform.Direction{platform.Capture, platform.Render} {
		list, err := e.Enumerate(dir)
		require.NoError(t, err)

		for i := range list {
			set := e.SetRecordingDevice
			if dir == platform.Render {
				set = e.SetPlayoutDevice
			}
			require.NoError(t, set(i), "bind %s %d", dir, i)
			require.NoError(t, set(i), "exclusive rebind of the same endpoint")
			require.NoError(t, set(-1))
		}
	}
	assert.Equal(t, sessionHandles+2*bindingHandles, p.OpenHandles())

	prepareCapture(t, e)
	assert.Equal(t, sessionHandles+2*bindingHandles+1, p.OpenHandles())

	require.NoError(t, e.SetRecordingDevice(1))
	assert.Equal(t, sessionHandles+2*bindingHandles, p.OpenHandles(), "rebind releases the prepared stream")

	require.NoError(t, e.Terminate())
	assert.Zero(t, p.OpenHandles())
}

func TestSetFormatNegotiation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())
	require.NoError(t, e.SetRecordingDevice(-1))

	f1, err := e.SetRecordingFormat(48000, 1)
	require.NoError(t, err)
	f2, err := e.SetRecordingFormat(48000, 1)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	assert.Equal(t, platform.NewFormat(48000, 1), f1)

	// closest mix format keeps the channel count, so the rate change is accepted
	f, err := e.SetRecordingFormat(44100, 2)
	require.NoError(t, err)
	assert.Equal(t, platform.NewFormat(48000, 2), f)
	assert.True(t, e.IsRecordingFormatSupported(44100, 2))

	// closest mix format has two channels, a mono request cannot use it
	_, err = e.SetRecordingFormat(44100, 1)
	require.ErrorIs(t, err, ErrFormatUnsupported)
	assert.False(t, e.IsRecordingFormatSupported(44100, 1))

	got, err := e.RecordingFormat()
	require.NoError(t, err)
	assert.Equal(t, platform.NewFormat(48000, 2), got, "failed negotiation leaves the format unchanged")

	_, err = e.SetRecordingFormat(0, 1)
	require.ErrorIs(t, err, ErrFormatUnsupported)
}

func TestSetFormatExclusiveNoSubstitute(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault(), WithShareMode(platform.Exclusive))
	require.NoError(t, e.SetPlayoutDevice(-1))

	_, err := e.SetPlayoutFormat(44100, 2)
	require.ErrorIs(t, err, ErrFormatUnsupported)
	assert.Equal(t, StateBound, e.Status().Render.State)
}

func TestSetFormatRequiresBinding(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())

	_, err := e.SetPlayoutFormat(48000, 2)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, e.IsPlayoutFormatSupported(48000, 2))

	_, err = e.PlayoutFormat()
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestFormatChangeReleasesStream(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	e := newTestEngine(t, p)
	prepareCapture(t, e)
	first := p.Stream(platform.Capture)

	_, err := e.SetRecordingFormat(48000, 1)
	require.NoError(t, err)
	assert.Equal(t, StatePrepared, e.Status().Capture.State, "same format keeps the prepared stream")
	assert.False(t, first.Closed())

	_, err = e.SetRecordingFormat(16000, 1)
	require.NoError(t, err)
	assert.Equal(t, StateFormatSet, e.Status().Capture.State)
	assert.True(t, first.Closed())
}

func TestStartBeforePrepareFails(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())
	require.NoError(t, e.SetAudioBufferCallback(newRecorder()))

	check := func(want State) {
		t.Helper()
		err := e.StartRecording()
		require.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, KindInvalidState, Kind(err))
		assert.Equal(t, want, e.Status().Capture.State)
		assert.False(t, e.Recording())
	}

	check(StateUnbound)
	require.NoError(t, e.SetRecordingDevice(-1))
	check(StateBound)
	_, err := e.SetRecordingFormat(48000, 1)
	require.NoError(t, err)
	check(StateFormatSet)

	require.ErrorIs(t, e.StopRecording(), ErrInvalidState)
}

func TestStartRequiresCallback(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())
	prepareCapture(t, e)

	require.ErrorIs(t, e.StartRecording(), ErrInvalidState)
	assert.Equal(t, StatePrepared, e.Status().Capture.State)
}

func TestPrepareOpenStreamError(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	e := newTestEngine(t, p)
	require.NoError(t, e.SetRecordingDevice(-1))
	_, err := e.SetRecordingFormat(48000, 1)
	require.NoError(t, err)

	p.SetOpenStreamError(platform.ErrServiceUnavailable)
	err = e.InitRecording()
	require.ErrorIs(t, err, ErrPlatform)
	assert.Equal(t, StateFormatSet, e.Status().Capture.State)

	p.SetOpenStreamError(nil)
	require.NoError(t, e.InitRecording())
	require.NoError(t, e.InitRecording(), "prepare is idempotent")
	assert.Equal(t, StatePrepared, e.Status().Capture.State)
}

func TestStartStreamErrorRollsBack(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	e := newTestEngine(t, p)
	prepareCapture(t, e)
	require.NoError(t, e.SetAudioBufferCallback(newRecorder()))

	p.SetStartError(platform.ErrServiceUnavailable)
	require.ErrorIs(t, e.StartRecording(), ErrPlatform)
	assert.Equal(t, StatePrepared, e.Status().Capture.State)
	assert.Zero(t, p.AttachedThreads(), "worker detached after failed start")

	p.SetStartError(nil)
	require.NoError(t, e.StartRecording())
	assert.True(t, e.Recording())
	assert.Equal(t, 1, p.AttachedThreads())
}

func TestReconfigureWhileRunning(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())
	prepareCapture(t, e)
	rec := newRecorder()
	require.NoError(t, e.SetAudioBufferCallback(rec))
	require.NoError(t, e.StartRecording())

	require.ErrorIs(t, e.SetRecordingDevice(1), ErrInvalidState)
	_, err := e.SetRecordingFormat(16000, 1)
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, e.SetAudioBufferCallback(rec), ErrInvalidState)
	require.ErrorIs(t, e.StartRecording(), ErrInvalidState)
	require.NoError(t, e.InitRecording(), "already prepared")

	st := e.Status()
	assert.Equal(t, StateRunning, st.Capture.State)
	assert.Equal(t, platform.NewFormat(48000, 1), *st.Capture.Format)

	require.NoError(t, e.StopRecording())
	assert.Equal(t, StateStopped, e.Status().Capture.State)
	require.NoError(t, e.StartRecording(), "stopped directions restart")
	require.NoError(t, e.StopRecording())
}

func TestTerminateWhileRunning(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	e := newTestEngine(t, p)
	prepareCapture(t, e)
	preparePlayout(t, e)
	require.NoError(t, e.SetAudioBufferCallback(newRecorder()))
	require.NoError(t, e.StartAll(context.Background()))
	assert.Equal(t, 2, p.AttachedThreads())

	capture := p.Stream(platform.Capture)
	render := p.Stream(platform.Render)

	require.NoError(t, e.Terminate())
	assert.Zero(t, p.OpenHandles())
	assert.Zero(t, p.AttachedThreads())
	assert.True(t, capture.Closed())
	assert.True(t, render.Closed())

	st := e.Status()
	assert.False(t, st.Initialized)
	assert.Equal(t, StateUnbound, st.Capture.State)
	assert.Equal(t, StateUnbound, st.Render.State)

	// the engine can be brought up again
	require.NoError(t, e.Initialize())
	require.NoError(t, e.SetRecordingDevice(-1))
}

func TestStartAllStopAll(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())
	prepareCapture(t, e)
	preparePlayout(t, e)
	require.NoError(t, e.SetAudioBufferCallback(newRecorder()))

	require.NoError(t, e.StartAll(context.Background()))
	assert.True(t, e.Recording())
	assert.True(t, e.Playing())

	require.NoError(t, e.StopAll())
	assert.False(t, e.Recording())
	assert.False(t, e.Playing())
	require.NoError(t, e.StopAll(), "nothing running is not an error")
}

func TestStartAllRollsBack(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	e := newTestEngine(t, p)
	prepareCapture(t, e)
	require.NoError(t, e.SetAudioBufferCallback(newRecorder()))

	err := e.StartAll(context.Background())
	require.ErrorIs(t, err, ErrInvalidState)
	assert.False(t, e.Recording())
	assert.False(t, e.Playing())
	assert.Zero(t, p.AttachedThreads())
}

func TestStartAllCancelled(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())
	prepareCapture(t, e)
	preparePlayout(t, e)
	require.NoError(t, e.SetAudioBufferCallback(newRecorder()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.StartAll(ctx)
	if err != nil {
		assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	}
	require.NoError(t, e.StopAll())
	assert.False(t, e.Recording())
	assert.False(t, e.Playing())
}

func TestVolume(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, mockplatform.NewDefault())

	_, err := e.RecordingVolume()
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, e.SetRecordingDevice(-1))
	level, err := e.RecordingVolume()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, level, 1e-6)

	require.NoError(t, e.SetRecordingVolume(0.25))
	level, err = e.RecordingVolume()
	require.NoError(t, err)
	assert.InDelta(t, 0.25, level, 1e-6)

	err = e.SetRecordingVolume(1.5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	require.NoError(t, e.SetPlayoutDevice(-1))
	require.NoError(t, e.SetPlayoutVolume(0))
	level, err = e.PlayoutVolume()
	require.NoError(t, err)
	assert.Zero(t, level)
}

func TestStopWithinBoundedWait(t *testing.T) {
	t.Parallel()

	p := mockplatform.NewDefault()
	// 10 ms periods, 100 ms wait bound
	e := newTestEngine(t, p, WithWaitTimeout(10, 1000))
	prepareCapture(t, e)
	require.NoError(t, e.SetAudioBufferCallback(newRecorder()))
	require.NoError(t, e.StartRecording())

	waitBound := e.cfg.waitTimeout(48000)
	require.Equal(t, 100*time.Millisecond, waitBound)

	start := time.Now()
	require.NoError(t, e.StopRecording())
	assert.Less(t, time.Since(start), 2*waitBound)
	assert.Zero(t, p.AttachedThreads())
	assert.False(t, p.Stream(platform.Capture).Started())
}

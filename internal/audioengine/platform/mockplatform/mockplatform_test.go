package mockplatform

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
)

func TestHandleAccounting(t *testing.T) {
	t.Parallel()

	p := NewDefault()
	sess, err := p.OpenSession()
	require.NoError(t, err)
	assert.Equal(t, 1, p.OpenHandles())

	c, err := sess.OpenClient(platform.Capture, "mic-default", platform.Shared)
	require.NoError(t, err)
	assert.Equal(t, 3, p.OpenHandles(), "client and volume handles")

	s, err := c.OpenStream(platform.NewFormat(48000, 1), 480)
	require.NoError(t, err)
	assert.Equal(t, 4, p.OpenHandles())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.NoError(t, sess.Close())
	assert.Zero(t, p.OpenHandles())
}

func TestExclusiveAccess(t *testing.T) {
	t.Parallel()

	p := NewDefault()
	sess, err := p.OpenSession()
	require.NoError(t, err)
	defer sess.Close()

	c, err := sess.OpenClient(platform.Render, "spk-default", platform.Exclusive)
	require.NoError(t, err)

	_, err = sess.OpenClient(platform.Render, "spk-default", platform.Shared)
	require.ErrorIs(t, err, platform.ErrDeviceBusy)

	require.NoError(t, c.Close())
	c2, err := sess.OpenClient(platform.Render, "spk-default", platform.Shared)
	require.NoError(t, err)
	require.NoError(t, c2.Close())

	p.SetBusy("spk-default", true)
	_, err = sess.OpenClient(platform.Render, "spk-default", platform.Shared)
	require.ErrorIs(t, err, platform.ErrDeviceBusy)
}

func TestFormatSupport(t *testing.T) {
	t.Parallel()

	p := NewDefault()
	sess, err := p.OpenSession()
	require.NoError(t, err)
	defer sess.Close()

	c, err := sess.OpenClient(platform.Capture, "mic-default", platform.Shared)
	require.NoError(t, err)
	defer c.Close()

	ok, closest, err := c.IsFormatSupported(platform.NewFormat(16000, 1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, closest)

	ok, closest, err = c.IsFormatSupported(platform.NewFormat(22050, 1))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, closest)
	assert.Equal(t, platform.NewFormat(48000, 2), *closest)
}

func TestCaptureTickAndRead(t *testing.T) {
	t.Parallel()

	p := NewDefault()
	sess, err := p.OpenSession()
	require.NoError(t, err)
	defer sess.Close()
	c, err := sess.OpenClient(platform.Capture, "mic-default", platform.Shared)
	require.NoError(t, err)
	defer c.Close()
	raw, err := c.OpenStream(platform.NewFormat(48000, 1), 4)
	require.NoError(t, err)
	defer raw.Close()

	s := p.Stream(platform.Capture)
	require.Same(t, raw, platform.Stream(s))

	s.Tick()
	s.Tick()

	buf := make([]byte, 8)
	<-s.Ready()
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf))

	// second period re-arms readiness after the first read
	<-s.Ready()
	_, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(buf[6:]))

	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRenderReadyOnStart(t *testing.T) {
	t.Parallel()

	p := NewDefault()
	sess, err := p.OpenSession()
	require.NoError(t, err)
	defer sess.Close()
	c, err := sess.OpenClient(platform.Render, "spk-default", platform.Shared)
	require.NoError(t, err)
	defer c.Close()
	raw, err := c.OpenStream(platform.NewFormat(48000, 2), 2)
	require.NoError(t, err)
	defer raw.Close()

	require.NoError(t, raw.Start())
	select {
	case <-raw.Ready():
	default:
		t.Fatal("render stream should be ready right after start")
	}

	_, err = raw.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Len(t, p.Stream(platform.Render).Written(), 1)
}

func TestGeometry(t *testing.T) {
	t.Parallel()

	p := NewDefault()
	sess, err := p.OpenSession()
	require.NoError(t, err)
	defer sess.Close()

	gp, ok := sess.(platform.GeometryProvider)
	require.True(t, ok)

	g, err := gp.MicArrayGeometry("mic-array-2")
	require.NoError(t, err)
	assert.Len(t, g.Microphones, 4)

	_, err = gp.MicArrayGeometry("mic-default")
	require.ErrorIs(t, err, platform.ErrNoGeometry)
}

func TestAttachThread(t *testing.T) {
	t.Parallel()

	p := New()
	sess, err := p.OpenSession()
	require.NoError(t, err)
	defer sess.Close()

	detach, err := sess.AttachThread()
	require.NoError(t, err)
	assert.Equal(t, 1, p.AttachedThreads())
	detach()
	detach()
	assert.Zero(t, p.AttachedThreads())
	assert.Equal(t, 1, p.TotalAttaches())
}

package play

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/audioengine/platform/mockplatform"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/encoder"
	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/runner"
	"github.com/tphakala/audioengine/internal/testutil"
)

func testSettings() *conf.Settings {
	s := conf.Defaults()
	s.Engine.ThreadPriority.Enabled = false
	s.Engine.WaitTimeoutPeriods = 100
	s.Engine.FailureThreshold = 100
	return s
}

func writeTone(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	enc, err := encoder.Create(encoder.WAV, f, encoder.Config{SampleRate: 48000, Channels: 2})
	require.NoError(t, err)
	pcm := make([]byte, frames*4)
	for i := range pcm {
		pcm[i] = 0x11
	}
	_, err = enc.Write(pcm)
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return path
}

func TestRunPlaysFileToEnd(t *testing.T) {
	t.Parallel()
	p := mockplatform.NewDefault()
	path := writeTone(t, 1000)

	result := make(chan error, 1)
	go func() {
		result <- Run(t.Context(), testSettings(), path, false, runner.WithProvider(p))
	}()

	stream := testutil.WaitForStream(t, p, platform.Render)
	require.NoError(t, testutil.TickUntil(t, stream, result, testutil.DefaultTestTimeout))

	written := stream.Written()
	require.NotEmpty(t, written)
	assert.Equal(t, byte(0x11), written[0][0])
	assert.Zero(t, p.OpenHandles())
}

func TestRunMissingFile(t *testing.T) {
	t.Parallel()
	p := mockplatform.NewDefault()
	err := Run(t.Context(), testSettings(), filepath.Join(t.TempDir(), "none.wav"), false, runner.WithProvider(p))
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.Zero(t, p.OpenHandles())
}

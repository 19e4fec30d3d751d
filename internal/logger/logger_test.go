package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_LevelGating(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Trace("hidden too")
	log.Info("visible", String("direction", "capture"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "direction=capture")
}

func TestSlogLogger_ModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelDebug, time.UTC)
	engine := base.Module("audioengine").With(String("engine_id", "abc"))
	capture := engine.Module("capture")

	capture.Debug("cycle", Uint64("cycle", 42), Duration("wait", 10*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "module=audioengine.capture")
	assert.Contains(t, out, "engine_id=abc")
	assert.Contains(t, out, "cycle=42")
	assert.Contains(t, out, "wait=10ms")
	assert.NotContains(t, out, "time=", "console output omits timestamps")
}

func TestSlogLogger_WithContextTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(context.Background(), "trace-1")).Info("traced")
	log.WithContext(context.Background()).Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=trace-1")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestSlogLogger_ExplicitLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelWarn, time.UTC)

	log.Log(LogLevelInfo, "dropped")
	log.Log(LogLevelError, "kept", Error(assert.AnError))

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestSlogLogger_TraceLevelName(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	NewSlogLogger(buf, LogLevelTrace, time.UTC).Trace("deep")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestCentralLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "engine.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"quiet": "error"},
	})
	require.NoError(t, err)

	cl.Module("audioengine").Debug("bound endpoint", String("endpoint_id", "mic-1"))
	cl.Module("quiet").Info("suppressed")
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())
	require.NoError(t, cl.Close(), "Close is idempotent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"bound endpoint"`)
	assert.Contains(t, string(data), `"endpoint_id":"mic-1"`)
	assert.NotContains(t, string(data), "suppressed")
}

func TestFileOutputWriterOptions(t *testing.T) {
	t.Parallel()

	assert.Empty(t, (&FileOutput{}).writerOptions())

	w, err := NewBufferedFileWriter(filepath.Join(t.TempDir(), "engine.log"),
		(&FileOutput{BufferSize: 4096, FlushInterval: time.Minute}).writerOptions()...)
	require.NoError(t, err)
	assert.Equal(t, 4096, w.bufferSize)
	assert.Equal(t, time.Minute, w.flushInterval)
	require.NoError(t, w.Close())
}

func TestNewCentralLogger_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)
}

func TestFieldToAttr_RoundsFloats(t *testing.T) {
	t.Parallel()

	attr := fieldToAttr(Float64("ratio", 1.23456789))
	assert.InDelta(t, 1.235, attr.Value.Float64(), 1e-9)
}

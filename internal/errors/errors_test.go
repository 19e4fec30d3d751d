package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSetsFields(t *testing.T) {
	t.Parallel()

	base := NewStd("device busy")
	ee := New(base).
		Component("audioengine").
		Category(CategoryAudio).
		Priority(PriorityHigh).
		Context("direction", "capture").
		Build()

	assert.Equal(t, "device busy", ee.Error())
	assert.Equal(t, "audioengine", ee.GetComponent())
	assert.Equal(t, string(CategoryAudio), ee.GetCategory())
	assert.Equal(t, PriorityHigh, ee.GetPriority())
	assert.Equal(t, map[string]any{"direction": "capture"}, ee.GetContext())
	assert.WithinDuration(t, time.Now(), ee.GetTimestamp(), time.Second)
	assert.Same(t, base, ee.GetError())
	assert.True(t, Is(ee, base))
}

func TestUnknownPriorityFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.GetPriority())

	ee = New(NewStd("x")).Priority("").Build()
	assert.Empty(t, ee.GetPriority())
}

func TestBuildWithoutErrorUsesCategory(t *testing.T) {
	t.Parallel()

	ee := New(nil).Category(CategoryDegraded).Component("aec").Build()
	require.Error(t, ee)
	assert.Equal(t, string(CategoryDegraded), ee.Error())
	assert.Equal(t, string(CategoryDegraded), ee.GetMessage())
}

func TestCategoryDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"wait timeout after 3 periods", CategoryTimeout},
		{"context canceled", CategoryCancellation},
		{"unsupported sample format", CategoryAudioFormat},
		{"device disconnected", CategoryAudio},
		{"open output", CategoryFileIO},
		{"invalid period", CategoryValidation},
		{"something else", CategoryGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			ee := New(NewStd(tt.msg)).Component("test").Build()
			assert.Equal(t, tt.want, ee.Category)
		})
	}
}

func TestCategoryDetectionPrefersWrappedCategory(t *testing.T) {
	t.Parallel()

	inner := New(NewStd("no such device")).Category(CategoryNotFound).Component("test").Build()
	outer := New(fmt.Errorf("bind capture: %w", inner)).Component("test").Build()

	assert.Equal(t, CategoryNotFound, outer.Category)
	assert.True(t, IsNotFound(outer))
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	sentinel := New(nil).Category(CategoryState).Component("test").Build()
	err := New(NewStd("already running")).Category(CategoryState).Component("test").Build()
	other := New(NewStd("short write")).Category(CategoryFileIO).Component("test").Build()

	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, fmt.Errorf("start: %w", err), sentinel)
	assert.NotErrorIs(t, other, sentinel)
}

func TestIsCategoryAndJoin(t *testing.T) {
	t.Parallel()

	a := New(NewStd("encoder close")).Category(CategoryFileIO).Component("test").Build()
	b := New(NewStd("dropped blocks")).Category(CategoryBuffer).Component("test").Build()
	joined := Join(a, b)

	assert.True(t, IsCategory(joined, CategoryFileIO))
	assert.False(t, IsCategory(NewStd("plain"), CategoryFileIO))
	assert.ErrorIs(t, joined, b)
	assert.Nil(t, Join(nil, nil))
}

func TestFileContextIsAnonymized(t *testing.T) {
	t.Parallel()

	ee := FileError(NewStd("short write"), "/var/tmp/take1.WAV", 4096)
	ctx := ee.GetContext()

	assert.Equal(t, CategoryFileIO, ee.Category)
	assert.Equal(t, "absolute-path", ctx["file_type"])
	assert.Equal(t, "wav", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
	assert.NotContains(t, fmt.Sprint(ctx), "take1")
}

func TestTimingContext(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("slow")).Component("test").Timing("drain", 1500*time.Millisecond).Build()
	ctx := ee.GetContext()
	assert.Equal(t, "drain", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
}

func TestLookupComponentPrefersLongestPattern(t *testing.T) {
	t.Parallel()

	got := lookupComponent("github.com/tphakala/audioengine/internal/audioengine/platform/mockplatform.(*Stream).Tick")
	assert.Equal(t, "audioengine.mock", got)

	got = lookupComponent("github.com/tphakala/audioengine/internal/audioengine.(*Engine).StartAll")
	assert.Equal(t, "audioengine", got)

	got = lookupComponent("example.com/other/pkg.Func")
	assert.Equal(t, "pkg", got)
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Component("test").Context("k", 1).Build()
	ctx := ee.GetContext()
	ctx["k"] = 2
	assert.Equal(t, 1, ee.GetContext()["k"])
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := NewStd("yaml: line 3: mapping values are not allowed")
	ee := Wrap(cause).Category(CategoryConfiguration).Component("configuration").Build()
	assert.ErrorIs(t, ee, cause)
	assert.True(t, IsCategory(ee, CategoryConfiguration))
}

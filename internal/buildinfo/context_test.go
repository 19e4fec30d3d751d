package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Version(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{"nil context", nil, UnknownValue},
		{"empty version", NewContext("", "2026-01-01"), UnknownValue},
		{"valid version", NewContext("1.0.0", "2026-01-01"), "1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.GetVersion())
		})
	}
}

func TestContext_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1.0.0 (built 2026-01-01)", NewContext("1.0.0", "2026-01-01").String())
	assert.Equal(t, "unknown (built unknown)", NewContext("", "").String())

	var c *Context
	assert.Equal(t, UnknownValue, c.GetBuildDate())
}

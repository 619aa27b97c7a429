package borders

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTitledBorder_Dimensions(t *testing.T) {
	out := RenderTitledBorder("a\nb\nc\nd", "1 Status", 20, 4, true)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Equal(t, 20, lipgloss.Width(l))
	}
	assert.Contains(t, lines[0], "1 Status")
	assert.Contains(t, lines[1], "a")
	assert.Contains(t, lines[2], "b")
}

func TestRenderTitledBorder_LongTitle(t *testing.T) {
	out := RenderTitledBorder("", "a very long panel title", 10, 3, false)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, 10, lipgloss.Width(lines[0]))
}

func TestRenderTitledBorder_TooSmall(t *testing.T) {
	assert.Empty(t, RenderTitledBorder("x", "t", 1, 5, false))
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trun…"},
		{"héllo wörld", 6, "héllo…"},
		{"x", 0, ""},
		{"xy", 1, "…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clip(tt.in, tt.n), "Clip(%q, %d)", tt.in, tt.n)
	}
}

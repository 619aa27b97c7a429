// Package borders draws rounded panel frames with the title embedded in
// the top edge.
package borders

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/gerunddev/hgazy/ui/theme"
)

// Rounded border glyphs.
const (
	TopLeft     = "╭"
	TopRight    = "╮"
	BottomLeft  = "╰"
	BottomRight = "╯"
	Horizontal  = "─"
	Vertical    = "│"
)

// RenderTitledBorder frames a panel in a width x height box, using the
// focus colors. Content is clipped or padded to fit; the title is
// truncated to the top edge.
func RenderTitledBorder(content, title string, width, height int, focused bool) string {
	if focused {
		return RenderBox(content, title, width, height, theme.FocusedBorderColor, theme.FocusedTitleStyle)
	}
	return RenderBox(content, title, width, height, theme.UnfocusedBorderColor, theme.TitleStyle)
}

// RenderBox frames content with an explicit edge color and title style.
func RenderBox(content, title string, width, height int, color lipgloss.TerminalColor, titleStyle lipgloss.Style) string {
	if width < 2 || height < 2 {
		return ""
	}
	edge := lipgloss.NewStyle().Foreground(color)
	inner := width - 2

	var b strings.Builder
	b.WriteString(edge.Render(TopLeft))
	used := 0
	if title != "" && inner > 2 {
		t := " " + title + " "
		if lipgloss.Width(t) > inner-1 {
			t = Clip(t, inner-1)
		}
		b.WriteString(edge.Render(Horizontal))
		b.WriteString(titleStyle.Render(t))
		used = 1 + lipgloss.Width(t)
	}
	b.WriteString(edge.Render(strings.Repeat(Horizontal, inner-used) + TopRight))

	lines := strings.Split(content, "\n")
	body := lipgloss.NewStyle().Width(inner)
	for i := 0; i < height-2; i++ {
		line := ""
		if i < len(lines) {
			line = ansi.Truncate(lines[i], inner, "")
		}
		b.WriteString("\n")
		b.WriteString(edge.Render(Vertical))
		b.WriteString(body.Render(line))
		b.WriteString(edge.Render(Vertical))
	}

	b.WriteString("\n")
	b.WriteString(edge.Render(BottomLeft + strings.Repeat(Horizontal, inner) + BottomRight))
	return b.String()
}

// Center places box in the middle of a width x height area by padding
// it with blank lines above and spaces on the left.
func Center(box string, width, height int) string {
	lines := strings.Split(box, "\n")
	x := max((width-lipgloss.Width(box))/2, 0)
	y := max((height-len(lines))/2, 0)
	pad := strings.Repeat(" ", x)
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Repeat("\n", y) + strings.Join(lines, "\n")
}

// Clip shortens plain text to at most n cells, ending in an ellipsis.
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

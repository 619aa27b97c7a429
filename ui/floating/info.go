package floating

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gerunddev/hgazy/ui/borders"
	"github.com/gerunddev/hgazy/ui/theme"
)

// maxDialogWidth bounds the message box on wide terminals.
const maxDialogWidth = 60

// InfoOverlay is a centered message box. Any key dismisses it; the app
// decides what dismissing means.
type InfoOverlay struct {
	title   string
	message string
	color   lipgloss.TerminalColor
	width   int
	height  int
}

// NewInfoOverlay creates a message box with the floating window colors.
func NewInfoOverlay(title, message string) *InfoOverlay {
	return &InfoOverlay{
		title:   title,
		message: message,
		color:   theme.FloatingBorderColor,
	}
}

// NewWarningOverlay shows a standing repository warning, such as an
// unsupported hg version.
func NewWarningOverlay(err error) *InfoOverlay {
	o := NewInfoOverlay("Warning", err.Error())
	o.color = theme.ColorYellow
	return o
}

func (i *InfoOverlay) Init() tea.Cmd {
	return nil
}

func (i *InfoOverlay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return i, nil
}

// Title returns the dialog title.
func (i *InfoOverlay) Title() string {
	return i.title
}

// Message returns the text shown in the box.
func (i *InfoOverlay) Message() string {
	return i.message
}

func (i *InfoOverlay) SetSize(width, height int) {
	i.width = width
	i.height = height
}

func (i *InfoOverlay) View() string {
	boxWidth := min(maxDialogWidth, i.width-4)
	if boxWidth < 8 {
		return ""
	}

	lines := []string{""}
	for _, line := range wrapText(i.message, boxWidth-6) {
		lines = append(lines, "  "+line)
	}
	lines = append(lines, "", "  "+theme.DimmedStyle.Render("press any key to continue"))

	boxHeight := min(len(lines)+2, max(i.height, 3))
	box := borders.RenderBox(strings.Join(lines, "\n"), i.title, boxWidth, boxHeight,
		i.color, theme.FloatingTitleStyle.Foreground(i.color))
	return borders.Center(box, i.width, i.height)
}

// wrapText breaks text into lines of at most maxWidth cells at word
// boundaries. A single word wider than maxWidth gets its own line.
func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	lines := []string{}
	var line []string
	width := 0
	for _, word := range strings.Fields(text) {
		w := lipgloss.Width(word)
		if len(line) > 0 && width+1+w > maxWidth {
			lines = append(lines, strings.Join(line, " "))
			line, width = nil, 0
		}
		if len(line) > 0 {
			width++
		}
		line = append(line, word)
		width += w
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	return lines
}

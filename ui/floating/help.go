package floating

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gerunddev/hgazy/ui/borders"
	"github.com/gerunddev/hgazy/ui/theme"
)

type helpSection struct {
	title string
	rows  [][2]string // term, description
}

var helpSections = []helpSection{
	{"Panels", [][2]string{
		{"0 Diff", "the selected file or revision"},
		{"1 Status", "branch, parent, tip, merge/rebase/graft state, ignored files"},
		{"2 Files", "working copy changes; U marks unresolved files"},
		{"3 Branches", "named branches and their heads"},
		{"4 Bookmarks", "bookmarks, tags and local tags"},
		{"5 Queue", "applied and unapplied MQ patches"},
	}},
	{"Diff", [][2]string{
		{"n / p", "next or previous file"},
		{"enter", "in the files panel, diff the selected file"},
	}},
	{"Overlays", [][2]string{
		{"l", "history graph; enter shows a revision's diff"},
		{"?", "this screen"},
		{"esc", "close the overlay"},
	}},
	{"Refreshing", [][2]string{
		{"watch", "changes under .hg are picked up by polling"},
		{"r", "refresh the repository now"},
		{"i", "rescan ignored files"},
	}},
}

// HelpOverlay is a floating window listing keys and panels
type HelpOverlay struct {
	viewport viewport.Model
	help     help.Model
	keymap   help.KeyMap
	width    int
	height   int
	ready    bool
}

// NewHelpOverlay creates a new floating help window
func NewHelpOverlay(keymap help.KeyMap) *HelpOverlay {
	h := help.New()
	h.ShowAll = true
	return &HelpOverlay{help: h, keymap: keymap}
}

func (h *HelpOverlay) Init() tea.Cmd {
	return nil
}

func (h *HelpOverlay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !h.ready {
		return h, nil
	}
	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			h.viewport.LineUp(3)
		case tea.MouseButtonWheelDown:
			h.viewport.LineDown(3)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			h.viewport.LineUp(1)
		case "down", "j":
			h.viewport.LineDown(1)
		case "pgup", "ctrl+u":
			h.viewport.HalfViewUp()
		case "pgdown", "ctrl+d":
			h.viewport.HalfViewDown()
		case "g", "home":
			h.viewport.GotoTop()
		case "G", "end":
			h.viewport.GotoBottom()
		}
	}
	return h, nil
}

func (h *HelpOverlay) View() string {
	if !h.ready {
		return h.renderFrame("Initializing...")
	}
	return h.renderFrame(h.viewport.View())
}

func (h *HelpOverlay) SetSize(width, height int) {
	h.width = width
	h.height = height
	if !h.ready {
		h.viewport = viewport.New(width-2, height-2)
		h.ready = true
	} else {
		h.viewport.Width = width - 2
		h.viewport.Height = height - 2
	}
	h.help.Width = width - 4
	h.viewport.SetContent(h.renderHelp())
}

func (h *HelpOverlay) renderHelp() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorYellow)
	term := theme.HelpKeyStyle
	desc := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	lines := []string{
		" " + lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render("hgazy - Mercurial repository viewer"),
		" " + theme.DimmedStyle.Render("Read-only: nothing here writes to the repository."),
		"",
		" " + heading.Render("Keys"),
	}
	for _, l := range strings.Split(h.help.View(h.keymap), "\n") {
		lines = append(lines, " "+l)
	}

	for _, s := range helpSections {
		termWidth := 0
		for _, r := range s.rows {
			termWidth = max(termWidth, lipgloss.Width(r[0]))
		}
		lines = append(lines, "", " "+heading.Render(s.title))
		for _, r := range s.rows {
			lines = append(lines, fmt.Sprintf(" %s  %s", term.Render(fmt.Sprintf("%-*s", termWidth, r[0])), desc.Render(r[1])))
		}
	}
	return strings.Join(lines, "\n")
}

func (h *HelpOverlay) renderFrame(content string) string {
	title := "Help"
	if h.ready && h.viewport.TotalLineCount() > h.viewport.Height {
		title = fmt.Sprintf("Help (%d%%)", int(h.viewport.ScrollPercent()*100))
	}
	return borders.RenderBox(content, title, h.width, h.height, theme.FloatingBorderColor, theme.FloatingTitleStyle)
}

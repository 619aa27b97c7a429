package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gerunddev/hgazy/ui/borders"
	"github.com/gerunddev/hgazy/ui/theme"
)

const diffTitle = "0 Diff"

// DiffStat counts the files and lines of a git-style diff.
type DiffStat struct {
	Files, Added, Removed int
}

func (s DiffStat) String() string {
	if s.Files == 0 {
		return ""
	}
	noun := "files"
	if s.Files == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s +%d -%d", s.Files, noun, s.Added, s.Removed)
}

// DiffViewer shows "hg diff --git" output with line highlighting
type DiffViewer struct {
	BasePanel
	viewport viewport.Model
	content  string
	stat     DiffStat
	headers  []int // line index of every "diff --git" header
	ready    bool
}

// NewDiffViewer creates a new diff viewer panel
func NewDiffViewer() *DiffViewer {
	return &DiffViewer{
		BasePanel: NewBasePanel(diffTitle, "diff"),
	}
}

// SetContent replaces the diff and scrolls back to the top. title names
// what is being diffed.
func (d *DiffViewer) SetContent(content, title string) {
	d.content = strings.TrimRight(content, "\n")
	d.title = diffTitle
	if title != "" {
		d.title += " " + title
	}
	d.stat, d.headers = scanDiff(d.content)
	if d.ready {
		d.viewport.SetContent(d.renderDiff())
		d.viewport.GotoTop()
	}
}

// Content returns the raw diff text.
func (d *DiffViewer) Content() string {
	return d.content
}

// Stat returns the file and line counts of the current diff.
func (d *DiffViewer) Stat() DiffStat {
	return d.stat
}

func scanDiff(content string) (DiffStat, []int) {
	var stat DiffStat
	var headers []int
	if content == "" {
		return stat, nil
	}
	for i, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			stat.Files++
			headers = append(headers, i)
		case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "):
		case strings.HasPrefix(line, "+"):
			stat.Added++
		case strings.HasPrefix(line, "-"):
			stat.Removed++
		}
	}
	return stat, headers
}

func (d *DiffViewer) Init() tea.Cmd {
	return nil
}

func (d *DiffViewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !d.ready {
		return d, nil
	}
	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			d.viewport.LineUp(3)
		case tea.MouseButtonWheelDown:
			d.viewport.LineDown(3)
		}

	case tea.KeyMsg:
		if !d.focused {
			return d, nil
		}
		switch msg.String() {
		case "up", "k", "ctrl+p":
			d.viewport.LineUp(1)
		case "down", "j", "ctrl+n":
			d.viewport.LineDown(1)
		case "pgup", "ctrl+u", "alt+v":
			d.viewport.HalfViewUp()
		case "pgdown", "ctrl+d", "ctrl+v":
			d.viewport.HalfViewDown()
		case "g", "home", "alt+<":
			d.viewport.GotoTop()
		case "G", "end", "alt+>":
			d.viewport.GotoBottom()
		case "n", "]":
			d.jumpFile(1)
		case "p", "[":
			d.jumpFile(-1)
		}
	}
	return d, nil
}

// jumpFile scrolls to the next (dir > 0) or previous file header.
func (d *DiffViewer) jumpFile(dir int) {
	at := d.viewport.YOffset
	if dir > 0 {
		for _, h := range d.headers {
			if h > at {
				d.viewport.SetYOffset(h)
				return
			}
		}
		return
	}
	for i := len(d.headers) - 1; i >= 0; i-- {
		if d.headers[i] < at {
			d.viewport.SetYOffset(d.headers[i])
			return
		}
	}
}

func (d *DiffViewer) View() string {
	if !d.ready {
		return d.RenderFrame("Initializing...")
	}
	return d.RenderFrame(d.viewport.View())
}

// SetSize overrides BasePanel.SetSize to also resize viewport
func (d *DiffViewer) SetSize(width, height int) {
	d.BasePanel.SetSize(width, height)
	if !d.ready {
		d.viewport = viewport.New(d.ContentWidth(), d.ContentHeight())
		d.ready = true
	} else {
		d.viewport.Width = d.ContentWidth()
		d.viewport.Height = d.ContentHeight()
	}
	d.viewport.SetContent(d.renderDiff())
}

func diffLineStyle(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "diff --git "):
		return theme.DimmedStyle.Bold(true)
	case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "):
		return theme.DimmedStyle.Bold(true)
	case strings.HasPrefix(line, "@@"):
		return theme.DiffHunkHeader
	case strings.HasPrefix(line, "+"):
		return theme.DiffAddLine
	case strings.HasPrefix(line, "-"):
		return theme.DiffRemoveLine
	case strings.HasPrefix(line, "rename "), strings.HasPrefix(line, "copy "),
		strings.HasPrefix(line, "new file mode"), strings.HasPrefix(line, "deleted file mode"),
		strings.HasPrefix(line, "old mode"), strings.HasPrefix(line, "new mode"),
		strings.HasPrefix(line, "Binary file"), strings.HasPrefix(line, "GIT binary patch"):
		return theme.DimmedStyle
	case strings.HasPrefix(line, "Error: "):
		return theme.WarningStyle
	}
	return theme.DiffContextLine
}

func (d *DiffViewer) renderDiff() string {
	if d.content == "" {
		return theme.DimmedStyle.Italic(true).Render("no changes")
	}
	width := max(d.ContentWidth()-1, 0)
	src := strings.Split(d.content, "\n")
	lines := make([]string, len(src))
	for i, line := range src {
		lines[i] = diffLineStyle(line).Render(borders.Clip(line, width))
	}
	return strings.Join(lines, "\n")
}

// RenderFrame adds the diff stat and scroll position to the title.
func (d *DiffViewer) RenderFrame(content string) string {
	title := d.title
	if s := d.stat.String(); s != "" {
		title += " " + s
	}
	if d.ready && d.viewport.TotalLineCount() > d.viewport.Height {
		title = fmt.Sprintf("%s (%d%%)", title, int(d.viewport.ScrollPercent()*100))
	}
	return borders.RenderTitledBorder(content, title, d.width, d.height, d.focused)
}

// Ensure DiffViewer implements Panel
var _ Panel = (*DiffViewer)(nil)

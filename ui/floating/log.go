package floating

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/borders"
	"github.com/gerunddev/hgazy/ui/graph"
	"github.com/gerunddev/hgazy/ui/messages"
	"github.com/gerunddev/hgazy/ui/prefix"
	"github.com/gerunddev/hgazy/ui/theme"
)

// linesPerRevision is the height of one revision: the header line and
// the subject line.
const linesPerRevision = 2

// LogOverlay is a floating window showing recent history as a graph
type LogOverlay struct {
	viewport viewport.Model
	records  []hg.CommitRecord
	info     *hg.RepoInfo
	err      error
	cursor   int
	width    int
	height   int
	ready    bool

	hashes *prefix.IDSet
}

// NewLogOverlay creates a new floating log window
func NewLogOverlay() *LogOverlay {
	return &LogOverlay{hashes: prefix.NewIDSet(nil)}
}

// SetRecords replaces the history, newest first. err is shown instead
// of the graph when the log query failed.
func (l *LogOverlay) SetRecords(records []hg.CommitRecord, err error) {
	l.records = records
	l.err = err
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Changeset()
	}
	l.hashes = prefix.NewIDSet(ids)
	if l.cursor >= len(records) {
		l.cursor = max(len(records)-1, 0)
	}
	l.refresh()
}

// SetInfo sets the snapshot used to mark the working copy parent,
// closed heads, bookmarks and tags.
func (l *LogOverlay) SetInfo(info *hg.RepoInfo) {
	l.info = info
	l.refresh()
}

// Records returns the history shown.
func (l *LogOverlay) Records() []hg.CommitRecord {
	return l.records
}

func (l *LogOverlay) Init() tea.Cmd {
	return nil
}

func (l *LogOverlay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			l.viewport.LineUp(3)
		case tea.MouseButtonWheelDown:
			l.viewport.LineDown(3)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k", "ctrl+p":
			if l.cursor > 0 {
				l.cursor--
			}
		case "down", "j", "ctrl+n":
			if l.cursor < len(l.records)-1 {
				l.cursor++
			}
		case "g", "home", "alt+<":
			l.cursor = 0
		case "G", "end", "alt+>":
			if len(l.records) > 0 {
				l.cursor = len(l.records) - 1
			}
		case "pgup", "ctrl+u", "alt+v":
			l.viewport.HalfViewUp()
			return l, nil
		case "pgdown", "ctrl+d", "ctrl+v":
			l.viewport.HalfViewDown()
			return l, nil
		case "enter":
			if rec := l.SelectedRecord(); rec != nil {
				changeset := rec.Changeset()
				return l, func() tea.Msg {
					return messages.RevisionSelectedMsg{Changeset: changeset}
				}
			}
		}
		l.refresh()
		l.ensureCursorVisible()
	}

	return l, nil
}

func (l *LogOverlay) refresh() {
	if l.ready {
		l.viewport.SetContent(l.renderLog())
	}
}

func (l *LogOverlay) ensureCursorVisible() {
	if !l.ready {
		return
	}
	linePos := l.cursor * linesPerRevision
	if linePos < l.viewport.YOffset {
		l.viewport.SetYOffset(linePos)
	} else if linePos+linesPerRevision > l.viewport.YOffset+l.viewport.Height {
		l.viewport.SetYOffset(linePos + linesPerRevision - l.viewport.Height)
	}
}

func (l *LogOverlay) View() string {
	if !l.ready {
		return l.renderFrame("Initializing...")
	}
	return l.renderFrame(l.viewport.View())
}

func (l *LogOverlay) SetSize(width, height int) {
	l.width = width
	l.height = height

	contentWidth := width - 2
	contentHeight := height - 2

	if !l.ready {
		l.viewport = viewport.New(contentWidth, contentHeight)
		l.ready = true
	} else {
		l.viewport.Width = contentWidth
		l.viewport.Height = contentHeight
	}
	l.viewport.SetContent(l.renderLog())
}

// labels maps changesets to their bookmark and tag names.
func (l *LogOverlay) labels() map[string][]string {
	out := make(map[string][]string)
	if l.info == nil {
		return out
	}
	for _, b := range l.info.Bookmarks() {
		out[b.Hash] = append(out[b.Hash], theme.BookmarkStyle.Render(b.Name))
	}
	for _, t := range append(l.info.Tags(), l.info.LocalTags()...) {
		out[t.Hash] = append(out[t.Hash], theme.TagStyle.Render(t.Name))
	}
	return out
}

func (l *LogOverlay) renderLog() string {
	if l.err != nil {
		return theme.WarningStyle.Render(l.err.Error())
	}
	if len(l.records) == 0 {
		return theme.DimmedStyle.Italic(true).Render("no history")
	}

	var current string
	closed := make(map[string]bool)
	if l.info != nil {
		current, _ = l.info.CurrentRevision()
		for _, h := range l.info.ClosedHeads() {
			closed[h] = true
		}
	}
	labels := l.labels()

	renderer := graph.NewRenderer(theme.WorkingCopyStyle, theme.NormalItemStyle, theme.DimmedStyle, theme.DimmedStyle)
	contentWidth := l.width - 2

	var lines []string
	for i, rec := range l.records {
		g := renderer.Render(graph.NodeFor(rec, current, closed))

		hash := rec.Changeset()
		if len(hash) > 12 {
			hash = hash[:12]
		}
		header := []string{
			g.Prefix + theme.RevisionStyle.Render(rec.Revision.RevisionWithoutMarker()),
			l.hashes.Format(hash, theme.HashPrefixStyle, theme.HashRestStyle),
			theme.AuthorStyle.Render(rec.Revision.Author),
			theme.TimestampStyle.Render(humanize.Time(rec.Time())),
		}
		if rec.Branch != "" && rec.Branch != hg.DefaultBranch {
			header = append(header, theme.BranchStyle.Render(rec.Branch))
		}
		header = append(header, labels[rec.Changeset()]...)
		line1 := strings.Join(header, " ")
		if i == l.cursor {
			line1 = theme.SelectedItemStyle.Render(line1)
		}
		lines = append(lines, line1)

		subject := rec.Subject()
		conn := renderer.RenderConnector()
		if conn == "" {
			conn = "  "
		}
		if subject == "" {
			lines = append(lines, conn+theme.DimmedStyle.Italic(true).Render("(no message)"))
			continue
		}
		room := contentWidth - lipgloss.Width(conn)
		lines = append(lines, conn+theme.NormalItemStyle.Render(borders.Clip(subject, room)))
	}
	return strings.Join(lines, "\n")
}

func (l *LogOverlay) renderFrame(content string) string {
	title := "Log"
	if n := len(l.records); n > 0 {
		title = fmt.Sprintf("Log (%d/%d)", l.cursor+1, n)
	}
	return borders.RenderBox(content, title, l.width, l.height, theme.FloatingBorderColor, theme.FloatingTitleStyle)
}

// SelectedRecord returns the record under the cursor
func (l *LogOverlay) SelectedRecord() *hg.CommitRecord {
	if l.cursor >= 0 && l.cursor < len(l.records) {
		return &l.records[l.cursor]
	}
	return nil
}

package panels

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/messages"
	"github.com/gerunddev/hgazy/ui/theme"
)

// FileEntry is one row of the files panel. Paths are relative to the
// repository root.
type FileEntry struct {
	Path     string
	Before   string // copy source, empty unless Status is StatusCopied
	Status   hg.ChangeStatus
	Conflict bool
}

// FilesPanel shows the working copy changes
type FilesPanel struct {
	BasePanel
	root      string
	changes   []hg.Change
	conflicts map[string]hg.ResolveState
	files     []FileEntry
	err       error
	viewport  viewport.Model
	ready     bool
}

// NewFilesPanel creates a new files panel for a repository rooted at root.
func NewFilesPanel(root string) *FilesPanel {
	return &FilesPanel{
		BasePanel: NewBasePanel("2 Files", "changes"),
		root:      root,
	}
}

// SetChanges replaces the status list. err is shown in place of the
// list when the status query failed.
func (p *FilesPanel) SetChanges(changes []hg.Change, err error) tea.Cmd {
	prev := p.SelectedFile()
	p.changes = changes
	p.err = err
	p.rebuild()
	if prev == nil {
		return p.selectionCmd()
	}
	for i, f := range p.files {
		if f.Path == prev.Path {
			p.cursor = i
			p.refreshViewport()
			return nil
		}
	}
	return p.selectionCmd()
}

// SetConflicts marks files that "hg resolve" lists as unresolved.
func (p *FilesPanel) SetConflicts(states map[string]hg.ResolveState) {
	p.conflicts = states
	p.rebuild()
}

func (p *FilesPanel) rebuild() {
	p.files = fileEntries(p.root, p.changes, p.conflicts)
	p.clampCursor(len(p.files))
	p.refreshViewport()
}

func relPath(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	if r, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}

func fileEntries(root string, changes []hg.Change, conflicts map[string]hg.ResolveState) []FileEntry {
	out := make([]FileEntry, 0, len(changes))
	for _, c := range changes {
		e := FileEntry{Path: relPath(root, c.Path()), Status: c.Status}
		if c.Status == hg.StatusCopied {
			e.Before = relPath(root, c.Before)
		}
		if s, ok := conflicts[c.Path()]; ok && s == hg.Unresolved {
			e.Conflict = true
		}
		out = append(out, e)
	}
	return out
}

func (p *FilesPanel) Init() tea.Cmd {
	return nil
}

func (p *FilesPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	prevCursor := p.cursor

	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress {
				// Y is panel-relative; skip the top border
				itemIndex := msg.Y - 1 + p.viewport.YOffset
				if itemIndex >= 0 && itemIndex < len(p.files) {
					p.cursor = itemIndex
					p.ensureCursorVisible()
				}
			}
		case tea.MouseButtonWheelUp:
			p.viewport.LineUp(3)
		case tea.MouseButtonWheelDown:
			p.viewport.LineDown(3)
		}

	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch msg.String() {
		case "ctrl+u", "pgup", "alt+v":
			p.viewport.HalfViewUp()
		case "ctrl+d", "pgdown", "ctrl+v":
			p.viewport.HalfViewDown()
		case "enter":
			return p, p.selectionCmd()
		default:
			if p.navigate(msg.String(), len(p.files)) {
				p.ensureCursorVisible()
			}
		}
	}

	p.refreshViewport()

	if p.cursor != prevCursor {
		return p, p.selectionCmd()
	}
	return p, nil
}

func (p *FilesPanel) selectionCmd() tea.Cmd {
	file := p.SelectedFile()
	if file == nil {
		return nil
	}
	path := file.Path
	return func() tea.Msg {
		return messages.FileSelectedMsg{Path: path}
	}
}

func (p *FilesPanel) refreshViewport() {
	if p.ready {
		p.viewport.SetContent(p.renderContent())
	}
}

func (p *FilesPanel) ensureCursorVisible() {
	if p.cursor < p.viewport.YOffset {
		p.viewport.SetYOffset(p.cursor)
	} else if p.cursor >= p.viewport.YOffset+p.viewport.Height {
		p.viewport.SetYOffset(p.cursor - p.viewport.Height + 1)
	}
}

func (p *FilesPanel) View() string {
	if !p.ready {
		return p.RenderFrame("Loading...")
	}
	return p.RenderFrame(p.viewport.View())
}

// SetSize initializes or resizes the viewport
func (p *FilesPanel) SetSize(width, height int) {
	p.BasePanel.SetSize(width, height)

	contentWidth := p.ContentWidth()
	contentHeight := p.ContentHeight()

	if !p.ready {
		p.viewport = viewport.New(contentWidth, contentHeight)
		p.ready = true
	} else {
		p.viewport.Width = contentWidth
		p.viewport.Height = contentHeight
	}
	p.viewport.SetContent(p.renderContent())
}

func statusStyle(e FileEntry) lipgloss.Style {
	if e.Conflict {
		return theme.ConflictStyle
	}
	switch e.Status {
	case hg.StatusAdded:
		return theme.AddedStyle
	case hg.StatusModified:
		return theme.ModifiedStyle
	case hg.StatusRemoved:
		return theme.RemovedStyle
	case hg.StatusDeleted:
		return theme.MissingStyle
	case hg.StatusCopied:
		return theme.CopiedStyle
	case hg.StatusUnknown, hg.StatusIgnored:
		return theme.UnknownStyle
	}
	return theme.NormalItemStyle
}

func (p *FilesPanel) renderContent() string {
	if p.err != nil {
		return theme.WarningStyle.Render(truncate(p.err.Error(), p.ContentWidth()))
	}
	if len(p.files) == 0 {
		return theme.DimmedStyle.Italic(true).Render("working copy clean")
	}

	var lines []string
	contentWidth := p.ContentWidth()

	for i, file := range p.files {
		letter := file.Status.String()
		if file.Conflict {
			letter = "U"
		}
		status := statusStyle(file).Render(letter)

		path := file.Path
		if file.Before != "" {
			path = file.Before + " → " + file.Path
		}
		if maxPathLen := contentWidth - 3; maxPathLen > 0 {
			path = truncate(path, maxPathLen)
		}

		if i == p.cursor && p.focused {
			path = theme.SelectedItemStyle.Render(path)
		} else {
			path = theme.NormalItemStyle.Render(path)
		}

		lines = append(lines, status+" "+path)
	}

	return strings.Join(lines, "\n")
}

// SelectedFile returns the currently selected file
func (p *FilesPanel) SelectedFile() *FileEntry {
	if p.cursor >= 0 && p.cursor < len(p.files) {
		return &p.files[p.cursor]
	}
	return nil
}

// Files returns the rows in display order.
func (p *FilesPanel) Files() []FileEntry {
	return p.files
}

// Count returns the number of rows, at least one for the placeholder.
func (p *FilesPanel) Count() int {
	return max(len(p.files), 1)
}

// Ensure FilesPanel implements Panel
var _ Panel = (*FilesPanel)(nil)

package panels

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/theme"
)

// Item is one row of a ListPanel.
type Item struct {
	Marker string // one-cell indicator, may be empty
	Text   string
	Detail string // dimmed, right of the text
	Style  lipgloss.Style
}

// ListPanel is a scrolling list whose rows are derived from a snapshot.
type ListPanel struct {
	BasePanel
	build  func(*hg.RepoInfo) []Item
	empty  string
	items  []Item
	offset int
}

func newListPanel(title, shortHelp, empty string, build func(*hg.RepoInfo) []Item) *ListPanel {
	return &ListPanel{
		BasePanel: NewBasePanel(title, shortHelp),
		build:     build,
		empty:     empty,
	}
}

// SetInfo rebuilds the rows from a new snapshot.
func (p *ListPanel) SetInfo(info *hg.RepoInfo) {
	if info == nil {
		p.items = nil
	} else {
		p.items = p.build(info)
	}
	p.clampCursor(len(p.items))
	p.ensureCursorVisible()
}

// Items returns the current rows.
func (p *ListPanel) Items() []Item {
	return p.items
}

// Count returns the number of rows, at least one for the placeholder.
func (p *ListPanel) Count() int {
	return max(len(p.items), 1)
}

// Selected returns the row under the cursor.
func (p *ListPanel) Selected() (Item, bool) {
	if p.cursor >= 0 && p.cursor < len(p.items) {
		return p.items[p.cursor], true
	}
	return Item{}, false
}

func (p *ListPanel) Init() tea.Cmd {
	return nil
}

func (p *ListPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress {
				idx := msg.Y - 1 + p.offset
				if idx >= 0 && idx < len(p.items) {
					p.cursor = idx
				}
			}
		case tea.MouseButtonWheelUp:
			p.CursorUp()
		case tea.MouseButtonWheelDown:
			p.CursorDown(len(p.items))
		}

	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		p.navigate(msg.String(), len(p.items))
	}
	p.ensureCursorVisible()
	return p, nil
}

func (p *ListPanel) ensureCursorVisible() {
	h := p.ContentHeight()
	if h <= 0 {
		return
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	} else if p.cursor >= p.offset+h {
		p.offset = p.cursor - h + 1
	}
}

func (p *ListPanel) View() string {
	return p.RenderFrame(p.renderContent())
}

func (p *ListPanel) renderContent() string {
	if len(p.items) == 0 {
		return theme.DimmedStyle.Italic(true).Render(p.empty)
	}

	contentHeight := p.ContentHeight()
	contentWidth := p.ContentWidth()
	var lines []string
	for i := p.offset; i < len(p.items) && len(lines) < contentHeight; i++ {
		it := p.items[i]
		marker := it.Marker
		if marker == "" {
			marker = " "
		}

		room := contentWidth - 2
		text := truncate(it.Text, room)
		room -= lipgloss.Width(text)
		detail := ""
		if it.Detail != "" && room > 2 {
			detail = " " + theme.DimmedStyle.Render(truncate(it.Detail, room-1))
		}

		if i == p.cursor && p.focused {
			text = theme.SelectedItemStyle.Render(text)
		} else {
			text = it.Style.Render(text)
		}
		lines = append(lines, marker+" "+text+detail)
	}
	return strings.Join(lines, "\n")
}

// Ensure ListPanel implements InfoPanel
var _ InfoPanel = (*ListPanel)(nil)

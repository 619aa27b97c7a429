package panels

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/borders"
)

// Panel defines the interface for all sidebar panels
type Panel interface {
	tea.Model
	Title() string
	ShortHelp() string
	SetFocused(bool)
	IsFocused() bool
	SetSize(width, height int)
}

// InfoPanel is a panel rendered from the repository snapshot.
type InfoPanel interface {
	Panel
	SetInfo(info *hg.RepoInfo)
	Count() int
}

// BasePanel holds the frame, focus and cursor shared by all panels.
type BasePanel struct {
	title     string
	shortHelp string
	focused   bool
	width     int
	height    int
	cursor    int
}

// NewBasePanel creates a new base panel
func NewBasePanel(title, shortHelp string) BasePanel {
	return BasePanel{title: title, shortHelp: shortHelp}
}

func (b *BasePanel) Title() string     { return b.title }
func (b *BasePanel) ShortHelp() string { return b.shortHelp }
func (b *BasePanel) IsFocused() bool   { return b.focused }
func (b *BasePanel) Cursor() int       { return b.cursor }

func (b *BasePanel) SetFocused(focused bool) {
	b.focused = focused
}

func (b *BasePanel) SetSize(width, height int) {
	b.width = width
	b.height = height
}

// ContentHeight is the height inside the frame.
func (b *BasePanel) ContentHeight() int { return b.height - 2 }

// ContentWidth is the width inside the frame.
func (b *BasePanel) ContentWidth() int { return b.width - 2 }

// RenderFrame draws content inside the panel border, title in the top edge.
func (b *BasePanel) RenderFrame(content string) string {
	return borders.RenderTitledBorder(content, b.title, b.width, b.height, b.focused)
}

func (b *BasePanel) CursorUp() {
	if b.cursor > 0 {
		b.cursor--
	}
}

func (b *BasePanel) CursorDown(itemCount int) {
	if b.cursor < itemCount-1 {
		b.cursor++
	}
}

func (b *BasePanel) CursorHome() {
	b.cursor = 0
}

func (b *BasePanel) CursorEnd(itemCount int) {
	if itemCount > 0 {
		b.cursor = itemCount - 1
	}
}

// navigate applies a list movement key (emacs keys with vi aliases) to
// the cursor and reports whether key was one.
func (b *BasePanel) navigate(key string, itemCount int) bool {
	switch key {
	case "up", "k", "ctrl+p":
		b.CursorUp()
	case "down", "j", "ctrl+n":
		b.CursorDown(itemCount)
	case "g", "home", "alt+<":
		b.CursorHome()
	case "G", "end", "alt+>":
		b.CursorEnd(itemCount)
	default:
		return false
	}
	return true
}

// clampCursor keeps the cursor inside a list that may have shrunk.
func (b *BasePanel) clampCursor(itemCount int) {
	b.cursor = max(min(b.cursor, itemCount-1), 0)
}

func truncate(s string, maxLen int) string {
	return borders.Clip(s, maxLen)
}

package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// panelNames label the focus keys 0..5, in panel index order.
var panelNames = [panelCount]string{"diff", "status", "files", "branches", "bookmarks", "queue"}

// KeyMap defines all keybindings for the application
type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Escape key.Binding

	// Panels[i] focuses panel i.
	Panels    [panelCount]key.Binding
	NextPanel key.Binding
	PrevPanel key.Binding

	// Scrolling keys are handled by the panels themselves; these exist
	// for the help screen.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	NextFile key.Binding
	PrevFile key.Binding

	Enter     key.Binding
	ToggleLog key.Binding
	Refresh   key.Binding
	Rescan    key.Binding
}

func binding(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	k := KeyMap{
		Quit:   binding("quit", "q", "ctrl+c"),
		Help:   binding("help", "?"),
		Escape: binding("close", "esc"),

		NextPanel: binding("next panel", "tab"),
		PrevPanel: binding("prev panel", "shift+tab"),

		// emacs-style, with vi keys as aliases
		Up:       key.NewBinding(key.WithKeys("up", "ctrl+p", "k"), key.WithHelp("↑/C-p", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "ctrl+n", "j"), key.WithHelp("↓/C-n", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "alt+v", "ctrl+u"), key.WithHelp("M-v", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+v", "ctrl+d"), key.WithHelp("C-v", "page down")),
		Home:     key.NewBinding(key.WithKeys("home", "alt+<", "g"), key.WithHelp("M-<", "top")),
		End:      key.NewBinding(key.WithKeys("end", "alt+>", "G"), key.WithHelp("M->", "bottom")),
		NextFile: binding("next file", "n", "]"),
		PrevFile: binding("prev file", "p", "["),

		Enter:     binding("show diff", "enter"),
		ToggleLog: binding("log", "l"),
		Refresh:   binding("refresh", "r"),
		Rescan:    binding("rescan ignored", "i"),
	}
	for i, name := range panelNames {
		k.Panels[i] = binding(name, strconv.Itoa(i))
	}
	return k
}

// PanelFor returns the panel a focus key selects, or -1.
func (k KeyMap) PanelFor(msg tea.KeyMsg) int {
	for i, b := range k.Panels {
		if key.Matches(msg, b) {
			return i
		}
	}
	return -1
}

// ShortHelp returns a short help string for the status bar
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns all keybindings for the help screen
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.Panels[:],
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Enter, k.NextFile, k.PrevFile, k.ToggleLog, k.Refresh, k.Rescan},
		{k.NextPanel, k.PrevPanel, k.Escape, k.Help, k.Quit},
	}
}

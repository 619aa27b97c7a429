package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestKeyMap_PanelFor(t *testing.T) {
	keys := DefaultKeyMap()
	tests := []struct {
		key  string
		want int
	}{
		{"0", PanelDiff},
		{"2", PanelFiles},
		{"5", PanelQueue},
		{"6", -1},
		{"x", -1},
	}
	for _, tt := range tests {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)}
		if got := keys.PanelFor(msg); got != tt.want {
			t.Errorf("PanelFor(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestKeyMap_FullHelpCoversPanels(t *testing.T) {
	groups := DefaultKeyMap().FullHelp()
	if len(groups[0]) != panelCount {
		t.Fatalf("first help group has %d keys, want %d", len(groups[0]), panelCount)
	}
	for i, b := range groups[0] {
		if b.Help().Desc != panelNames[i] {
			t.Errorf("panel key %d described as %q, want %q", i, b.Help().Desc, panelNames[i])
		}
	}
}

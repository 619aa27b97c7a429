package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/gerunddev/hgazy/ui/theme"
)

// Overlay is the floating window currently shown, if any.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayLog
	OverlayHelp
	OverlayWarning
)

// HelpBarContext captures the current UI state for help bar rendering
type HelpBarContext struct {
	Overlay      Overlay
	FocusedPanel int
	HasSelection bool   // the focused list has a row under the cursor
	Scanning     bool   // an ignored-file rescan is running
	Spinner      string // current spinner frame, shown while scanning
}

// HelpHint represents a single hint (key + description)
type HelpHint struct {
	Key  string
	Desc string
}

// Format renders a hint as "key desc" in uniform dim color
func (h HelpHint) Format() string {
	return theme.HelpDescStyle.Render(h.Key + " " + h.Desc)
}

// getActionHints returns context-specific action hints (left section)
func getActionHints(ctx HelpBarContext) []HelpHint {
	switch ctx.Overlay {
	case OverlayLog:
		return []HelpHint{{Key: "↵", Desc: "diff"}}
	case OverlayHelp, OverlayWarning:
		return nil
	}
	var hints []HelpHint
	if ctx.FocusedPanel == PanelFiles && ctx.HasSelection {
		hints = append(hints, HelpHint{Key: "↵", Desc: "diff"})
	}
	return append(hints,
		HelpHint{Key: "r", Desc: "refresh"},
		HelpHint{Key: "i", Desc: "rescan"},
	)
}

// getNavigationHints returns context-specific navigation hints (center section)
func getNavigationHints(ctx HelpBarContext) []HelpHint {
	switch ctx.Overlay {
	case OverlayLog:
		return []HelpHint{
			{Key: "↑↓", Desc: "select"},
			{Key: "esc", Desc: "close"},
		}
	case OverlayHelp:
		return []HelpHint{
			{Key: "↑↓", Desc: "scroll"},
			{Key: "esc", Desc: "close"},
		}
	case OverlayWarning:
		return []HelpHint{{Key: "any key", Desc: "dismiss"}}
	}
	switch ctx.FocusedPanel {
	case PanelDiff:
		return []HelpHint{{Key: "↑↓", Desc: "scroll"}}
	case PanelStatus:
		return []HelpHint{{Key: "tab", Desc: "panels"}}
	}
	return []HelpHint{{Key: "↑↓", Desc: "select"}}
}

// getAlwaysHints returns hints that are always shown (right section)
func getAlwaysHints(ctx HelpBarContext) []HelpHint {
	var hints []HelpHint
	if ctx.Scanning {
		hints = append(hints, HelpHint{Key: ctx.Spinner, Desc: "ignored"})
	}
	return append(hints,
		HelpHint{Key: "l", Desc: "log"},
		HelpHint{Key: "?", Desc: "help"},
		HelpHint{Key: "q", Desc: "quit"},
	)
}

// formatHints renders hints separated by two spaces.
func formatHints(hints []HelpHint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, h.Format())
	}
	return strings.Join(parts, "  ")
}

// RenderContextualHelpBar lays out actions on the left, navigation
// centered and the always-on hints flush right.
func RenderContextualHelpBar(ctx HelpBarContext, width int) string {
	left := formatHints(getActionHints(ctx))
	center := formatHints(getNavigationHints(ctx))
	right := formatHints(getAlwaysHints(ctx))
	lw, cw, rw := lipgloss.Width(left), lipgloss.Width(center), lipgloss.Width(right)

	if width-(lw+cw+rw) < 6 {
		return fitBar(left+"  "+center+"  "+right, width)
	}

	// center starts at the midpoint, but never closer than two cells to a neighbor
	start := width/2 - cw/2
	pad := max(start, 0)
	if lw > 0 {
		pad = max(start-lw, 2)
	}
	gap := max(width-rw-(start+cw), 2)

	return fitBar(left+strings.Repeat(" ", pad)+center+strings.Repeat(" ", gap)+right, width)
}

// fitBar keeps the bar on one line of at most width cells.
func fitBar(bar string, width int) string {
	return theme.HelpBarStyle.Render(ansi.Truncate(bar, width, ""))
}

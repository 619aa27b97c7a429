package panels

import (
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/theme"
)

// NewQueuePanel lists the MQ series: applied patches first, in stack
// order, then the unapplied rest of the series.
func NewQueuePanel() *ListPanel {
	return newListPanel("5 Queue", "patches", "no patch queue", queueItems)
}

func queueItems(info *hg.RepoInfo) []Item {
	applied := info.AppliedPatches()
	seen := make(map[string]bool, len(applied))

	var items []Item
	for _, p := range applied {
		seen[p.Name] = true
		items = append(items, Item{
			Marker: theme.WorkingCopyStyle.Render("●"),
			Text:   p.Name,
			Detail: short(p.Hash),
			Style:  theme.NormalItemStyle,
		})
	}
	for _, name := range info.PatchSeries() {
		if seen[name] {
			continue
		}
		items = append(items, Item{
			Marker: theme.DimmedStyle.Render("○"),
			Text:   name,
			Style:  theme.DimmedStyle,
		})
	}
	return items
}

package panels

import (
	"fmt"

	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/theme"
)

// NewBranchesPanel lists named branches with their main head. A branch
// whose heads are all closed is dimmed.
func NewBranchesPanel() *ListPanel {
	return newListPanel("3 Branches", "branches", "no branches", branchItems)
}

func branchItems(info *hg.RepoInfo) []Item {
	closed := make(map[string]bool)
	for _, h := range info.ClosedHeads() {
		closed[h] = true
	}

	var items []Item
	for _, name := range info.BranchNames() {
		heads := info.BranchHeads(name)
		open := 0
		for _, h := range heads {
			if !closed[h] {
				open++
			}
		}

		it := Item{Text: name, Style: theme.BranchStyle}
		if name == info.Branch() {
			it.Marker = theme.WorkingCopyStyle.Render("●")
		}
		if main, ok := info.MainHead(name); ok {
			it.Detail = short(main)
		}
		switch {
		case open == 0:
			it.Style = theme.DimmedStyle
			it.Detail += " closed"
		case len(heads) > 1:
			it.Detail += fmt.Sprintf(" %d heads", len(heads))
		}
		items = append(items, it)
	}
	return items
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

package ui

import "github.com/gerunddev/hgazy/ui/theme"

// stackHeights splits total rows between stacked panels. Each panel asks
// for wants[i] content rows and gets them plus its two border rows, as
// long as every later panel can still have theme.PanelMinHeight rows.
// The last panel takes whatever is left.
func stackHeights(total int, wants []int) []int {
	heights := make([]int, len(wants))
	remaining := total
	for i, want := range wants {
		later := (len(wants) - 1 - i) * theme.PanelMinHeight
		if i == len(wants)-1 {
			heights[i] = max(remaining, theme.PanelMinHeight)
			break
		}
		h := min(max(want, 1)+2, remaining-later)
		h = max(h, theme.PanelMinHeight)
		heights[i] = h
		remaining -= h
	}
	return heights
}

package panels

import (
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/theme"
)

// NewBookmarksPanel lists bookmarks followed by global and local tags.
func NewBookmarksPanel() *ListPanel {
	return newListPanel("4 Bookmarks", "bookmarks, tags", "no bookmarks or tags", refItems)
}

func refItems(info *hg.RepoInfo) []Item {
	var items []Item
	for _, b := range info.Bookmarks() {
		it := Item{Text: b.Name, Detail: short(b.Hash), Style: theme.BookmarkStyle}
		if b.Current {
			it.Marker = theme.WorkingCopyStyle.Render("★")
		}
		items = append(items, it)
	}
	for _, t := range info.Tags() {
		items = append(items, Item{
			Marker: theme.TagStyle.Render("◆"),
			Text:   t.Name,
			Detail: short(t.Hash),
			Style:  theme.TagStyle,
		})
	}
	for _, t := range info.LocalTags() {
		items = append(items, Item{
			Marker: theme.DimmedStyle.Render("◇"),
			Text:   t.Name,
			Detail: short(t.Hash) + " local",
			Style:  theme.TagStyle,
		})
	}
	return items
}

package app

import (
	"github.com/gerunddev/hgazy/hg"
)

// Navigation answers traversal questions over parsed history.
// It keeps the graph logic out of both the UI and the hg package.
type Navigation struct {
	records   []hg.CommitRecord
	byHash    map[string]*hg.CommitRecord // changeset -> record
	children  map[string][]string         // changeset -> child changesets
	bookmarks map[string][]string         // changeset -> bookmark names
	current   string
}

// NewNavigation builds a Navigation from log records and the snapshot
// that supplies bookmarks and the working copy parent. info may be nil.
func NewNavigation(records []hg.CommitRecord, info *hg.RepoInfo) *Navigation {
	n := &Navigation{
		records:   records,
		byHash:    make(map[string]*hg.CommitRecord, len(records)),
		children:  make(map[string][]string),
		bookmarks: make(map[string][]string),
	}

	for i := range records {
		n.byHash[records[i].Changeset()] = &records[i]
	}

	// Children map (reverse of parents). Records come newest first, so
	// iterating backwards keeps children oldest first.
	for i := len(records) - 1; i >= 0; i-- {
		rec := &records[i]
		for _, parent := range rec.ParentHashes() {
			n.children[parent] = append(n.children[parent], rec.Changeset())
		}
	}

	if info != nil {
		for _, b := range info.Bookmarks() {
			n.bookmarks[b.Hash] = append(n.bookmarks[b.Hash], b.Name)
		}
		n.current, _ = info.CurrentRevision()
	}
	return n
}

// Record returns the record of a changeset, nil if it is not loaded.
func (n *Navigation) Record(hash string) *hg.CommitRecord {
	return n.byHash[hash]
}

// Children returns the loaded children of a changeset.
func (n *Navigation) Children(hash string) []string {
	return append([]string(nil), n.children[hash]...)
}

// Bookmarks returns the bookmarks pointing at a changeset.
func (n *Navigation) Bookmarks(hash string) []string {
	return append([]string(nil), n.bookmarks[hash]...)
}

// Heads returns the loaded changesets that have no loaded children, in
// record order.
func (n *Navigation) Heads() []string {
	var heads []string
	for _, rec := range n.records {
		if len(n.children[rec.Changeset()]) == 0 {
			heads = append(heads, rec.Changeset())
		}
	}
	return heads
}

// NearestBookmark returns the closest bookmark to the working copy by
// walking down through its ancestors. Returns empty string if none is
// reachable in the loaded history.
func (n *Navigation) NearestBookmark() string {
	if n.current == "" {
		return ""
	}

	// BFS through ancestors to find first bookmark
	visited := make(map[string]bool)
	queue := []string{n.current}

	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]

		if visited[hash] {
			continue
		}
		visited[hash] = true

		if marks := n.bookmarks[hash]; len(marks) > 0 {
			return marks[0]
		}

		rec := n.byHash[hash]
		if rec == nil {
			continue
		}
		queue = append(queue, rec.ParentHashes()...)
	}

	return ""
}

// BookmarkLineageTip follows first children up from a bookmark's
// changeset and returns the last record before another bookmark starts,
// or the tip of the line if none does.
func (n *Navigation) BookmarkLineageTip(name string) *hg.CommitRecord {
	var start *hg.CommitRecord
	for hash, marks := range n.bookmarks {
		for _, m := range marks {
			if m == name {
				start = n.byHash[hash]
			}
		}
	}
	if start == nil {
		return nil
	}

	current := start
	for {
		kids := n.children[current.Changeset()]
		if len(kids) == 0 {
			return current
		}

		child := n.byHash[kids[0]]
		if child == nil {
			return current
		}
		for _, m := range n.bookmarks[child.Changeset()] {
			if m != name {
				return current
			}
		}
		current = child
	}
}

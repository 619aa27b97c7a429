package hg

import (
	"fmt"
	"sort"
	"strings"

	orderedset "github.com/emirpasic/gods/sets/linkedhashset"
)

// DefaultBranch is the branch name used when .hg/branch is absent.
const DefaultBranch = "default"

// State is the repository's state as projected from on-disk markers.
type State int

const (
	StateNormal State = iota
	StateFresh
	StateMerging
	StateRebasing
	StateGrafting
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateFresh:
		return "fresh"
	case StateMerging:
		return "merging"
	case StateRebasing:
		return "rebasing"
	case StateGrafting:
		return "grafting"
	}
	return "unknown"
}

// RepoInfo is one consistent snapshot of a repository's metadata.
// It is never modified after the reader builds it; every accessor
// returns a copy.
type RepoInfo struct {
	fresh   bool
	branch  string
	current string
	tip     string
	state   State
	order   []string                   // branch names in cache order
	heads   map[string]*orderedset.Set // branch -> head hashes
	closed  *orderedset.Set            // closed head hashes
	marks   []Bookmark
	tags    []HashName
	local   []HashName
	hasSubs bool
	subs    []HashName
	applied []HashName
	series  []string
}

// IsFresh reports whether the repository has no commits.
func (ri *RepoInfo) IsFresh() bool { return ri.fresh }

// Branch returns the working copy's branch name.
func (ri *RepoInfo) Branch() string { return ri.branch }

// CurrentRevision returns the working copy parent hash; ok is false for
// a fresh repository.
func (ri *RepoInfo) CurrentRevision() (hash string, ok bool) {
	return ri.current, ri.current != ""
}

// TipRevision returns the tip hash from the branch cache.
func (ri *RepoInfo) TipRevision() (hash string, ok bool) {
	return ri.tip, ri.tip != ""
}

// State returns the repository state.
func (ri *RepoInfo) State() State { return ri.state }

// BranchNames returns the known branch names in cache order.
func (ri *RepoInfo) BranchNames() []string {
	return append([]string(nil), ri.order...)
}

// Branches returns branch name -> head hashes in insertion order. The
// last hash of each list is the branch's main head.
func (ri *RepoInfo) Branches() map[string][]string {
	out := make(map[string][]string, len(ri.heads))
	for name, set := range ri.heads {
		out[name] = setStrings(set)
	}
	return out
}

// BranchHeads returns the heads of one branch, nil if unknown.
func (ri *RepoInfo) BranchHeads(name string) []string {
	set, ok := ri.heads[name]
	if !ok {
		return nil
	}
	return setStrings(set)
}

// MainHead returns the last head recorded for a branch.
func (ri *RepoInfo) MainHead(name string) (string, bool) {
	heads := ri.BranchHeads(name)
	if len(heads) == 0 {
		return "", false
	}
	return heads[len(heads)-1], true
}

// ClosedHeads returns head hashes the cache marks as closed.
func (ri *RepoInfo) ClosedHeads() []string { return setStrings(ri.closed) }

// Bookmarks returns all bookmarks with the current one flagged.
func (ri *RepoInfo) Bookmarks() []Bookmark {
	return append([]Bookmark(nil), ri.marks...)
}

// CurrentBookmark returns the active bookmark name.
func (ri *RepoInfo) CurrentBookmark() (string, bool) {
	for _, b := range ri.marks {
		if b.Current {
			return b.Name, true
		}
	}
	return "", false
}

// Tags returns global tags from .hgtags.
func (ri *RepoInfo) Tags() []HashName { return append([]HashName(nil), ri.tags...) }

// LocalTags returns tags from .hg/localtags.
func (ri *RepoInfo) LocalTags() []HashName { return append([]HashName(nil), ri.local...) }

// HasSubrepos reports whether the working copy declares subrepositories.
func (ri *RepoInfo) HasSubrepos() bool { return ri.hasSubs }

// Subrepos returns (hash, path) entries from .hgsubstate.
func (ri *RepoInfo) Subrepos() []HashName { return append([]HashName(nil), ri.subs...) }

// AppliedPatches returns MQ patches applied, bottom first.
func (ri *RepoInfo) AppliedPatches() []HashName { return append([]HashName(nil), ri.applied...) }

// PatchSeries returns every MQ patch name in series order.
func (ri *RepoInfo) PatchSeries() []string { return append([]string(nil), ri.series...) }

// Equal reports deep structural equality.
func (ri *RepoInfo) Equal(other *RepoInfo) bool {
	if ri == nil || other == nil {
		return ri == other
	}
	if ri.fresh != other.fresh || ri.branch != other.branch ||
		ri.current != other.current || ri.tip != other.tip ||
		ri.state != other.state || ri.hasSubs != other.hasSubs {
		return false
	}
	if !equalSlices(ri.order, other.order) || !equalSlices(ri.series, other.series) ||
		!equalSlices(setStrings(ri.closed), setStrings(other.closed)) {
		return false
	}
	if len(ri.heads) != len(other.heads) {
		return false
	}
	for name, set := range ri.heads {
		o, ok := other.heads[name]
		if !ok || !equalSlices(setStrings(set), setStrings(o)) {
			return false
		}
	}
	return equalSlices(ri.marks, other.marks) &&
		equalSlices(ri.tags, other.tags) &&
		equalSlices(ri.local, other.local) &&
		equalSlices(ri.subs, other.subs) &&
		equalSlices(ri.applied, other.applied)
}

// Describe renders the snapshot as stable, sorted text lines.
func (ri *RepoInfo) Describe() []string {
	lines := []string{
		"state: " + ri.state.String(),
		"branch: " + ri.branch,
		"current: " + ri.current,
		"tip: " + ri.tip,
	}
	names := append([]string(nil), ri.order...)
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("head %s: %s", name, strings.Join(setStrings(ri.heads[name]), " ")))
	}
	for _, h := range setStrings(ri.closed) {
		lines = append(lines, "closed: "+h)
	}
	for _, b := range ri.marks {
		mark := ""
		if b.Current {
			mark = " *"
		}
		lines = append(lines, fmt.Sprintf("bookmark %s: %s%s", b.Name, b.Hash, mark))
	}
	for _, t := range ri.tags {
		lines = append(lines, fmt.Sprintf("tag %s: %s", t.Name, t.Hash))
	}
	for _, t := range ri.local {
		lines = append(lines, fmt.Sprintf("localtag %s: %s", t.Name, t.Hash))
	}
	if ri.hasSubs {
		lines = append(lines, "subrepos: yes")
	}
	for _, s := range ri.subs {
		lines = append(lines, fmt.Sprintf("subrepo %s: %s", s.Name, s.Hash))
	}
	for _, p := range ri.applied {
		lines = append(lines, fmt.Sprintf("applied %s: %s", p.Name, p.Hash))
	}
	for _, s := range ri.series {
		lines = append(lines, "series: "+s)
	}
	return lines
}

// infoBuilder is the only place a RepoInfo is mutated.
type infoBuilder struct {
	ri *RepoInfo
}

func newInfoBuilder() *infoBuilder {
	return &infoBuilder{ri: &RepoInfo{
		branch: DefaultBranch,
		heads:  make(map[string]*orderedset.Set),
		closed: orderedset.New(),
	}}
}

func (b *infoBuilder) addHead(branch, hash string, closed bool) {
	set, ok := b.ri.heads[branch]
	if !ok {
		set = orderedset.New()
		b.ri.heads[branch] = set
		b.ri.order = append(b.ri.order, branch)
	}
	// Re-adding moves nothing; a head seen again keeps its first position.
	set.Add(hash)
	if closed {
		b.ri.closed.Add(hash)
	}
}

func (b *infoBuilder) setBookmarks(marks []HashName, current string) {
	b.ri.marks = make([]Bookmark, 0, len(marks))
	for _, m := range marks {
		b.ri.marks = append(b.ri.marks, Bookmark{Name: m.Name, Hash: m.Hash, Current: m.Name == current})
	}
}

func (b *infoBuilder) build() *RepoInfo {
	ri := b.ri
	b.ri = nil
	return ri
}

func setStrings(set *orderedset.Set) []string {
	if set == nil {
		return nil
	}
	values := set.Values()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.(string))
	}
	return out
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

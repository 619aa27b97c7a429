// Package graph draws the revision DAG as one column per open line of
// descent, in the style of hg's graphlog.
package graph

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gerunddev/hgazy/hg"
)

// Symbols used for graph rendering
const (
	SymbolWorkingCopy = "@"
	SymbolCommit      = "○"
	SymbolRoot        = "◆"
	SymbolClosed      = "_"
	SymbolVertical    = "│"
	SymbolSpace       = " "
)

// Node is one revision of the graph. IDs are local revision numbers so
// that implicit parents from old log templates still connect.
type Node struct {
	ID        string
	Parents   []string
	IsCurrent bool // parent of the working copy
	IsClosed  bool // head of a closed branch
}

// IsRoot reports whether the node has no parents.
func (n Node) IsRoot() bool { return len(n.Parents) == 0 }

// NodeFor builds the graph node of a log record.
func NodeFor(rec hg.CommitRecord, current string, closed map[string]bool) Node {
	n := Node{
		ID:        rec.Revision.RevisionWithoutMarker(),
		IsCurrent: current != "" && rec.Changeset() == current,
		IsClosed:  closed[rec.Changeset()],
	}
	for _, p := range rec.Revision.Parents {
		n.Parents = append(n.Parents, p.RevisionWithoutMarker())
	}
	return n
}

// GraphLine is the graph prefix of one revision.
type GraphLine struct {
	Prefix string // e.g. "│ @ "
	Column int    // column holding the revision
}

// lanes holds, per column, the ID of the revision that column waits
// for. An empty string is a free column.
type lanes []string

func (l lanes) index(id string) int {
	for i, want := range l {
		if want == id {
			return i
		}
	}
	return -1
}

// slot returns the column for id: the one waiting for it, else the
// first free one, else a new one at the end.
func (l lanes) slot(id string) int {
	if i := l.index(id); i >= 0 {
		return i
	}
	if i := l.index(""); i >= 0 {
		return i
	}
	return len(l)
}

func (l lanes) trim() lanes {
	for len(l) > 0 && l[len(l)-1] == "" {
		l = l[:len(l)-1]
	}
	return l
}

// Renderer generates graph prefixes for a log, newest revision first.
type Renderer struct {
	lanes   lanes
	working lipgloss.Style // working copy parent symbol
	commit  lipgloss.Style // normal and closed commit symbols
	root    lipgloss.Style // root symbol
	line    lipgloss.Style // connecting lines
}

// NewRenderer creates a new graph renderer with the given styles.
func NewRenderer(workingStyle, commitStyle, rootStyle, lineStyle lipgloss.Style) *Renderer {
	return &Renderer{
		working: workingStyle,
		commit:  commitStyle,
		root:    rootStyle,
		line:    lineStyle,
	}
}

// Reset clears the renderer state for a new graph.
func (r *Renderer) Reset() {
	r.lanes = nil
}

// Width returns the number of open columns.
func (r *Renderer) Width() int {
	return len(r.lanes)
}

func (r *Renderer) cell(b *strings.Builder, col int) {
	if col < len(r.lanes) && r.lanes[col] != "" {
		b.WriteString(r.line.Render(SymbolVertical))
	} else {
		b.WriteString(SymbolSpace)
	}
	b.WriteString(SymbolSpace)
}

// Render returns the prefix for rev and advances the open columns to
// its parents.
func (r *Renderer) Render(rev Node) GraphLine {
	column := r.lanes.slot(rev.ID)

	var b strings.Builder
	for i := 0; i < column; i++ {
		r.cell(&b, i)
	}
	b.WriteString(r.symbol(rev))
	b.WriteString(SymbolSpace)
	for i := column + 1; i < len(r.lanes); i++ {
		r.cell(&b, i)
	}

	r.advance(rev, column)
	return GraphLine{Prefix: b.String(), Column: column}
}

func (r *Renderer) symbol(rev Node) string {
	switch {
	case rev.IsCurrent:
		return r.working.Render(SymbolWorkingCopy)
	case rev.IsClosed:
		return r.commit.Render(SymbolClosed)
	case rev.IsRoot():
		return r.root.Render(SymbolRoot)
	}
	return r.commit.Render(SymbolCommit)
}

// RenderConnector returns the line drawn between two revisions.
func (r *Renderer) RenderConnector() string {
	var b strings.Builder
	for i := range r.lanes {
		r.cell(&b, i)
	}
	return b.String()
}

// advance frees rev's column and hands it to the first parent. Other
// parents take free columns. A parent another column already waits for
// gets no second column; the lines join when it is drawn.
func (r *Renderer) advance(rev Node, column int) {
	for len(r.lanes) <= column {
		r.lanes = append(r.lanes, "")
	}
	r.lanes[column] = ""

	for i, parent := range rev.Parents {
		switch {
		case r.lanes.index(parent) >= 0:
		case i == 0:
			r.lanes[column] = parent
		default:
			if free := r.lanes.index(""); free >= 0 {
				r.lanes[free] = parent
			} else {
				r.lanes = append(r.lanes, parent)
			}
		}
	}
	r.lanes = r.lanes.trim()
}

package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/theme"
)

// StatusPanel shows where the working copy is and what the repository
// is in the middle of.
type StatusPanel struct {
	BasePanel
	facts statusFacts
	lines []string
}

// statusFacts is everything the status rows are built from.
type statusFacts struct {
	info     *hg.RepoInfo
	warning  error
	nearest  string
	user     string
	ignored  int
	scanning bool
}

// NewStatusPanel creates a new status panel
func NewStatusPanel() *StatusPanel {
	p := &StatusPanel{
		BasePanel: NewBasePanel("1 Status", "repository"),
	}
	p.rebuild()
	return p
}

// SetInfo replaces the snapshot the panel renders.
func (p *StatusPanel) SetInfo(info *hg.RepoInfo) {
	p.facts.info = info
	p.rebuild()
}

// SetWarning sets the standing version warning, nil to clear it.
func (p *StatusPanel) SetWarning(err error) {
	p.facts.warning = err
	p.rebuild()
}

// SetNearestBookmark shows the bookmark closest to the working copy
// when no bookmark is active.
func (p *StatusPanel) SetNearestBookmark(name string) {
	p.facts.nearest = name
	p.rebuild()
}

// SetIgnored updates the ignored-file count and whether a rescan runs.
func (p *StatusPanel) SetIgnored(count int, scanning bool) {
	p.facts.ignored = count
	p.facts.scanning = scanning
	p.rebuild()
}

// SetUser shows the configured committer, empty to hide the row.
func (p *StatusPanel) SetUser(user string) {
	p.facts.user = user
	p.rebuild()
}

// Lines returns the rendered rows.
func (p *StatusPanel) Lines() []string {
	return p.lines
}

// Count returns the number of rows.
func (p *StatusPanel) Count() int {
	return len(p.lines)
}

func (p *StatusPanel) rebuild() {
	p.lines = statusLines(p.facts)
}

func statusLines(f statusFacts) []string {
	info := f.info
	label := func(s string) string { return theme.DimmedStyle.Render(fmt.Sprintf("%-8s", s)) }

	var lines []string
	if f.warning != nil {
		lines = append(lines, theme.WarningStyle.Render("! "+f.warning.Error()))
	}
	if info == nil {
		return append(lines, theme.DimmedStyle.Render("reading repository..."))
	}
	if info.IsFresh() {
		return append(lines, label("branch")+theme.BranchStyle.Render(info.Branch()),
			theme.DimmedStyle.Italic(true).Render("no commits yet"))
	}

	lines = append(lines, label("branch")+theme.BranchStyle.Render(info.Branch()))

	rev := theme.DimmedStyle.Render("none")
	if h, ok := info.CurrentRevision(); ok {
		rev = theme.RevisionStyle.Render(short(h))
	}
	if b, ok := info.CurrentBookmark(); ok {
		rev += " " + theme.BookmarkStyle.Render("★ "+b)
	} else if f.nearest != "" {
		rev += " " + theme.DimmedStyle.Render("near "+f.nearest)
	}
	lines = append(lines, label("parent")+rev)

	if h, ok := info.TipRevision(); ok {
		lines = append(lines, label("tip")+theme.RevisionStyle.Render(short(h)))
	}
	if s := info.State(); s != hg.StateNormal {
		lines = append(lines, label("state")+theme.StateStyle.Render(s.String()))
	}
	if f.user != "" {
		lines = append(lines, label("user")+theme.NormalItemStyle.Render(f.user))
	}
	if info.HasSubrepos() {
		lines = append(lines, label("subrepos")+theme.NormalItemStyle.Render(fmt.Sprint(len(info.Subrepos()))))
	}

	ign := theme.NormalItemStyle.Render(fmt.Sprint(f.ignored))
	if f.scanning {
		ign += " " + theme.DimmedStyle.Render("scanning")
	}
	return append(lines, label("ignored")+ign)
}

func (p *StatusPanel) Init() tea.Cmd {
	return nil
}

func (p *StatusPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return p, nil
}

func (p *StatusPanel) View() string {
	return p.RenderFrame(strings.Join(p.lines, "\n"))
}

// Ensure StatusPanel implements InfoPanel
var _ InfoPanel = (*StatusPanel)(nil)

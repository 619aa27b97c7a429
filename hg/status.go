package hg

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

// ChangeStatus is the status of one file in a status listing.
type ChangeStatus int

const (
	StatusAdded ChangeStatus = iota
	StatusModified
	StatusRemoved
	StatusDeleted // missing from disk but still tracked ("!")
	StatusUnknown
	StatusIgnored
	StatusCopied
)

func (s ChangeStatus) String() string {
	switch s {
	case StatusAdded:
		return "A"
	case StatusModified:
		return "M"
	case StatusRemoved:
		return "R"
	case StatusDeleted:
		return "!"
	case StatusUnknown:
		return "?"
	case StatusIgnored:
		return "I"
	case StatusCopied:
		return "C"
	}
	return " "
}

// Change is one entry of a status listing. Before is empty for files that
// did not exist before; After is empty for files that no longer exist.
type Change struct {
	Before string
	After  string
	Status ChangeStatus
}

// Path returns the path the change is about: After if set, else Before.
func (c Change) Path() string {
	if c.After != "" {
		return c.After
	}
	return c.Before
}

// statusLine maps a status character to a change status. copyOrigin
// marks the line naming the source of the preceding added file; hg
// prints it with a blank status column, and "C" is accepted as well
// since --clean is never requested.
func statusLine(ch byte) (status ChangeStatus, copyOrigin, ok bool) {
	switch ch {
	case 'A':
		return StatusAdded, false, true
	case 'M':
		return StatusModified, false, true
	case 'R':
		return StatusRemoved, false, true
	case '!':
		return StatusDeleted, false, true
	case '?':
		return StatusUnknown, false, true
	case 'I':
		return StatusIgnored, false, true
	case ' ', 'C':
		return StatusCopied, true, true
	}
	return 0, false, false
}

// ParseStatus parses "hg status" output lines ("<status> <path>").
// A copy-origin line directly after an added file turns that record
// into a copy. Paths are joined to root when root is not empty.
// Malformed lines are logged and skipped.
func ParseStatus(root string, lines []string) []Change {
	var changes []Change
	lastAdded := -1

	resolve := func(p string) string {
		if root == "" {
			return p
		}
		return filepath.Join(root, filepath.FromSlash(p))
	}

	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 || strings.TrimSpace(line) == "" {
			if strings.TrimSpace(line) != "" {
				trace.Warn("skipping short status line", "line", line)
			}
			lastAdded = -1
			continue
		}
		status, copyOrigin, ok := statusLine(line[0])
		if !ok || line[1] != ' ' {
			trace.Warn("skipping unknown status line", "line", trace.Truncate(line, 100))
			lastAdded = -1
			continue
		}
		p := resolve(strings.TrimLeft(line[2:], " "))

		if copyOrigin {
			if lastAdded < 0 {
				trace.Warn("copy origin without added file", "line", trace.Truncate(line, 100))
				continue
			}
			changes[lastAdded].Before = p
			changes[lastAdded].Status = StatusCopied
			lastAdded = -1
			continue
		}

		c := Change{Status: status}
		switch status {
		case StatusRemoved, StatusDeleted:
			c.Before = p
		case StatusModified:
			c.Before, c.After = p, p
		default:
			c.After = p
		}
		changes = append(changes, c)
		if status == StatusAdded {
			lastAdded = len(changes) - 1
		} else {
			lastAdded = -1
		}
	}
	return changes
}

// StatusOptions selects what a status query lists.
type StatusOptions struct {
	Added, Modified, Removed, Deleted, Unknown, Ignored bool
	Copies                                               bool
	Rev1, Rev2                                           string // optional revision range
	Change                                               string // show changes made by one revision
	Paths                                                []string
}

// DefaultStatus lists every change of the working copy, with copies.
var DefaultStatus = StatusOptions{
	Added: true, Modified: true, Removed: true, Deleted: true, Unknown: true, Copies: true,
}

// StatusArgs builds the argument list for a status query.
func StatusArgs(opts StatusOptions) []string {
	args := []string{"status"}
	flag := func(set bool, f string) {
		if set {
			args = append(args, f)
		}
	}
	flag(opts.Added, "--added")
	flag(opts.Modified, "--modified")
	flag(opts.Removed, "--removed")
	flag(opts.Deleted, "--deleted")
	flag(opts.Unknown, "--unknown")
	flag(opts.Ignored, "--ignored")
	flag(opts.Copies, "--copies")
	switch {
	case opts.Change != "":
		args = append(args, "--change", opts.Change)
	case opts.Rev1 != "":
		args = append(args, "--rev", opts.Rev1)
		if opts.Rev2 != "" {
			args = append(args, "--rev", opts.Rev2)
		}
	}
	return append(args, opts.Paths...)
}

// ResolveState is the merge state of one file in "hg resolve --list".
type ResolveState int

const (
	Unresolved ResolveState = iota
	Resolved
)

func (s ResolveState) String() string {
	if s == Resolved {
		return "R"
	}
	return "U"
}

// ParseResolveList parses "<U|R>  <path>" lines into a path -> state map.
func ParseResolveList(root string, lines []string) map[string]ResolveState {
	out := make(map[string]ResolveState)
	for _, line := range lines {
		if len(strings.TrimSpace(line)) < 3 {
			continue
		}
		var state ResolveState
		switch line[0] {
		case 'U':
			state = Unresolved
		case 'R':
			state = Resolved
		default:
			trace.Warn("skipping resolve line", "line", trace.Truncate(line, 100))
			continue
		}
		p := strings.TrimSpace(line[1:])
		if root != "" {
			p = filepath.Join(root, filepath.FromSlash(p))
		}
		out[p] = state
	}
	return out
}

// BranchEntry is one line of "hg branches" output.
type BranchEntry struct {
	Name     string
	Revision Revision
	Closed   bool
	Inactive bool
}

var branchesRe = regexp.MustCompile(`^(.+?)\s+(\d+):([0-9a-fA-F]+)(?:\s+\((inactive|closed)\))?\s*$`)

// ParseBranches parses "hg branches" output.
func ParseBranches(lines []string) []BranchEntry {
	var out []BranchEntry
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := branchesRe.FindStringSubmatch(line)
		if m == nil {
			trace.Warn("skipping branches line", "line", trace.Truncate(line, 100))
			continue
		}
		out = append(out, BranchEntry{
			Name:     m[1],
			Revision: NewRevision(m[2], m[3]),
			Closed:   m[4] == "closed",
			Inactive: m[4] == "inactive",
		})
	}
	return out
}

// ParseShowConfig parses "section.name=value" lines into section -> name -> value.
func ParseShowConfig(lines []string) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			if strings.TrimSpace(line) != "" {
				trace.Warn("skipping config line", "line", trace.Truncate(line, 100))
			}
			continue
		}
		section, name, ok := strings.Cut(strings.TrimSpace(key), ".")
		if !ok || section == "" || name == "" {
			trace.Warn("skipping config key", "key", key)
			continue
		}
		if out[section] == nil {
			out[section] = make(map[string]string)
		}
		out[section][name] = value
	}
	return out
}

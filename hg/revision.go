package hg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// WorkingMarker is appended to the local revision number of a working
// copy that has uncommitted changes ("12+").
const WorkingMarker = "+"

// NullChangeset is the changeset hash of Mercurial's null revision.
const NullChangeset = "0000000000000000000000000000000000000000"

// shortHashLen is the length Mercurial uses for short changeset ids.
const shortHashLen = 12

// Revision identifies a Mercurial changeset by local sequence number and
// hex hash. Revisions are values; nothing mutates one after construction.
type Revision struct {
	Number    string     // local revision, possibly with WorkingMarker; empty if unknown
	Changeset string     // hex hash; empty for a local/working value
	Parents   []Revision // parents as reported by log, may be empty
	Author    string
	Email     string
	Message   string
}

// NewRevision creates a revision from raw revision and changeset strings.
func NewRevision(number, changeset string) Revision {
	return Revision{
		Number:    strings.TrimSpace(number),
		Changeset: strings.TrimSpace(changeset),
	}
}

// NewAuthoredRevision creates a revision carrying commit metadata. The
// author string is split into name and email with ParseAuthor.
func NewAuthoredRevision(number, changeset, author, message string, parents []Revision) Revision {
	r := NewRevision(number, changeset)
	r.Author, r.Email = ParseAuthor(author)
	r.Message = message
	if len(parents) > 0 {
		r.Parents = append([]Revision(nil), parents...)
	}
	return r
}

// ParseRevision is the inverse of Revision.String: "12:abcdef..." or a
// bare changeset.
func ParseRevision(s string) Revision {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ":"); i >= 0 {
		return NewRevision(s[:i], s[i+1:])
	}
	return NewRevision("", s)
}

var emailRe = regexp.MustCompile(`<[^<>@\s]+@[^<>\s]+>`)

// ParseAuthor splits an hg author string into name and email.
//
//	"John Doe <john@example.com>" -> "John Doe", "john@example.com"
//	"john@example.com"            -> "", "john@example.com"
//	"John Doe"                    -> "John Doe", ""
func ParseAuthor(author string) (name, email string) {
	author = strings.TrimSpace(author)
	if emailRe.MatchString(author) {
		i := strings.Index(author, "<")
		name = strings.TrimSpace(author[:i])
		email = strings.TrimSpace(author[i+1:])
		if j := strings.Index(email, ">"); j >= 0 {
			email = email[:j]
		}
		return name, email
	}
	if strings.Contains(author, "@") && !strings.ContainsAny(author, " \t") {
		return "", author
	}
	return author, ""
}

// String returns "{revision}:{changeset}", or the bare changeset when the
// revision number is unknown.
func (r Revision) String() string {
	if r.Number == "" {
		return r.Changeset
	}
	return r.Number + ":" + r.Changeset
}

// IsWorkingCopy reports whether the revision number carries the working marker.
func (r Revision) IsWorkingCopy() bool {
	return strings.HasSuffix(r.Number, WorkingMarker)
}

// RevisionWithoutMarker returns the revision number with the working marker removed.
func (r Revision) RevisionWithoutMarker() string {
	return strings.TrimSuffix(r.Number, WorkingMarker)
}

// LocalIndex returns the numeric local revision. ok is false when the
// number is absent or not numeric.
func (r Revision) LocalIndex() (index int64, ok bool) {
	n := r.RevisionWithoutMarker()
	if n == "" {
		return 0, false
	}
	index, err := strconv.ParseInt(n, 10, 64)
	if err != nil {
		return 0, false
	}
	return index, true
}

func (r Revision) mustLocalIndex() int64 {
	index, ok := r.LocalIndex()
	if !ok {
		panic(fmt.Sprintf("hg: revision %q has no numeric local index", r.Number))
	}
	return index
}

// IsNull reports whether the revision is Mercurial's null revision.
func (r Revision) IsNull() bool {
	return r.Changeset == NullChangeset || r.RevisionWithoutMarker() == "-1"
}

// ShortChangeset returns the first 12 hex digits of the changeset.
func (r Revision) ShortChangeset() string {
	return shortHash(r.Changeset)
}

// Subject returns the first line of the commit message.
func (r Revision) Subject() string {
	subject, _, _ := strings.Cut(r.Message, "\n")
	return strings.TrimRight(subject, "\r")
}

// Compare orders revisions the way Mercurial tools do:
//   - identical changesets are equal;
//   - an empty (local) changeset sorts after any committed one;
//   - otherwise local numbers decide, then the 12-digit short hash, and
//     on a tie a working-copy revision sorts last.
//
// Compare panics if it has to compare numbers and one is not numeric.
func (r Revision) Compare(other Revision) int {
	if r.Changeset == other.Changeset {
		return 0
	}
	if r.Changeset == "" {
		return 1
	}
	if other.Changeset == "" {
		return -1
	}

	a, b := r.mustLocalIndex(), other.mustLocalIndex()
	if a != b {
		if a < b {
			return -1
		}
		return 1
	}

	if c := strings.Compare(shortHash(r.Changeset), shortHash(other.Changeset)); c != 0 {
		return c
	}

	switch {
	case r.IsWorkingCopy() == other.IsWorkingCopy():
		return 0
	case r.IsWorkingCopy():
		return 1
	default:
		return -1
	}
}

// Equal reports whether Compare returns 0.
func (r Revision) Equal(other Revision) bool {
	return r.Compare(other) == 0
}

func shortHash(h string) string {
	if len(h) > shortHashLen {
		return h[:shortHashLen]
	}
	return h
}

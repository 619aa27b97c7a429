package hg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

// Separators embedded in log templates. They are control characters that
// cannot occur in names, paths or commit messages.
const (
	ItemSeparator      = "\u0017"
	ChangesetSeparator = "\u0003"
	FileSeparator      = "\u0001"
)

// Field is one template item of a log record. Fields always appear in
// this order; a template is a prefix of the full list.
type Field int

const (
	FieldRevision Field = iota
	FieldChangeset
	FieldParents
	FieldDate
	FieldAuthor
	FieldMessage
	FieldBranch
	FieldFileAdds
	FieldFileMods
	FieldFileDels
	FieldFileCopies
	fieldCount
)

// minimumFields are required in every record.
const minimumFields = int(FieldAuthor) + 1

// Detail selects how many fields a log query asks for.
type Detail int

const (
	// DetailShort asks for revision, changeset, parents, date, author and message.
	DetailShort Detail = iota
	// DetailBranch adds the branch name.
	DetailBranch
	// DetailFiles adds per-file change lists.
	DetailFiles
)

func (d Detail) fields() int {
	switch d {
	case DetailShort:
		return int(FieldMessage) + 1
	case DetailBranch:
		return int(FieldBranch) + 1
	}
	return int(fieldCount)
}

// LogTemplate builds the --template argument for a log query. Versions
// with {p1rev} get unambiguous parent tokens; older ones fall back to
// {parents}, which is empty for a linear parent.
func LogTemplate(caps Capabilities, detail Detail) string {
	list := func(token string) string {
		if caps.JoinFunction {
			return "{join(" + token + ",'" + FileSeparator + "')}"
		}
		return "{" + token + "}"
	}

	tokens := []string{"{rev}", "{node}"}
	if caps.ParentRevTokens {
		tokens = append(tokens, "{p1rev}:{p1node} {p2rev}:{p2node}")
	} else {
		tokens = append(tokens, "{parents}")
	}
	tokens = append(tokens, "{date|hgdate}", "{author}", "{desc}", "{branch}",
		list("file_adds"), list("file_mods"), list("file_dels"), list("file_copies"))

	return strings.Join(tokens[:detail.fields()], ItemSeparator) + ChangesetSeparator
}

// CommitRecord is one parsed log record.
type CommitRecord struct {
	Revision  Revision
	Branch    string
	Timestamp int64 // milliseconds since the epoch
	Added     []string
	Modified  []string
	Deleted   []string
	Copied    map[string]string // source path -> destination path
}

// Changeset returns the record's full hash.
func (c CommitRecord) Changeset() string { return c.Revision.Changeset }

// ParentHashes returns the changesets of the record's parents. Parents
// synthesized from a local number have an empty hash and are skipped.
func (c CommitRecord) ParentHashes() []string {
	var out []string
	for _, p := range c.Revision.Parents {
		if p.Changeset != "" {
			out = append(out, p.Changeset)
		}
	}
	return out
}

// Time returns the commit time.
func (c CommitRecord) Time() time.Time { return time.UnixMilli(c.Timestamp) }

// Subject returns the first line of the commit message.
func (c CommitRecord) Subject() string { return c.Revision.Subject() }

// ParseLog splits log output produced with LogTemplate into records.
// A malformed record is logged and dropped; the rest are returned.
func ParseLog(output string) []CommitRecord {
	done := trace.OpWithResult("ParseLog", "bytes", len(output))

	var records []CommitRecord
	dropped := 0
	for _, chunk := range strings.Split(output, ChangesetSeparator) {
		chunk = strings.TrimLeft(chunk, "\r\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		rec, err := parseLogRecord(chunk)
		if err != nil {
			dropped++
			trace.Warn("dropping log record", "error", err, "record", trace.Truncate(chunk, 100))
			continue
		}
		records = append(records, rec)
	}

	done(nil, "count", len(records), "dropped", dropped)
	return records
}

func parseLogRecord(chunk string) (CommitRecord, error) {
	items := strings.Split(chunk, ItemSeparator)
	if len(items) < minimumFields {
		return CommitRecord{}, fmt.Errorf("expected at least %d fields, got %d", minimumFields, len(items))
	}
	item := func(f Field) string {
		if int(f) < len(items) {
			return items[f]
		}
		return ""
	}

	number := strings.TrimSpace(item(FieldRevision))
	changeset := strings.TrimSpace(item(FieldChangeset))

	stamp, err := parseHgDate(item(FieldDate))
	if err != nil {
		return CommitRecord{}, err
	}
	parents, err := parseParents(item(FieldParents), number)
	if err != nil {
		return CommitRecord{}, err
	}

	rec := CommitRecord{
		Revision:  NewAuthoredRevision(number, changeset, item(FieldAuthor), item(FieldMessage), parents),
		Branch:    strings.TrimSpace(item(FieldBranch)),
		Timestamp: stamp,
		Added:     splitFiles(item(FieldFileAdds)),
		Modified:  splitFiles(item(FieldFileMods)),
		Deleted:   splitFiles(item(FieldFileDels)),
		Copied:    parseCopies(item(FieldFileCopies)),
	}
	return rec, nil
}

// parseHgDate reads the "{date|hgdate}" field, "<unix seconds> <tz offset>",
// and returns milliseconds.
func parseHgDate(s string) (int64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty date field")
	}
	// hgdate seconds may carry a fraction ("1300000000.0") in old versions.
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("bad date %q: %w", fields[0], err)
	}
	return int64(secs * 1000), nil
}

// parseParents reads "rev:hash rev:hash" pairs. Negative revisions are
// the "no parent" sentinel. An empty field means a single implicit
// parent, revision-1, which is how {parents} reports linear history.
func parseParents(s, number string) ([]Revision, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		n, err := strconv.ParseInt(NewRevision(number, "").RevisionWithoutMarker(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad revision %q: %w", number, err)
		}
		if n <= 0 {
			return nil, nil
		}
		return []Revision{NewRevision(strconv.FormatInt(n-1, 10), "")}, nil
	}

	var parents []Revision
	for _, pair := range strings.Fields(s) {
		rev, hash, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("bad parent %q", pair)
		}
		n, err := strconv.ParseInt(rev, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad parent revision %q: %w", rev, err)
		}
		if n < 0 {
			continue
		}
		parents = append(parents, NewRevision(rev, hash))
	}
	return parents, nil
}

// splitFiles splits a file list field. Joined lists use FileSeparator;
// old versions separate with spaces.
func splitFiles(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	sep := FileSeparator
	if !strings.Contains(s, FileSeparator) {
		sep = " "
	}
	var out []string
	for _, f := range strings.Split(s, sep) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseCopies reads "{file_copies}" entries, each "dest (source)".
func parseCopies(s string) map[string]string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var entries []string
	if strings.Contains(s, FileSeparator) {
		entries = strings.Split(s, FileSeparator)
	} else {
		// Space separated: split after each closing parenthesis.
		entries = strings.SplitAfter(s, ")")
	}

	copies := make(map[string]string)
	for _, e := range entries {
		e = strings.TrimSpace(e)
		open := strings.LastIndex(e, " (")
		if open < 0 || !strings.HasSuffix(e, ")") {
			if e != "" {
				trace.Warn("skipping malformed copy entry", "entry", trace.Truncate(e, 100))
			}
			continue
		}
		dest := strings.TrimSpace(e[:open])
		source := e[open+2 : len(e)-1]
		copies[source] = dest
	}
	if len(copies) == 0 {
		return nil
	}
	return copies
}

// LogArgs builds the argument list of a log query.
func LogArgs(caps Capabilities, detail Detail, limit int, revs ...string) []string {
	args := []string{"log", "--template", LogTemplate(caps, detail)}
	if limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}
	for _, r := range revs {
		args = append(args, "--rev", r)
	}
	return args
}

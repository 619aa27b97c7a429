package hg

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

// MetaDir is the name of Mercurial's metadata directory.
const MetaDir = ".hg"

// Metadata file names relative to MetaDir.
const (
	fileDirstate        = "dirstate"
	fileBranch          = "branch"
	fileBookmarks       = "bookmarks"
	fileCurrentBookmark = "bookmarks.current"
	fileLocalTags       = "localtags"
	fileMQStatus        = "patches/status"
	fileMQSeries        = "patches/series"
	fileMergeMarker     = "merge"
	fileRebaseMarker    = "rebasestate"
	fileGraftMarker     = "graftstate"
	fileConfig          = "hgrc"
)

// Working-copy file names relative to the repository root.
const (
	fileTags         = ".hgtags"
	fileSubrepos     = ".hgsub"
	fileSubrepoState = ".hgsubstate"
	fileIgnore       = ".hgignore"
)

var (
	hashNameRe   = regexp.MustCompile(`^\s*([0-9a-fA-F]{40})[:\s]\s*(.+?)\s*$`)
	hashStatusRe = regexp.MustCompile(`^\s*([0-9a-fA-F]{40})\s+(\w+)\s+(.+?)\s*$`)
	patchRe      = regexp.MustCompile(`^\s*([0-9a-fA-F]{40}):(.+?)\s*$`)
)

// FactError is a failure to read one metadata fact. The fact falls back
// to its default value; other facts are unaffected.
type FactError struct {
	Fact string
	Path string
	Err  error
}

func (e *FactError) Error() string {
	return fmt.Sprintf("read %s (%s): %v", e.Fact, e.Path, e.Err)
}

func (e *FactError) Unwrap() error { return e.Err }

// Reader reads raw facts from a repository's metadata files. It holds no
// state between calls; every method reads the disk again.
type Reader struct {
	fs      billy.Filesystem // rooted at the working copy root
	profile Profile
}

// NewReader creates a reader over fs, which must be rooted at the working
// copy (the directory containing .hg).
func NewReader(fs billy.Filesystem, profile Profile) *Reader {
	return &Reader{fs: fs, profile: profile}
}

// Profile returns the layout profile the reader probes with.
func (r *Reader) Profile() Profile { return r.profile }

func (r *Reader) meta(name string) string {
	return path.Join(MetaDir, name)
}

func (r *Reader) exists(name string) bool {
	_, err := r.fs.Stat(name)
	return err == nil
}

// readFile returns the file content, or found=false when it does not exist.
func (r *Reader) readFile(name string) (data []byte, found bool, err error) {
	data, err = util.ReadFile(r.fs, name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return data, true, nil
}

// IsRepository reports whether the metadata directory exists.
func (r *Reader) IsRepository() bool {
	fi, err := r.fs.Stat(MetaDir)
	return err == nil && fi.IsDir()
}

// IsFresh reports whether the repository has no commits yet.
func (r *Reader) IsFresh() bool {
	return !r.exists(r.meta(r.profile.FreshMarker()))
}

// CurrentRevision returns the hex hash of the working copy's first
// parent, the first 20 bytes of dirstate. It is empty when dirstate is
// missing or points at the null revision.
func (r *Reader) CurrentRevision() (string, error) {
	name := r.meta(fileDirstate)
	f, err := r.fs.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", &FactError{Fact: "current revision", Path: name, Err: err}
	}
	defer f.Close()

	buf := make([]byte, 20)
	if _, err := io.ReadFull(f, buf); err != nil {
		return "", &FactError{Fact: "current revision", Path: name, Err: err}
	}
	hash := hex.EncodeToString(buf)
	if hash == NullChangeset {
		return "", nil
	}
	return hash, nil
}

// CurrentBranch returns the working copy branch, DefaultBranch if unset.
func (r *Reader) CurrentBranch() (string, error) {
	name := r.meta(fileBranch)
	data, found, err := r.readFile(name)
	if err != nil {
		return DefaultBranch, &FactError{Fact: "branch", Path: name, Err: err}
	}
	branch := strings.TrimSpace(string(data))
	if !found || branch == "" {
		return DefaultBranch, nil
	}
	return branch, nil
}

// BranchCache returns the first existing branch-head cache for the
// reader's profile.
func (r *Reader) BranchCache() (BranchCache, bool) {
	for _, c := range r.profile.BranchCaches() {
		if r.exists(r.meta(c.Path)) {
			return c, true
		}
	}
	return BranchCache{}, false
}

// BranchHead is one head line from the branch cache.
type BranchHead struct {
	Branch string
	Hash   string
	Closed bool
}

// BranchHeads parses the branch cache into the tip hash and head lines
// in file order.
func (r *Reader) BranchHeads() (tip string, heads []BranchHead, err error) {
	if r.IsFresh() {
		return "", nil, nil
	}
	cache, ok := r.BranchCache()
	if !ok {
		return "", nil, nil
	}
	name := r.meta(cache.Path)
	data, _, err := r.readFile(name)
	if err != nil {
		return "", nil, &FactError{Fact: "branch heads", Path: name, Err: err}
	}
	tip, heads = parseBranchCache(name, data, cache.StatusColumn)
	return tip, heads, nil
}

func parseBranchCache(name string, data []byte, statusColumn bool) (string, []BranchHead) {
	var tip string
	var heads []BranchHead
	first := true
	for _, line := range lines(data) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if first {
			first = false
			if m := hashNameRe.FindStringSubmatch(line); m != nil {
				tip = strings.ToLower(m[1])
			} else {
				skipLine(name, line)
			}
			continue
		}
		if statusColumn {
			m := hashStatusRe.FindStringSubmatch(line)
			if m == nil {
				skipLine(name, line)
				continue
			}
			heads = append(heads, BranchHead{Branch: m[3], Hash: strings.ToLower(m[1]), Closed: m[2] == "c"})
			continue
		}
		m := hashNameRe.FindStringSubmatch(line)
		if m == nil {
			skipLine(name, line)
			continue
		}
		heads = append(heads, BranchHead{Branch: m[2], Hash: strings.ToLower(m[1])})
	}
	return tip, heads
}

// TipRevision returns the tip hash from the branch cache's first line.
func (r *Reader) TipRevision() (string, error) {
	tip, _, err := r.BranchHeads()
	return tip, err
}

// Bookmarks returns the entries of .hg/bookmarks in file order.
func (r *Reader) Bookmarks() ([]HashName, error) {
	return r.hashNames("bookmarks", r.meta(fileBookmarks))
}

// CurrentBookmark returns the active bookmark name, empty if none.
func (r *Reader) CurrentBookmark() (string, error) {
	name := r.meta(fileCurrentBookmark)
	data, _, err := r.readFile(name)
	if err != nil {
		return "", &FactError{Fact: "current bookmark", Path: name, Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// Tags returns global tags from .hgtags.
func (r *Reader) Tags() ([]HashName, error) {
	entries, err := r.hashNames("tags", fileTags)
	return dedupeTags(entries), err
}

// LocalTags returns tags from .hg/localtags.
func (r *Reader) LocalTags() ([]HashName, error) {
	entries, err := r.hashNames("local tags", r.meta(fileLocalTags))
	return dedupeTags(entries), err
}

// dedupeTags keeps the last entry per name, in first-seen order, and
// drops tags moved to the null changeset.
func dedupeTags(entries []HashName) []HashName {
	if len(entries) == 0 {
		return nil
	}
	index := make(map[string]int, len(entries))
	var out []HashName
	for _, e := range entries {
		if i, ok := index[e.Name]; ok {
			out[i].Hash = e.Hash
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}
	kept := out[:0]
	for _, e := range out {
		if e.Hash != NullChangeset {
			kept = append(kept, e)
		}
	}
	return kept
}

// Subrepos reports whether .hgsub exists and returns .hgsubstate entries.
func (r *Reader) Subrepos() (bool, []HashName, error) {
	has := r.exists(fileSubrepos)
	entries, err := r.hashNames("subrepo state", fileSubrepoState)
	return has || len(entries) > 0, entries, err
}

// AppliedPatches returns the MQ status file entries ("<hash>:<name>").
func (r *Reader) AppliedPatches() ([]HashName, error) {
	name := r.meta(fileMQStatus)
	data, found, err := r.readFile(name)
	if err != nil {
		return nil, &FactError{Fact: "applied patches", Path: name, Err: err}
	}
	if !found {
		return nil, nil
	}
	var out []HashName
	for _, line := range lines(data) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := patchRe.FindStringSubmatch(line)
		if m == nil {
			skipLine(name, line)
			continue
		}
		out = append(out, HashName{Hash: strings.ToLower(m[1]), Name: m[2]})
	}
	return out, nil
}

// PatchSeries returns patch names from the MQ series file, in order,
// with comments and guards removed.
func (r *Reader) PatchSeries() ([]string, error) {
	name := r.meta(fileMQSeries)
	data, found, err := r.readFile(name)
	if err != nil {
		return nil, &FactError{Fact: "patch series", Path: name, Err: err}
	}
	if !found {
		return nil, nil
	}
	var out []string
	for _, line := range lines(data) {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// OperationState checks the marker files in precedence order
// rebase > graft > merge.
func (r *Reader) OperationState() State {
	switch {
	case r.exists(r.meta(fileRebaseMarker)):
		return StateRebasing
	case r.exists(r.meta(fileGraftMarker)):
		return StateGrafting
	case r.exists(r.meta(fileMergeMarker)):
		return StateMerging
	}
	return StateNormal
}

// Read builds a full snapshot. problems lists the facts that could not be
// read; their values fall back to defaults. err is non-nil only when the
// metadata directory is missing at the start or vanishes during the read.
func (r *Reader) Read() (info *RepoInfo, problems []error, err error) {
	if !r.IsRepository() {
		return nil, nil, ErrNotRepository
	}

	note := func(err error) {
		if err != nil {
			trace.Warn("metadata read failed", "error", err)
			problems = append(problems, err)
		}
	}

	b := newInfoBuilder()
	b.ri.fresh = r.IsFresh()

	branch, err := r.CurrentBranch()
	note(err)
	b.ri.branch = branch

	current, err := r.CurrentRevision()
	note(err)
	b.ri.current = current

	if !b.ri.fresh {
		tip, heads, err := r.BranchHeads()
		note(err)
		b.ri.tip = tip
		for _, h := range heads {
			b.addHead(h.Branch, h.Hash, h.Closed)
		}
	}

	marks, err := r.Bookmarks()
	note(err)
	active, err := r.CurrentBookmark()
	note(err)
	if active != "" && !containsName(marks, active) {
		trace.Warn("current bookmark not in bookmarks file", "bookmark", active)
		active = ""
	}
	b.setBookmarks(marks, active)

	b.ri.tags, err = r.Tags()
	note(err)
	b.ri.local, err = r.LocalTags()
	note(err)
	b.ri.hasSubs, b.ri.subs, err = r.Subrepos()
	note(err)
	b.ri.applied, err = r.AppliedPatches()
	note(err)
	b.ri.series, err = r.PatchSeries()
	note(err)

	if b.ri.fresh {
		b.ri.state = StateFresh
	} else {
		b.ri.state = r.OperationState()
	}

	if !r.IsRepository() {
		return nil, problems, fmt.Errorf("%s vanished during read: %w", MetaDir, ErrNotRepository)
	}
	return b.build(), problems, nil
}

func (r *Reader) hashNames(fact, name string) ([]HashName, error) {
	data, found, err := r.readFile(name)
	if err != nil {
		return nil, &FactError{Fact: fact, Path: name, Err: err}
	}
	if !found {
		return nil, nil
	}
	var out []HashName
	for _, line := range lines(data) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := hashNameRe.FindStringSubmatch(line)
		if m == nil {
			skipLine(name, line)
			continue
		}
		out = append(out, HashName{Hash: strings.ToLower(m[1]), Name: m[2]})
	}
	return out, nil
}

func containsName(entries []HashName, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// lines splits a whole file into lines without a length limit. Trailing
// CRs are dropped, as is the empty remainder after a final newline.
func lines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	out := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i, line := range out {
		out[i] = strings.TrimSuffix(line, "\r")
	}
	return out
}

func skipLine(file, line string) {
	trace.Warn("skipping malformed line", "file", file, "line", trace.Truncate(line, 100))
}

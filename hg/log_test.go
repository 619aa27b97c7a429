package hg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fields ...string) string {
	return strings.Join(fields, ItemSeparator) + ChangesetSeparator
}

func TestParseLog_TwoRecords(t *testing.T) {
	out := record("1", hashB, "0:"+hashA+" -1:"+NullChangeset, "1300000000 0",
		"John Doe <john@example.com>", "fix the parser\n\nlonger body", "default") +
		"\n" +
		record("0", hashA, "-1:"+NullChangeset+" -1:"+NullChangeset, "1299999999 -3600",
			"jane@example.com", "initial", "stable")

	records := ParseLog(out)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "1", first.Revision.Number)
	assert.Equal(t, hashB, first.Changeset())
	assert.Equal(t, "fix the parser", first.Subject())
	assert.Equal(t, "fix the parser\n\nlonger body", first.Revision.Message)
	assert.Equal(t, "John Doe", first.Revision.Author)
	assert.Equal(t, "john@example.com", first.Revision.Email)
	assert.Equal(t, "default", first.Branch)
	assert.Equal(t, int64(1300000000000), first.Timestamp)
	assert.Equal(t, []string{hashA}, first.ParentHashes())
	assert.Equal(t, int64(1300000000), first.Time().Unix())

	second := records[1]
	assert.Equal(t, "initial", second.Subject())
	assert.Equal(t, "stable", second.Branch)
	assert.Empty(t, second.Revision.Parents)
	assert.Equal(t, "jane@example.com", second.Revision.Email)
}

func TestParseLog_DropsBadRecord(t *testing.T) {
	out := record("2", hashC, "1:"+hashB+" -1:"+NullChangeset, "1300000002 0", "a", "two") +
		record("1", hashB, "0:"+hashA+" -1:"+NullChangeset, "yesterday", "a", "one") +
		record("nope") +
		record("0", hashA, "-1:"+NullChangeset+" -1:"+NullChangeset, "1300000000 0", "a", "zero")

	records := ParseLog(out)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0].Revision.Number)
	assert.Equal(t, "0", records[1].Revision.Number)
}

func TestParseLog_EmptyOutput(t *testing.T) {
	assert.Empty(t, ParseLog(""))
	assert.Empty(t, ParseLog("\n"))
}

func TestParseLog_ImplicitParents(t *testing.T) {
	out := record("5", hashC, "", "1300000000 0", "a", "linear") +
		record("0", hashA, "", "1300000000 0", "a", "root") +
		record("7", hashB, "3:"+hashA+" 6:"+hashC, "1300000000 0", "a", "merge")

	records := ParseLog(out)
	require.Len(t, records, 3)

	require.Len(t, records[0].Revision.Parents, 1)
	assert.Equal(t, "4", records[0].Revision.Parents[0].Number)
	assert.Empty(t, records[0].ParentHashes())

	assert.Empty(t, records[1].Revision.Parents)

	assert.Equal(t, []string{hashA, hashC}, records[2].ParentHashes())
}

func TestParseLog_Files(t *testing.T) {
	joined := func(items ...string) string { return strings.Join(items, FileSeparator) }
	out := record("3", hashA, "2:"+hashB+" -1:"+NullChangeset, "1300000000.5 0", "a", "files", "default",
		joined("new.txt", "dir/copy.txt"), joined("mod.txt"), "", joined("dir/copy.txt (orig.txt)"))

	records := ParseLog(out)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, int64(1300000000500), rec.Timestamp)
	assert.Equal(t, []string{"new.txt", "dir/copy.txt"}, rec.Added)
	assert.Equal(t, []string{"mod.txt"}, rec.Modified)
	assert.Empty(t, rec.Deleted)
	assert.Equal(t, map[string]string{"orig.txt": "dir/copy.txt"}, rec.Copied)
}

func TestParseLog_SpaceSeparatedFiles(t *testing.T) {
	out := record("3", hashA, "", "1300000000 0", "a", "old hg", "default",
		"a.txt b.txt", "", "gone.txt", "x.txt (y.txt) z.txt (w.txt)")

	records := ParseLog(out)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"a.txt", "b.txt"}, records[0].Added)
	assert.Equal(t, []string{"gone.txt"}, records[0].Deleted)
	assert.Equal(t, map[string]string{"y.txt": "x.txt", "w.txt": "z.txt"}, records[0].Copied)
}

func TestLogTemplate(t *testing.T) {
	modern := CapabilitiesFor(Version{6, 0, 0})
	tpl := LogTemplate(modern, DetailBranch)
	assert.Contains(t, tpl, "{p1rev}:{p1node} {p2rev}:{p2node}")
	assert.Equal(t, 6, strings.Count(tpl, ItemSeparator))
	assert.True(t, strings.HasSuffix(tpl, ChangesetSeparator))
	assert.True(t, strings.HasPrefix(tpl, "{rev}"+ItemSeparator+"{node}"))

	short := LogTemplate(modern, DetailShort)
	assert.Equal(t, 5, strings.Count(short, ItemSeparator))
	assert.NotContains(t, short, "{branch}")

	files := LogTemplate(modern, DetailFiles)
	assert.Contains(t, files, "{join(file_adds,'"+FileSeparator+"')}")
	assert.Equal(t, 10, strings.Count(files, ItemSeparator))

	legacy := CapabilitiesFor(Version{2, 2, 0})
	old := LogTemplate(legacy, DetailFiles)
	assert.Contains(t, old, "{parents}")
	assert.NotContains(t, old, "p1rev")
	assert.Contains(t, old, "{file_adds}")
}

func TestLogArgs(t *testing.T) {
	caps := CapabilitiesFor(Version{6, 0, 0})
	args := LogArgs(caps, DetailShort, 10, "tip", "0")
	assert.Equal(t, []string{
		"log", "--template", LogTemplate(caps, DetailShort),
		"--limit", "10", "--rev", "tip", "--rev", "0",
	}, args)

	assert.Equal(t, []string{"log", "--template", LogTemplate(caps, DetailShort)}, LogArgs(caps, DetailShort, 0))
}

package hg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_CopyMerge(t *testing.T) {
	changes := ParseStatus("", []string{"A newfile.txt", "C oldfile.txt"})
	require.Len(t, changes, 1)
	assert.Equal(t, Change{Before: "oldfile.txt", After: "newfile.txt", Status: StatusCopied}, changes[0])
}

func TestParseStatus_CopyMergeBlankStatus(t *testing.T) {
	changes := ParseStatus("", []string{"A dst.go", "  src.go", "M other.go"})
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Before: "src.go", After: "dst.go", Status: StatusCopied}, changes[0])
	assert.Equal(t, StatusModified, changes[1].Status)
}

func TestParseStatus_OrphanCopy(t *testing.T) {
	changes := ParseStatus("", []string{"C oldfile.txt", "A newfile.txt"})
	require.Len(t, changes, 1)
	assert.Equal(t, Change{After: "newfile.txt", Status: StatusAdded}, changes[0])
}

func TestParseStatus_CopyNeedsAdjacency(t *testing.T) {
	changes := ParseStatus("", []string{"A a.txt", "M b.txt", "C c.txt"})
	require.Len(t, changes, 2)
	assert.Equal(t, StatusAdded, changes[0].Status)
	assert.Empty(t, changes[0].Before)
}

func TestParseStatus_AllStatuses(t *testing.T) {
	lines := []string{
		"M mod.go",
		"A add.go",
		"R rem.go",
		"! gone.go",
		"? new.go",
		"I build/out.o",
		"",
		"X",
		"Z weird.go",
		"A with space.txt",
	}
	changes := ParseStatus("", lines)
	assert.Equal(t, []Change{
		{Before: "mod.go", After: "mod.go", Status: StatusModified},
		{After: "add.go", Status: StatusAdded},
		{Before: "rem.go", Status: StatusRemoved},
		{Before: "gone.go", Status: StatusDeleted},
		{After: "new.go", Status: StatusUnknown},
		{After: "build/out.o", Status: StatusIgnored},
		{After: "with space.txt", Status: StatusAdded},
	}, changes)
}

func TestParseStatus_Root(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo")
	changes := ParseStatus(root, []string{"M dir/file.go"})
	require.Len(t, changes, 1)
	assert.Equal(t, filepath.Join(root, "dir", "file.go"), changes[0].Path())
}

func TestChange_Path(t *testing.T) {
	assert.Equal(t, "b", Change{Before: "a", After: "b"}.Path())
	assert.Equal(t, "a", Change{Before: "a"}.Path())
}

func TestStatusArgs(t *testing.T) {
	tests := []struct {
		name string
		opts StatusOptions
		want []string
	}{
		{
			name: "default",
			opts: DefaultStatus,
			want: []string{"status", "--added", "--modified", "--removed", "--deleted", "--unknown", "--copies"},
		},
		{
			name: "rev pair",
			opts: StatusOptions{Modified: true, Rev1: "1", Rev2: "5"},
			want: []string{"status", "--modified", "--rev", "1", "--rev", "5"},
		},
		{
			name: "single rev",
			opts: StatusOptions{Ignored: true, Rev1: "tip"},
			want: []string{"status", "--ignored", "--rev", "tip"},
		},
		{
			name: "change wins over revs",
			opts: StatusOptions{Copies: true, Change: "3", Rev1: "1", Paths: []string{"src"}},
			want: []string{"status", "--copies", "--change", "3", "src"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusArgs(tt.opts))
		})
	}
}

func TestParseResolveList(t *testing.T) {
	got := ParseResolveList("", []string{
		"U  src/conflict.go",
		"R  docs/done.md",
		"R   extra spaces.txt",
		"",
		"?  what",
	})
	assert.Equal(t, map[string]ResolveState{
		"src/conflict.go":  Unresolved,
		"docs/done.md":     Resolved,
		"extra spaces.txt": Resolved,
	}, got)
}

func TestParseBranches(t *testing.T) {
	got := ParseBranches([]string{
		"default                       12:" + hashA[:12],
		"feature/x                      9:" + hashB[:12] + " (inactive)",
		"old stuff                      3:" + hashC[:12] + " (closed)",
		"garbage",
	})
	require.Len(t, got, 3)
	assert.Equal(t, BranchEntry{Name: "default", Revision: NewRevision("12", hashA[:12])}, got[0])
	assert.Equal(t, "feature/x", got[1].Name)
	assert.True(t, got[1].Inactive)
	assert.Equal(t, "old stuff", got[2].Name)
	assert.True(t, got[2].Closed)
}

func TestParseShowConfig(t *testing.T) {
	got := ParseShowConfig([]string{
		"ui.username=John Doe <john@example.com>",
		"extensions.rebase=",
		"paths.default=https://example.com/repo?a=b",
		"no equals sign",
		"nosection=1",
	})
	assert.Equal(t, map[string]map[string]string{
		"ui":         {"username": "John Doe <john@example.com>"},
		"extensions": {"rebase": ""},
		"paths":      {"default": "https://example.com/repo?a=b"},
	}, got)
}

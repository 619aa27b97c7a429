package interactive

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gerunddev/hgazy/hg"
)

var (
	hashA = strings.Repeat("a", 40)
	hashB = strings.Repeat("b", 40)
	hashC = strings.Repeat("c", 40)
)

func record(number, hash, message string, parents ...hg.Revision) hg.CommitRecord {
	rev := hg.NewRevision(number, hash)
	rev.Message = message
	rev.Parents = parents
	return hg.CommitRecord{Revision: rev, Branch: hg.DefaultBranch}
}

func TestBuildRevisionOptions(t *testing.T) {
	tests := []struct {
		name       string
		records    []hg.CommitRecord
		wantLabels []string
		wantValues []string
	}{
		{
			name: "empty history",
		},
		{
			name:       "no message",
			records:    []hg.CommitRecord{record("0", hashA, "")},
			wantLabels: []string{"0:aaaaaaaaaaaa (no message)"},
			wantValues: []string{hashA},
		},
		{
			name:       "subject only",
			records:    []hg.CommitRecord{record("3", hashB, "Fix the bug\n\nlong body")},
			wantLabels: []string{"3:bbbbbbbbbbbb Fix the bug"},
			wantValues: []string{hashB},
		},
		{
			name: "order preserved",
			records: []hg.CommitRecord{
				record("2", hashC, "third"),
				record("1", hashB, "second"),
				record("0", hashA, "first"),
			},
			wantLabels: []string{"2:cccccccccccc third", "1:bbbbbbbbbbbb second", "0:aaaaaaaaaaaa first"},
			wantValues: []string{hashC, hashB, hashA},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := buildRevisionOptions(tt.records, nil)

			if len(options) != len(tt.wantLabels) {
				t.Fatalf("buildRevisionOptions() returned %d options, want %d", len(options), len(tt.wantLabels))
			}
			for i, opt := range options {
				if opt.Key != tt.wantLabels[i] {
					t.Errorf("option[%d] label = %q, want %q", i, opt.Key, tt.wantLabels[i])
				}
				if opt.Value != tt.wantValues[i] {
					t.Errorf("option[%d] value = %q, want %q", i, opt.Value, tt.wantValues[i])
				}
			}
		})
	}
}

func TestPrintChanges(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo")
	var buf bytes.Buffer
	printChanges(&buf, root, []hg.Change{
		{After: filepath.Join(root, "b.go"), Before: filepath.Join(root, "a.go"), Status: hg.StatusCopied},
		{Before: filepath.Join(root, "dir", "gone.go"), Status: hg.StatusRemoved},
	})

	want := "C b.go (from a.go)\nR dir/gone.go\n"
	if buf.String() != want {
		t.Errorf("printChanges() = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	printChanges(&buf, root, nil)
	if buf.String() != "No changes\n" {
		t.Errorf("printChanges(nil) = %q", buf.String())
	}
}

func TestPrintConflictsSorted(t *testing.T) {
	var buf bytes.Buffer
	printConflicts(&buf, map[string]hg.ResolveState{
		"z.go": hg.Resolved,
		"a.go": hg.Unresolved,
	})

	want := "U a.go\nR z.go\n"
	if buf.String() != want {
		t.Errorf("printConflicts() = %q, want %q", buf.String(), want)
	}
}

package hg

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"
)

const (
	hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccc"
)

// newRepoFS builds an in-memory working copy with an empty .hg directory
// plus the given files.
func newRepoFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll(MetaDir, 0o755))
	for name, content := range files {
		writeFile(t, fs, name, content)
	}
	return fs
}

func writeFile(t *testing.T, fs billy.Filesystem, name, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
}

// dirstate returns dirstate content whose first parent is hash.
func dirstate(hash string) string {
	b := make([]byte, 40)
	for i := 0; i < 20; i++ {
		var v byte
		for _, c := range hash[2*i : 2*i+2] {
			v <<= 4
			switch {
			case c >= '0' && c <= '9':
				v |= byte(c - '0')
			default:
				v |= byte(c-'a') + 10
			}
		}
		b[i] = v
	}
	return string(b)
}

// fakeRunner answers commands by their first argument.
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]*CommandResult
	errs      map[string]error
	calls     [][]string
	dirs      []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: make(map[string]*CommandResult),
		errs:      make(map[string]error),
	}
}

func (f *fakeRunner) on(cmd string, exit int, stdout ...string) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = &CommandResult{ExitCode: exit, Stdout: stdout}
	return f
}

func (f *fakeRunner) onStderr(cmd string, exit int, stderr ...string) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = &CommandResult{ExitCode: exit, Stderr: stderr}
	return f
}

func (f *fakeRunner) onRaw(cmd, raw string) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = &CommandResult{Stdout: splitOutput(raw), Raw: raw}
	return f
}

func (f *fakeRunner) Run(_ context.Context, dir string, args ...string) (*CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.dirs = append(f.dirs, dir)
	if len(args) == 0 {
		return &CommandResult{}, nil
	}
	if err := f.errs[args[0]]; err != nil {
		return nil, err
	}
	res, ok := f.responses[args[0]]
	if !ok {
		return &CommandResult{Args: args}, nil
	}
	out := *res
	out.Args = args
	return &out, nil
}

func (f *fakeRunner) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) > 0 && c[0] == cmd {
			n++
		}
	}
	return n
}

func (f *fakeRunner) last(cmd string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if len(f.calls[i]) > 0 && f.calls[i][0] == cmd {
			return f.calls[i]
		}
	}
	return nil
}

func joinLines(lines ...string) string { return strings.Join(lines, "\n") + "\n" }

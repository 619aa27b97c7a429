package hg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

// DefaultExecutable is the hg binary looked up on PATH.
const DefaultExecutable = "hg"

// CommandResult is the outcome of one hg invocation.
type CommandResult struct {
	Args     []string
	ExitCode int
	Stdout   []string
	Stderr   []string
	// Raw is stdout exactly as written, line endings included. Runners
	// that only produce lines may leave it empty.
	Raw string
}

// Output returns stdout joined back into one string.
func (r *CommandResult) Output() string { return strings.Join(r.Stdout, "\n") }

// Text returns Raw when the runner kept it and Output otherwise.
func (r *CommandResult) Text() string {
	if r.Raw != "" {
		return r.Raw
	}
	return r.Output()
}

// Failure returns a *CommandError if the command exited non-zero.
func (r *CommandResult) Failure() error {
	if r.ExitCode == 0 {
		return nil
	}
	hard := false
	for _, l := range r.Stderr {
		if strings.HasPrefix(l, "abort:") {
			hard = true
			break
		}
	}
	return &CommandError{
		Args:     r.Args,
		ExitCode: r.ExitCode,
		Stderr:   strings.Join(r.Stderr, "\n"),
		Hard:     hard,
	}
}

// CommandError is a non-zero exit of hg. Hard is set when hg aborted.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Hard     bool
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("hg %s: exit status %d", shellquote.Join(e.Args...), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + firstLine(e.Stderr)
	}
	return msg
}

// Runner runs hg commands in a directory.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (*CommandResult, error)
}

// ExecRunner runs the hg executable as a child process. A non-zero exit
// is reported through CommandResult.ExitCode; the error is reserved for
// failures to run the process at all.
type ExecRunner struct {
	Executable string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) (*CommandResult, error) {
	exe := r.Executable
	if exe == "" {
		exe = DefaultExecutable
	}
	done := trace.OpWithResult("hg", "cmd", shellquote.Join(append([]string{exe}, args...)...), "dir", dir)

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HGPLAIN=1", "HGENCODING=UTF-8")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &CommandResult{
		Args:   args,
		Stdout: splitOutput(stdout.String()),
		Raw:    stdout.String(),
		Stderr: splitOutput(stderr.String()),
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		err = nil
	}
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to run %s: %w", exe, err)
	}
	done(nil, "exit", res.ExitCode, "lines", len(res.Stdout))
	return res, nil
}

func splitOutput(s string) []string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// Client issues queries against one repository and parses the answers.
type Client struct {
	runner Runner
	root   string
	caps   Capabilities
}

// NewClient returns a client for the repository at root.
func NewClient(runner Runner, root string, caps Capabilities) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Client{runner: runner, root: root, caps: caps}
}

// Capabilities returns the capabilities the client builds commands for.
func (c *Client) Capabilities() Capabilities { return c.caps }

// Root returns the repository root.
func (c *Client) Root() string { return c.root }

func (c *Client) run(ctx context.Context, args ...string) (*CommandResult, error) {
	res, err := c.runner.Run(ctx, c.root, args...)
	if err != nil {
		return nil, err
	}
	if err := res.Failure(); err != nil {
		return res, err
	}
	return res, nil
}

// DetectVersion runs "hg version" and parses its first line.
func DetectVersion(ctx context.Context, runner Runner, dir string) (Version, error) {
	res, err := runner.Run(ctx, dir, "version", "--quiet")
	if err != nil {
		return Version{}, err
	}
	if err := res.Failure(); err != nil {
		return Version{}, err
	}
	return ParseVersion(res.Output())
}

// Log runs a log query and parses the records. Messages keep their line
// endings.
func (c *Client) Log(ctx context.Context, detail Detail, limit int, revs ...string) ([]CommitRecord, error) {
	res, err := c.run(ctx, LogArgs(c.caps, detail, limit, revs...)...)
	if err != nil {
		return nil, err
	}
	return ParseLog(res.Text()), nil
}

// Status runs a status query. Paths in the result are absolute.
func (c *Client) Status(ctx context.Context, opts StatusOptions) ([]Change, error) {
	res, err := c.run(ctx, StatusArgs(opts)...)
	if err != nil {
		return nil, err
	}
	return ParseStatus(c.root, res.Stdout), nil
}

// Resolve lists the merge state of conflicted files. Outside a merge
// the list is empty.
func (c *Client) Resolve(ctx context.Context) (map[string]ResolveState, error) {
	res, err := c.run(ctx, "resolve", "--list")
	if err != nil {
		return nil, err
	}
	return ParseResolveList(c.root, res.Stdout), nil
}

// Branches lists named branches, including closed ones when closed is set.
func (c *Client) Branches(ctx context.Context, closed bool) ([]BranchEntry, error) {
	args := []string{"branches"}
	if closed {
		args = append(args, "--closed")
	}
	res, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return ParseBranches(res.Stdout), nil
}

// OpenedBranches returns the names of branches that are not closed.
func (c *Client) OpenedBranches(ctx context.Context) ([]string, error) {
	entries, err := c.Branches(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Closed {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// ShowConfig returns the effective configuration as section -> name -> value.
func (c *Client) ShowConfig(ctx context.Context) (map[string]map[string]string, error) {
	res, err := c.run(ctx, "showconfig")
	if err != nil {
		return nil, err
	}
	return ParseShowConfig(res.Stdout), nil
}

// Ignored lists the paths hg ignores, relative to the root.
func (c *Client) Ignored(ctx context.Context) ([]string, error) {
	res, err := c.run(ctx, "status", "--ignored", "--no-status")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range res.Stdout {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// DiffArgs builds a git-style diff query. An empty change diffs the
// working copy against its parent; paths are relative to the root.
func DiffArgs(change string, paths ...string) []string {
	args := []string{"diff", "--git"}
	if change != "" {
		args = append(args, "--change", change)
	}
	return append(args, paths...)
}

// Diff returns the diff of one revision, or of the working copy when
// change is empty.
func (c *Client) Diff(ctx context.Context, change string, paths ...string) (string, error) {
	res, err := c.run(ctx, DiffArgs(change, paths...)...)
	if err != nil {
		return "", err
	}
	return res.Output(), nil
}

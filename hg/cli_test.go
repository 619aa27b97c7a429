package hg

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandResult_Failure(t *testing.T) {
	ok := &CommandResult{Args: []string{"status"}}
	assert.NoError(t, ok.Failure())

	soft := &CommandResult{Args: []string{"rebase"}, ExitCode: 1, Stderr: []string{"nothing to rebase"}}
	var cmdErr *CommandError
	require.ErrorAs(t, soft.Failure(), &cmdErr)
	assert.False(t, cmdErr.Hard)
	assert.Equal(t, 1, cmdErr.ExitCode)

	hard := &CommandResult{
		Args:     []string{"log", "-r", "bogus rev"},
		ExitCode: 255,
		Stderr:   []string{"abort: unknown revision 'bogus rev'!", "(hint)"},
	}
	require.ErrorAs(t, hard.Failure(), &cmdErr)
	assert.True(t, cmdErr.Hard)
	assert.Contains(t, cmdErr.Error(), "hg log -r ")
	assert.Contains(t, cmdErr.Error(), "exit status 255: abort: unknown revision")
}

func TestDetectVersion(t *testing.T) {
	runner := newFakeRunner().on("version", 0, "Mercurial Distributed SCM (version 5.9.3)")
	v, err := DetectVersion(context.Background(), runner, "/repo")
	require.NoError(t, err)
	assert.Equal(t, Version{5, 9, 3}, v)
	assert.Equal(t, []string{"/repo"}, runner.dirs)

	failing := newFakeRunner().onStderr("version", 255, "abort: broken install")
	_, err = DetectVersion(context.Background(), failing, "/repo")
	var cmdErr *CommandError
	assert.ErrorAs(t, err, &cmdErr)
}

func TestClient_Log(t *testing.T) {
	caps := CapabilitiesFor(Version{6, 0, 0})
	runner := newFakeRunner().on("log", 0,
		"0"+ItemSeparator+hashA+ItemSeparator+"-1:"+NullChangeset+" -1:"+NullChangeset+
			ItemSeparator+"1300000000 0"+ItemSeparator+"me"+ItemSeparator+"first"+ItemSeparator+"default"+ChangesetSeparator)
	c := NewClient(runner, "/repo", caps)

	records, err := c.Log(context.Background(), DetailBranch, 5, "tip")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Subject())
	assert.Equal(t, LogArgs(caps, DetailBranch, 5, "tip"), runner.last("log"))
}

func TestClient_LogKeepsLineEndings(t *testing.T) {
	message := "first line\r\n\r\nbody\r\n"
	runner := newFakeRunner().onRaw("log",
		"0"+ItemSeparator+hashA+ItemSeparator+"-1:"+NullChangeset+" -1:"+NullChangeset+
			ItemSeparator+"1300000000 0"+ItemSeparator+"me"+ItemSeparator+message+ItemSeparator+"default"+ChangesetSeparator+"\r\n")
	c := NewClient(runner, "/repo", CapabilitiesFor(Version{6, 0, 0}))

	records, err := c.Log(context.Background(), DetailBranch, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, message, records[0].Revision.Message)
	assert.Equal(t, "first line", records[0].Subject())
	assert.Equal(t, "default", records[0].Branch)
}

func TestClient_LogFailure(t *testing.T) {
	runner := newFakeRunner().onStderr("log", 255, "abort: unknown revision 'x'!")
	c := NewClient(runner, "/repo", CapabilitiesFor(Version{}))

	_, err := c.Log(context.Background(), DetailShort, 0, "x")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.True(t, cmdErr.Hard)
}

func TestClient_RunnerError(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["status"] = errors.New("exec: not found")
	c := NewClient(runner, "/repo", CapabilitiesFor(Version{}))

	_, err := c.Status(context.Background(), DefaultStatus)
	assert.EqualError(t, err, "exec: not found")
}

func TestClient_Status(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "repo")
	runner := newFakeRunner().on("status", 0, "A b.txt", "  a.txt", "? junk")
	c := NewClient(runner, root, CapabilitiesFor(Version{}))

	changes, err := c.Status(context.Background(), DefaultStatus)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, StatusCopied, changes[0].Status)
	assert.Equal(t, filepath.Join(root, "a.txt"), changes[0].Before)
	assert.Equal(t, filepath.Join(root, "b.txt"), changes[0].After)
	assert.Equal(t, StatusArgs(DefaultStatus), runner.last("status"))
}

func TestClient_OpenedBranches(t *testing.T) {
	runner := newFakeRunner().on("branches", 0,
		"default   4:"+hashA[:12],
		"dormant   2:"+hashB[:12]+" (inactive)",
		"done      1:"+hashC[:12]+" (closed)",
	)
	c := NewClient(runner, "/repo", CapabilitiesFor(Version{}))

	names, err := c.OpenedBranches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "dormant"}, names)
	assert.Equal(t, []string{"branches"}, runner.last("branches"))

	_, err = c.Branches(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"branches", "--closed"}, runner.last("branches"))
}

func TestClient_ResolveAndConfig(t *testing.T) {
	runner := newFakeRunner().
		on("resolve", 0, "U  x.go").
		on("showconfig", 0, "ui.username=me")
	c := NewClient(runner, "", CapabilitiesFor(Version{}))

	states, err := c.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]ResolveState{"x.go": Unresolved}, states)

	cfg, err := c.ShowConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me", cfg["ui"]["username"])
}

func TestClient_Ignored(t *testing.T) {
	runner := newFakeRunner().on("status", 0, "build/a.o", "", "  tmp/x  ")
	c := NewClient(runner, "/repo", CapabilitiesFor(Version{}))

	paths, err := c.Ignored(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"build/a.o", "tmp/x"}, paths)
	assert.Equal(t, []string{"status", "--ignored", "--no-status"}, runner.last("status"))
}

func TestClient_Diff(t *testing.T) {
	runner := newFakeRunner().on("diff", 0, "diff --git a/x b/x", "+new")
	c := NewClient(runner, "/repo", CapabilitiesFor(Version{}))

	out, err := c.Diff(context.Background(), "", "x")
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/x b/x\n+new", out)
	assert.Equal(t, []string{"diff", "--git", "x"}, runner.last("diff"))

	_, err = c.Diff(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"diff", "--git", "--change", "3"}, runner.last("diff"))
}

func TestExecRunner_MissingExecutable(t *testing.T) {
	r := ExecRunner{Executable: filepath.Join(t.TempDir(), "no-such-hg")}
	_, err := r.Run(context.Background(), t.TempDir(), "version")
	assert.Error(t, err)
}

func TestExecRunner_KeepsRawOutput(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("sh not available: %v", err)
	}
	res, err := ExecRunner{Executable: sh}.Run(context.Background(), t.TempDir(), "-c", `printf 'a\r\nb\r\n'`)
	require.NoError(t, err)
	assert.Equal(t, "a\r\nb\r\n", res.Raw)
	assert.Equal(t, []string{"a", "b"}, res.Stdout)
	assert.Equal(t, res.Raw, res.Text())
}

func TestExecRunner_Version(t *testing.T) {
	if _, err := exec.LookPath(DefaultExecutable); err != nil {
		t.Skipf("hg not available: %v", err)
	}
	v, err := DetectVersion(context.Background(), ExecRunner{}, t.TempDir())
	require.NoError(t, err)
	assert.True(t, v.AtLeast(Version{Major: 1}))
}

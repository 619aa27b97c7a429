package hg

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []EventKind
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev.Kind)
	l.mu.Unlock()
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, k := range l.events {
		if k == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]EventKind(nil), l.events...)
}

func baseRepoFiles() map[string]string {
	return map[string]string{
		".hg/cache/branch2-served": joinLines(hashB+" 1", hashA+" o default", hashB+" o feature"),
		".hg/dirstate":             dirstate(hashB),
		".hg/branch":               "feature\n",
	}
}

func openTestRepo(t *testing.T, fs billy.Filesystem, runner *fakeRunner) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), Options{
		Root:         testRoot,
		Filesystem:   fs,
		Runner:       runner,
		Version:      Version{6, 5, 0},
		RefreshDelay: quiet,
		RescanDelay:  quiet,
	})
	require.NoError(t, err)
	t.Cleanup(repo.Dispose)
	return repo
}

func TestOpen_ReadsFirstSnapshot(t *testing.T) {
	runner := newFakeRunner().on("branches", 0, "feature  1:"+hashB[:12], "default  0:"+hashA[:12])
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), runner)

	info := repo.Info()
	require.NotNil(t, info)
	assert.Equal(t, "feature", info.Branch())
	assert.Equal(t, StateNormal, repo.State())
	assert.Equal(t, []string{"feature", "default"}, repo.OpenedBranches())
	assert.NoError(t, repo.VersionWarning())
	assert.Equal(t, ProfileModern, repo.Capabilities().Profile)
	assert.Equal(t, 0, runner.count("version"), "explicit version skips detection")
}

func TestOpen_NotRepository(t *testing.T) {
	_, err := Open(context.Background(), Options{
		Root:       testRoot,
		Filesystem: memfs.New(),
		Runner:     newFakeRunner(),
		Version:    Version{6, 5, 0},
	})
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestOpen_DetectsVersion(t *testing.T) {
	runner := newFakeRunner().on("version", 0, "Mercurial Distributed SCM (version 1.8.2)")
	repo, err := Open(context.Background(), Options{
		Root:       testRoot,
		Filesystem: newRepoFS(t, map[string]string{".hg/branchheads.cache": joinLines(hashA + " 0")}),
		Runner:     runner,
	})
	require.NoError(t, err)
	defer repo.Dispose()

	assert.ErrorIs(t, repo.VersionWarning(), ErrUnsupportedVersion)
	assert.Equal(t, ProfileLegacy, repo.Capabilities().Profile)
	assert.Equal(t, 1, runner.count("version"))

	// The warning is standing state; operations keep working.
	_, err = repo.Refresh(context.Background())
	assert.NoError(t, err)
}

func TestRefresh_Idempotent(t *testing.T) {
	fs := newRepoFS(t, baseRepoFiles())
	repo := openTestRepo(t, fs, newFakeRunner())

	var log eventLog
	repo.Subscribe(log.record)

	changed, err := repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	changed, err = repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	writeFile(t, fs, ".hg/bookmarks", joinLines(hashB+" wip"))
	changed, err = repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Eventually(t, func() bool { return log.count(EventChanged) == 1 }, waitFor, tick)
	time.Sleep(settle)
	assert.Equal(t, 1, log.count(EventChanged))
	assert.Len(t, repo.Info().Bookmarks(), 1)
}

func TestRefresh_StateTransitions(t *testing.T) {
	fs := newRepoFS(t, baseRepoFiles())
	repo := openTestRepo(t, fs, newFakeRunner())
	assert.Equal(t, StateNormal, repo.State())

	writeFile(t, fs, ".hg/merge", "")
	_, err := repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateMerging, repo.State())

	writeFile(t, fs, ".hg/rebasestate", "")
	_, err = repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRebasing, repo.State())

	require.NoError(t, fs.Remove(".hg/rebasestate"))
	require.NoError(t, fs.Remove(".hg/merge"))
	_, err = repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNormal, repo.State())
}

func TestRefresh_OpenedBranchesFallback(t *testing.T) {
	runner := newFakeRunner().onStderr("branches", 255, "abort: repository is locked")
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), runner)
	assert.Equal(t, []string{"default", "feature"}, repo.OpenedBranches())
}

func TestRefresh_OpenedBranchesOnlyOnChange(t *testing.T) {
	runner := newFakeRunner()
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), runner)
	require.Equal(t, 1, runner.count("branches"))

	_, err := repo.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, runner.count("branches"))
}

func TestRefresh_MissingMetadataDir(t *testing.T) {
	fs := newRepoFS(t, baseRepoFiles())
	repo := openTestRepo(t, fs, newFakeRunner())
	before := repo.Info()

	for _, name := range []string{".hg/cache/branch2-served", ".hg/dirstate", ".hg/branch", ".hg/cache", ".hg"} {
		require.NoError(t, fs.Remove(name))
	}
	_, err := repo.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotRepository)
	assert.Same(t, before, repo.Info(), "a failed refresh keeps the old snapshot")
}

func TestNotifyChanged_SchedulesRefresh(t *testing.T) {
	fs := newRepoFS(t, baseRepoFiles())
	repo := openTestRepo(t, fs, newFakeRunner())

	var log eventLog
	repo.Subscribe(log.record)

	writeFile(t, fs, ".hg/bookmarks", joinLines(hashA+" one"))
	for i := 0; i < 10; i++ {
		repo.NotifyChanged(filepath.Join(testRoot, ".hg", "bookmarks"), ".hg/dirstate")
	}
	assert.Eventually(t, func() bool { return log.count(EventChanged) == 1 }, waitFor, tick)
	time.Sleep(settle)
	assert.Equal(t, 1, log.count(EventChanged))
}

func TestOpen_LoadsConfig(t *testing.T) {
	runner := newFakeRunner().on("showconfig", 0, "ui.username=Jane <j@x>", "extensions.mq=")
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), runner)

	var log eventLog
	repo.Subscribe(log.record)

	v, ok := repo.ConfigValue("ui", "username")
	assert.True(t, ok)
	assert.Equal(t, "Jane <j@x>", v)
	assert.Contains(t, repo.Config(), "extensions")
	assert.Equal(t, 1, runner.count("showconfig"))

	time.Sleep(settle)
	assert.Empty(t, log.kinds(), "the first load publishes nothing")
}

func TestOpen_ConfigFailureIsNotFatal(t *testing.T) {
	runner := newFakeRunner().onStderr("showconfig", 255, "abort: broken hgrc")
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), runner)
	assert.Nil(t, repo.Config())
}

func TestNotifyChanged_ConfigChannel(t *testing.T) {
	runner := newFakeRunner().on("showconfig", 0, "ui.username=me", "extensions.mq=")
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), runner)

	var log eventLog
	repo.Subscribe(log.record)
	runner.on("showconfig", 0, "ui.username=you", "extensions.mq=")
	repo.NotifyChanged(".hg/hgrc")

	assert.Eventually(t, func() bool { return log.count(EventConfigChanged) == 1 }, waitFor, tick)
	v, ok := repo.ConfigValue("ui", "username")
	assert.True(t, ok)
	assert.Equal(t, "you", v)
	assert.Equal(t, 0, log.count(EventChanged), "config changes do not refresh metadata")

	require.NoError(t, repo.ReloadConfig(context.Background()))
	time.Sleep(settle)
	assert.Equal(t, 1, log.count(EventConfigChanged), "unchanged config publishes nothing")

	cfg := repo.Config()
	cfg["ui"]["username"] = "mutated"
	v, _ = repo.ConfigValue("ui", "username")
	assert.Equal(t, "you", v)
}

func TestNotifyChanged_IgnoreRescan(t *testing.T) {
	runner := newFakeRunner().on("status", 0, "build/out.o")
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), runner)

	var log eventLog
	repo.Subscribe(log.record)
	repo.NotifyChanged(".hgignore")

	assert.Eventually(t, func() bool { return log.count(EventIgnoredFinished) == 1 }, waitFor, tick)
	assert.Equal(t, []EventKind{EventIgnoredStarted, EventIgnoredFinished}, log.kinds())
	assert.True(t, repo.Ignored().Contains("build/out.o"))
}

func TestRepository_Classify(t *testing.T) {
	repo := openTestRepo(t, newRepoFS(t, baseRepoFiles()), newFakeRunner())
	tests := []struct {
		path string
		want ChangeKind
	}{
		{".hg/dirstate", ChangeMetadata},
		{".hg/bookmarks", ChangeMetadata},
		{".hg/cache/branch2-served", ChangeMetadata},
		{filepath.Join(testRoot, ".hg", "merge"), ChangeMetadata},
		{".hg/hgrc", ChangeConfig},
		{".hgignore", ChangeIgnore},
		{".hgtags", ChangeMetadata},
		{".hgsubstate", ChangeMetadata},
		{".hg/wlock", ChangeNone},
		{"src/main.go", ChangeNone},
		{"sub/.hgignore", ChangeNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repo.Classify(tt.path), tt.path)
	}
}

func TestRepository_Dispose(t *testing.T) {
	fs := newRepoFS(t, baseRepoFiles())
	repo := openTestRepo(t, fs, newFakeRunner())

	var log eventLog
	repo.Subscribe(log.record)
	repo.Dispose()
	repo.Dispose()
	assert.True(t, repo.Disposed())

	writeFile(t, fs, ".hg/bookmarks", joinLines(hashA+" one"))
	_, err := repo.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, repo.ReloadConfig(context.Background()), ErrDisposed)

	repo.NotifyChanged(".hg/bookmarks")
	time.Sleep(settle)
	assert.Empty(t, log.kinds())
	assert.Empty(t, repo.Info().Bookmarks(), "snapshot stays as it was")
}

func TestRepository_SharedScheduler(t *testing.T) {
	sched := NewScheduler(quiet, quiet, 2)
	defer sched.Close()

	open := func() *Repository {
		repo, err := Open(context.Background(), Options{
			Root:       testRoot,
			Filesystem: newRepoFS(t, baseRepoFiles()),
			Runner:     newFakeRunner(),
			Version:    Version{6, 5, 0},
			Scheduler:  sched,
		})
		require.NoError(t, err)
		return repo
	}
	a := open()
	a.Dispose()

	b := open()
	defer b.Dispose()
	var log eventLog
	b.Subscribe(log.record)
	b.Ignored().Add("x")
	b.ScheduleRescan()
	assert.Eventually(t, func() bool { return log.count(EventIgnoredFinished) == 1 }, waitFor, tick)
}

// hookFS calls hook before opening one path.
type hookFS struct {
	billy.Filesystem
	path string
	hook func()
}

func (f *hookFS) Open(name string) (billy.File, error) {
	if name == f.path && f.hook != nil {
		f.hook()
	}
	return f.Filesystem.Open(name)
}

func TestRepository_DisposeDuringRefreshDiscardsResult(t *testing.T) {
	base := newRepoFS(t, baseRepoFiles())
	fs := &hookFS{Filesystem: base, path: ".hg/branch"}
	repo := openTestRepo(t, fs, newFakeRunner())
	before := repo.Info()

	writeFile(t, base, ".hg/bookmarks", joinLines(hashA+" one"))
	fs.hook = repo.Dispose
	changed, err := repo.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrDisposed)
	assert.False(t, changed)
	assert.Same(t, before, repo.Info())
	assert.Empty(t, repo.Info().Bookmarks())
}

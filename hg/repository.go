package hg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	difflib "github.com/ianbruene/go-difflib/difflib"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

// Options configures Open.
type Options struct {
	// Root is the working directory root (the parent of .hg).
	Root string
	// Filesystem is rooted at Root. Defaults to the OS filesystem.
	Filesystem billy.Filesystem
	// Runner executes hg. Defaults to ExecRunner{}.
	Runner Runner
	// Version skips detection when set.
	Version Version

	RefreshDelay time.Duration
	RescanDelay  time.Duration
	Workers      int

	// Scheduler may be shared between repositories. When nil the
	// repository owns one and closes it on Dispose.
	Scheduler *Scheduler
}

// EventKind tells subscribers what happened.
type EventKind int

const (
	EventChanged EventKind = iota
	EventConfigChanged
	EventIgnoredStarted
	EventIgnoredFinished
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventConfigChanged:
		return "config-changed"
	case EventIgnoredStarted:
		return "ignored-started"
	case EventIgnoredFinished:
		return "ignored-finished"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to subscribers of a Repository.
type Event struct {
	Kind       EventKind
	Repository *Repository
}

// Repository holds the live state of one working copy. Info returns an
// immutable snapshot that is replaced wholesale by Refresh.
type Repository struct {
	root    string
	reader  *Reader
	client  *Client
	caps    Capabilities
	warning error

	sched    *Scheduler
	ownSched bool
	ignored  *IgnoredIndex

	refreshMu sync.Mutex
	// swapMu orders snapshot and config swaps against Dispose.
	swapMu    sync.Mutex
	info      atomic.Pointer[RepoInfo]
	opened    atomic.Pointer[[]string]
	config    atomic.Pointer[map[string]map[string]string]
	disposed  atomic.Bool

	subsMu sync.Mutex
	subs   map[int]func(Event)
	nextID int

	mailMu  sync.Mutex
	mailbox []Event
	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
}

var _ Refreshable = (*Repository)(nil)

// Open validates the repository at opts.Root, resolves the hg version and
// reads the first snapshot.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", opts.Root, err)
	}
	done := trace.Op("Open", "root", root)

	fs := opts.Filesystem
	if fs == nil {
		fs = osfs.New(root)
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	var warning error
	version := opts.Version
	if version == (Version{}) {
		v, err := DetectVersion(ctx, runner, root)
		if err != nil {
			trace.Warn("failed to detect hg version", "error", err)
			warning = fmt.Errorf("failed to detect hg version: %w", err)
		}
		version = v
	}
	caps := CapabilitiesFor(version)
	if warning == nil {
		warning = caps.Warning()
	}

	r := &Repository{
		root:    root,
		reader:  NewReader(fs, caps.Profile),
		client:  NewClient(runner, root, caps),
		caps:    caps,
		warning: warning,
		subs:    make(map[int]func(Event)),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if !r.reader.IsRepository() {
		done(ErrNotRepository)
		return nil, fmt.Errorf("%s: %w", root, ErrNotRepository)
	}

	r.sched = opts.Scheduler
	if r.sched == nil {
		r.sched = NewScheduler(opts.RefreshDelay, opts.RescanDelay, opts.Workers)
		r.ownSched = true
	}
	r.ignored = NewIgnoredIndex(root, r.client)
	r.ignored.Subscribe(func(ev IgnoredEvent) {
		if ev == IgnoredRescanStarted {
			r.publish(EventIgnoredStarted)
		} else {
			r.publish(EventIgnoredFinished)
		}
	})
	go r.dispatch()

	if _, err := r.Refresh(ctx); err != nil {
		r.Dispose()
		done(err)
		return nil, err
	}
	if _, err := r.loadConfig(ctx); err != nil {
		trace.Warn("failed to load config", "error", err)
	}
	done(nil)
	return r, nil
}

// Root returns the absolute working directory root.
func (r *Repository) Root() string { return r.root }

// Client returns the command client bound to this repository.
func (r *Repository) Client() *Client { return r.client }

// Capabilities returns the resolved hg capabilities.
func (r *Repository) Capabilities() Capabilities { return r.caps }

// VersionWarning returns the standing version problem, if any.
func (r *Repository) VersionWarning() error { return r.warning }

// Ignored returns the ignored-file index.
func (r *Repository) Ignored() *IgnoredIndex { return r.ignored }

// Info returns the current snapshot.
func (r *Repository) Info() *RepoInfo { return r.info.Load() }

// State returns the operation state of the current snapshot.
func (r *Repository) State() State {
	if info := r.info.Load(); info != nil {
		return info.State()
	}
	return StateNormal
}

// OpenedBranches returns the names of the branches that are not closed.
func (r *Repository) OpenedBranches() []string {
	if p := r.opened.Load(); p != nil {
		return append([]string(nil), (*p)...)
	}
	return nil
}

// Refresh re-reads the metadata. If the new snapshot differs from the
// held one it is swapped in, the opened branches are recomputed and
// subscribers get an EventChanged. Concurrent calls are serialized.
func (r *Repository) Refresh(ctx context.Context) (bool, error) {
	if r.disposed.Load() {
		return false, ErrDisposed
	}
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	done := trace.OpWithResult("Refresh", "root", r.root)
	info, problems, err := r.reader.Read()
	if err != nil {
		done(err)
		return false, err
	}
	for _, p := range problems {
		trace.Warn("metadata read problem", "error", p)
	}

	r.swapMu.Lock()
	if r.disposed.Load() {
		r.swapMu.Unlock()
		done(ErrDisposed)
		return false, ErrDisposed
	}
	old := r.info.Load()
	if old != nil && old.Equal(info) {
		r.swapMu.Unlock()
		done(nil, "changed", false)
		return false, nil
	}
	r.info.Store(info)
	r.swapMu.Unlock()

	if old != nil && trace.Logger().GetLevel() <= log.DebugLevel {
		trace.Debug("snapshot changed", "diff", describeDiff(old, info))
	}
	r.updateOpened(ctx, info)
	done(nil, "changed", true, "state", info.State())
	// The first snapshot is read by Open before anyone can subscribe.
	if old != nil {
		r.publish(EventChanged)
	}
	return true, nil
}

func (r *Repository) updateOpened(ctx context.Context, info *RepoInfo) {
	names, err := r.client.OpenedBranches(ctx)
	if err != nil {
		trace.Warn("failed to list opened branches, using all known", "error", err)
		names = info.BranchNames()
	}
	r.opened.Store(&names)
}

func describeDiff(a, b *RepoInfo) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(a.Describe(), "\n")),
		B:        difflib.SplitLines(strings.Join(b.Describe(), "\n")),
		FromFile: "before",
		ToFile:   "after",
		Context:  0,
	})
	if err != nil {
		return err.Error()
	}
	return text
}

// ReloadConfig runs showconfig and publishes EventConfigChanged when the
// configuration differs.
func (r *Repository) ReloadConfig(ctx context.Context) error {
	changed, err := r.loadConfig(ctx)
	if changed {
		r.publish(EventConfigChanged)
	}
	return err
}

// loadConfig swaps in the current showconfig output and reports whether it
// differs from the held one.
func (r *Repository) loadConfig(ctx context.Context) (bool, error) {
	if r.disposed.Load() {
		return false, ErrDisposed
	}
	cfg, err := r.client.ShowConfig(ctx)
	if err != nil {
		return false, err
	}

	r.swapMu.Lock()
	defer r.swapMu.Unlock()
	if r.disposed.Load() {
		return false, ErrDisposed
	}
	if old := r.config.Load(); old != nil && equalConfig(*old, cfg) {
		return false, nil
	}
	r.config.Store(&cfg)
	return true, nil
}

// Config returns a copy of the last loaded configuration. Open loads it
// once without publishing EventConfigChanged.
func (r *Repository) Config() map[string]map[string]string {
	p := r.config.Load()
	if p == nil {
		return nil
	}
	out := make(map[string]map[string]string, len(*p))
	for section, values := range *p {
		m := make(map[string]string, len(values))
		for k, v := range values {
			m[k] = v
		}
		out[section] = m
	}
	return out
}

// ConfigValue returns one configuration value.
func (r *Repository) ConfigValue(section, name string) (string, bool) {
	p := r.config.Load()
	if p == nil {
		return "", false
	}
	v, ok := (*p)[section][name]
	return v, ok
}

func equalConfig(a, b map[string]map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for section, av := range a {
		bv, ok := b[section]
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if w, ok := bv[k]; !ok || w != v {
				return false
			}
		}
	}
	return true
}

// ChangeKind classifies a changed path.
type ChangeKind int

const (
	ChangeNone ChangeKind = iota
	ChangeMetadata
	ChangeConfig
	ChangeIgnore
)

// Classify tells what a change to path means for this repository. Paths
// may be absolute or relative to the root.
func (r *Repository) Classify(path string) ChangeKind {
	rel := path
	if filepath.IsAbs(path) {
		var err error
		if rel, err = filepath.Rel(r.root, path); err != nil {
			return ChangeNone
		}
	}
	rel = filepath.ToSlash(filepath.Clean(rel))

	switch rel {
	case MetaDir + "/" + fileConfig:
		return ChangeConfig
	case fileIgnore:
		return ChangeIgnore
	case fileTags, fileSubrepos, fileSubrepoState:
		return ChangeMetadata
	}
	if strings.HasPrefix(rel, MetaDir+"/") {
		switch filepath.Base(rel) {
		case "wlock", "lock", "undo.desc", "last-message.txt":
			return ChangeNone
		}
		return ChangeMetadata
	}
	return ChangeNone
}

// NotifyChanged routes file-system changes to the scheduler. It only
// enqueues; the work runs on the scheduler's workers.
func (r *Repository) NotifyChanged(paths ...string) {
	if r.disposed.Load() {
		return
	}
	var refresh, config, rescan bool
	for _, p := range paths {
		switch r.Classify(p) {
		case ChangeMetadata:
			refresh = true
		case ChangeConfig:
			config = true
		case ChangeIgnore:
			rescan = true
		}
	}
	if refresh {
		r.ScheduleRefresh()
	}
	if config {
		r.sched.Config(r.root, func(ctx context.Context) {
			if err := r.ReloadConfig(ctx); err != nil && !errors.Is(err, ErrDisposed) {
				trace.Warn("config reload failed", "error", err)
			}
		})
	}
	if rescan {
		r.ScheduleRescan()
	}
}

// ScheduleRefresh enqueues a debounced Refresh.
func (r *Repository) ScheduleRefresh() {
	r.sched.Refresh(r.root, func(ctx context.Context) {
		if _, err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrDisposed) {
			trace.Warn("background refresh failed", "error", err)
		}
	})
}

// ScheduleRescan enqueues a debounced ignored-file rescan.
func (r *Repository) ScheduleRescan() {
	r.sched.Rescan(r.root, func(ctx context.Context) {
		if _, err := r.ignored.Rescan(ctx); err != nil && !errors.Is(err, ErrDisposed) {
			trace.Warn("ignored rescan failed", "error", err)
		}
	})
}

// Subscribe registers fn for repository events. Events are delivered on
// a dedicated goroutine in the order they were published.
func (r *Repository) Subscribe(fn func(Event)) (cancel func()) {
	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.subsMu.Unlock()
	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

func (r *Repository) publish(kind EventKind) {
	if r.disposed.Load() {
		return
	}
	r.mailMu.Lock()
	r.mailbox = append(r.mailbox, Event{Kind: kind, Repository: r})
	r.mailMu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Repository) dispatch() {
	defer close(r.stopped)
	for {
		select {
		case <-r.quit:
			return
		case <-r.wake:
		}
		r.mailMu.Lock()
		batch := r.mailbox
		r.mailbox = nil
		r.mailMu.Unlock()

		for _, ev := range batch {
			for _, fn := range r.subscribers() {
				fn(ev)
			}
		}
	}
}

func (r *Repository) subscribers() []func(Event) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	fns := make([]func(Event), 0, len(r.subs))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Disposed reports whether Dispose was called.
func (r *Repository) Disposed() bool { return r.disposed.Load() }

// Dispose cancels pending refreshes and rescans and stops event delivery.
// A refresh already running finishes but its result is discarded.
func (r *Repository) Dispose() {
	r.swapMu.Lock()
	first := r.disposed.CompareAndSwap(false, true)
	r.swapMu.Unlock()
	if !first {
		return
	}
	trace.Info("disposing repository", "root", r.root)
	r.sched.Cancel(r.root)
	if r.ownSched {
		go r.sched.Close()
	}
	r.ignored.Dispose()
	close(r.quit)
}

package hg

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

// IgnoredEvent is published around an ignored-file rescan.
type IgnoredEvent int

const (
	IgnoredRescanStarted IgnoredEvent = iota
	IgnoredRescanFinished
)

func (e IgnoredEvent) String() string {
	if e == IgnoredRescanStarted {
		return "rescan-started"
	}
	return "rescan-finished"
}

// IgnoredLister lists ignored paths relative to the repository root.
// *Client implements it.
type IgnoredLister interface {
	Ignored(ctx context.Context) ([]string, error)
}

// IgnoredIndex is the set of ignored paths of one repository. Contains is
// safe from any goroutine, including during a Rescan: readers see the old
// set until the new one is swapped in.
type IgnoredIndex struct {
	root   string
	lister IgnoredLister

	mu    sync.RWMutex
	paths map[string]struct{}

	scanning atomic.Bool
	disposed atomic.Bool

	subsMu sync.Mutex
	subs   map[int]func(IgnoredEvent)
	nextID int
}

// NewIgnoredIndex returns an empty index for the repository at root.
func NewIgnoredIndex(root string, lister IgnoredLister) *IgnoredIndex {
	return &IgnoredIndex{
		root:   root,
		lister: lister,
		paths:  make(map[string]struct{}),
		subs:   make(map[int]func(IgnoredEvent)),
	}
}

func (x *IgnoredIndex) abs(p string) string {
	if x.root == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(x.root, filepath.FromSlash(p))
}

// Contains reports whether path is known to be ignored. Relative paths
// are taken relative to the repository root.
func (x *IgnoredIndex) Contains(path string) bool {
	p := x.abs(path)
	x.mu.RLock()
	_, ok := x.paths[p]
	x.mu.RUnlock()
	return ok
}

// Len returns the number of ignored paths.
func (x *IgnoredIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.paths)
}

// Rescan rebuilds the set from the lister. It returns false without doing
// anything when another rescan is running or the index is disposed. On a
// lister error the old set is kept.
func (x *IgnoredIndex) Rescan(ctx context.Context) (bool, error) {
	if x.disposed.Load() || !x.scanning.CompareAndSwap(false, true) {
		return false, nil
	}
	defer x.scanning.Store(false)

	x.publish(IgnoredRescanStarted)
	defer x.publish(IgnoredRescanFinished)

	done := trace.OpWithResult("IgnoredIndex.Rescan", "root", x.root)
	list, err := x.lister.Ignored(ctx)
	if err != nil {
		done(err)
		return true, err
	}

	fresh := make(map[string]struct{}, len(list))
	for _, p := range list {
		fresh[x.abs(p)] = struct{}{}
	}

	x.mu.Lock()
	if x.disposed.Load() {
		x.mu.Unlock()
		done(ErrDisposed)
		return true, ErrDisposed
	}
	x.paths = fresh
	x.mu.Unlock()

	done(nil, "paths", len(fresh))
	return true, nil
}

// Scanning reports whether a rescan is in progress.
func (x *IgnoredIndex) Scanning() bool { return x.scanning.Load() }

// Add marks paths as ignored. It does nothing once disposed.
func (x *IgnoredIndex) Add(paths ...string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.disposed.Load() {
		return
	}
	for _, p := range paths {
		x.paths[x.abs(p)] = struct{}{}
	}
}

// RemoveIfTracked drops paths that turned out to be under version
// control and returns exactly those that were in the set.
func (x *IgnoredIndex) RemoveIfTracked(paths []string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	var removed []string
	for _, path := range paths {
		p := x.abs(path)
		if _, ok := x.paths[p]; ok {
			delete(x.paths, p)
			removed = append(removed, path)
		}
	}
	return removed
}

// Subscribe registers fn for rescan events. The returned function
// removes the subscription.
func (x *IgnoredIndex) Subscribe(fn func(IgnoredEvent)) (cancel func()) {
	x.subsMu.Lock()
	id := x.nextID
	x.nextID++
	x.subs[id] = fn
	x.subsMu.Unlock()
	return func() {
		x.subsMu.Lock()
		delete(x.subs, id)
		x.subsMu.Unlock()
	}
}

func (x *IgnoredIndex) publish(ev IgnoredEvent) {
	x.subsMu.Lock()
	fns := make([]func(IgnoredEvent), 0, len(x.subs))
	for id := 0; id < x.nextID; id++ {
		if fn, ok := x.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	x.subsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Dispose clears the set, stops further rescans and drops all
// subscribers. A rescan already running discards its result.
func (x *IgnoredIndex) Dispose() {
	x.mu.Lock()
	x.disposed.Store(true)
	x.paths = make(map[string]struct{})
	x.mu.Unlock()
	x.subsMu.Lock()
	x.subs = make(map[int]func(IgnoredEvent))
	x.subsMu.Unlock()
}

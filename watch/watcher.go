package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	orderedset "github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/gerunddev/hgazy/hg"
)

// DefaultLatency is how long the watcher gathers events before it
// notifies.
const DefaultLatency = 50 * time.Millisecond

// Watcher forwards fsnotify events on .hg and the root .hg* files to a
// Notifier. Directories created under .hg are watched as they appear.
type Watcher struct {
	root    string
	fs      billy.Filesystem
	target  Notifier
	latency time.Duration
	events  *fsnotify.Watcher
}

// NewWatcher watches the working copy at root.
func NewWatcher(root string, target Notifier, latency time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if latency <= 0 {
		latency = DefaultLatency
	}
	events, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{root: abs, fs: osfs.New(abs), target: target, latency: latency, events: events}

	// The root itself is watched for the .hg* files next to .hg.
	if err := events.Add(abs); err != nil {
		events.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	if _, err := w.addTree(hg.MetaDir); err != nil {
		events.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the underlying watcher. Run closes it too.
func (w *Watcher) Close() error { return w.events.Close() }

// addTree watches dir and its subdirectories, except skipDirs, and
// returns the files already inside. Only a failure on dir itself is
// returned.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := util.Walk(w.fs, dir, func(name string, fi os.FileInfo, err error) error {
		name = filepath.ToSlash(name)
		if err != nil {
			if name == dir {
				return err
			}
			return nil
		}
		if !fi.IsDir() {
			files = append(files, name)
			return nil
		}
		if skipDirs[name] {
			return filepath.SkipDir
		}
		if err := w.events.Add(filepath.Join(w.root, filepath.FromSlash(name))); err != nil {
			if name == dir {
				return err
			}
			hg.Logger().WithPrefix("watch").Warn("failed to watch directory", "dir", name, "error", err)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return files, nil
}

// relevant reports whether a root-relative slash path is metadata.
func relevant(rel string) bool {
	if !strings.HasPrefix(rel, hg.MetaDir+"/") {
		return slices.Contains(rootFiles, rel)
	}
	for dir := range skipDirs {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return false
		}
	}
	return true
}

// paths maps one event to the root-relative paths it changed.
func (w *Watcher) paths(ev fsnotify.Event) []string {
	if ev.Op == fsnotify.Chmod {
		return nil
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if !relevant(rel) {
		return nil
	}

	changed := []string{rel}
	if ev.Has(fsnotify.Create) {
		if fi, err := w.fs.Stat(rel); err == nil && fi.IsDir() {
			// Files may land before the new watch exists.
			files, err := w.addTree(rel)
			if err != nil {
				hg.Logger().WithPrefix("watch").Warn("failed to watch new directory", "error", err)
			}
			changed = append(changed, files...)
		}
	}
	return changed
}

// Run delivers batched change paths until ctx is done. Watch errors are
// logged and do not stop it.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.events.Close()
	log := hg.Logger().WithPrefix("watch")
	log.Debug("watching", "root", w.root)

	pending := orderedset.New()
	var flush <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.events.Events:
			if !ok {
				return nil
			}
			for _, p := range w.paths(ev) {
				pending.Add(p)
			}
			if flush == nil && !pending.Empty() {
				flush = time.After(w.latency)
			}

		case err, ok := <-w.events.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case <-flush:
			flush = nil
			changed := make([]string, 0, pending.Size())
			for _, v := range pending.Values() {
				changed = append(changed, v.(string))
			}
			pending.Clear()
			log.Debug("metadata changed", "paths", len(changed), "first", changed[0])
			w.target.NotifyChanged(changed...)
		}
	}
}

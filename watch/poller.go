// Package watch turns changes of a working copy's metadata files into
// repository notifications. Watcher uses OS file events; Poller compares
// stat snapshots of a go-billy filesystem where events are unavailable.
package watch

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/gerunddev/hgazy/hg"
)

// DefaultInterval is the polling period used when none is given.
const DefaultInterval = 500 * time.Millisecond

// rootFiles are watched working-copy files outside .hg.
var rootFiles = []string{".hgtags", ".hgignore", ".hgsub", ".hgsubstate"}

// skipDirs under .hg hold revlog data whose changes always show up in
// dirstate or the branch caches as well.
var skipDirs = map[string]bool{
	path.Join(hg.MetaDir, "store"):         true,
	path.Join(hg.MetaDir, "strip-backup"):  true,
	path.Join(hg.MetaDir, "largefiles"):    true,
	path.Join(hg.MetaDir, "shelve-backup"): true,
}

// Notifier receives the paths that changed. *hg.Repository implements it.
type Notifier interface {
	NotifyChanged(paths ...string)
}

type stamp struct {
	size  int64
	mod   time.Time
	isDir bool
}

// Poller compares stat snapshots of the metadata files on every tick.
type Poller struct {
	fs       billy.Filesystem
	target   Notifier
	interval time.Duration

	mu     sync.Mutex
	seen   map[string]stamp
	primed bool
}

// NewPoller returns a poller over fs, which must be rooted at the working
// copy root.
func NewPoller(fs billy.Filesystem, target Notifier, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{fs: fs, target: target, interval: interval}
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration { return p.interval }

func (p *Poller) snapshot() map[string]stamp {
	snap := make(map[string]stamp)
	_ = util.Walk(p.fs, hg.MetaDir, func(name string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		name = filepath.ToSlash(name)
		if fi.IsDir() && skipDirs[name] {
			return filepath.SkipDir
		}
		if name != hg.MetaDir {
			snap[name] = stamp{size: fi.Size(), mod: fi.ModTime(), isDir: fi.IsDir()}
		}
		return nil
	})
	for _, name := range rootFiles {
		if fi, err := p.fs.Stat(name); err == nil {
			snap[name] = stamp{size: fi.Size(), mod: fi.ModTime()}
		}
	}
	return snap
}

// Scan takes a new snapshot and returns the sorted paths that were
// added, removed or modified since the previous one. The first scan only
// records a baseline.
func (p *Poller) Scan() []string {
	snap := p.snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()
	prev, primed := p.seen, p.primed
	p.seen, p.primed = snap, true
	if !primed {
		return nil
	}

	var changed []string
	for name, st := range snap {
		old, ok := prev[name]
		if !ok || (!st.isDir && (old.size != st.size || !old.mod.Equal(st.mod))) {
			changed = append(changed, name)
		}
	}
	for name := range prev {
		if _, ok := snap[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// Run polls until ctx is done, passing every non-empty change set to the
// notifier.
func (p *Poller) Run(ctx context.Context) error {
	log := hg.Logger().WithPrefix("watch")
	p.Scan()
	log.Debug("watching", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if changed := p.Scan(); len(changed) > 0 {
				log.Debug("metadata changed", "paths", len(changed), "first", changed[0])
				p.target.NotifyChanged(changed...)
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/interactive"
	"github.com/gerunddev/hgazy/ui"
	"github.com/gerunddev/hgazy/watch"
)

func main() {
	// Parse flags
	interactiveMode := flag.Bool("i", false, "Run in interactive mode (quick actions)")
	repoFlag := flag.String("R", ".", "Repository root or any directory inside it")
	hgFlag := flag.String("hg", envOr("HGAZY_HG", hg.DefaultExecutable), "Mercurial executable")
	poll := flag.Duration("poll", watch.DefaultInterval, "Metadata polling interval when file events are unavailable")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, err := findRoot(*repoFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening repository: %v\n", err)
		os.Exit(1)
	}

	repo, err := hg.Open(ctx, hg.Options{
		Root:       root,
		Filesystem: osfs.New(root),
		Runner:     hg.ExecRunner{Executable: *hgFlag},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening repository: %v\n", err)
		os.Exit(1)
	}
	defer repo.Dispose()

	// Dispatch based on mode
	if *interactiveMode {
		if err := interactive.Run(ctx, repo); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	repo.ScheduleRescan()
	go watchRepository(ctx, root, repo, *poll)

	// Full TUI mode (default)
	app := ui.NewApp(ctx, repo)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// watchRepository feeds metadata changes to repo until ctx is done. It
// polls when OS file events cannot be set up.
func watchRepository(ctx context.Context, root string, repo *hg.Repository, poll time.Duration) {
	run := func(ctx context.Context) error { return watch.NewPoller(osfs.New(root), repo, poll).Run(ctx) }
	if w, err := watch.NewWatcher(root, repo, 0); err != nil {
		hg.Logger().Warn("file events unavailable, polling", "error", err, "interval", poll)
	} else {
		run = w.Run
	}
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		hg.Logger().Warn("watcher stopped", "error", err)
	}
}

// findRoot walks up from dir to the first directory holding .hg.
func findRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for d := abs; ; d = filepath.Dir(d) {
		if fi, err := os.Stat(filepath.Join(d, hg.MetaDir)); err == nil && fi.IsDir() {
			return d, nil
		}
		if filepath.Dir(d) == d {
			return "", fmt.Errorf("%s: %w", abs, hg.ErrNotRepository)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}


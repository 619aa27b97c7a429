package interactive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/gerunddev/hgazy/app"
	"github.com/gerunddev/hgazy/hg"
)

const pickLimit = 50

func runShow(ctx context.Context, repo *hg.Repository) error {
	info := repo.Info()
	if info != nil && info.IsFresh() {
		fmt.Println("No revisions yet")
		return nil
	}

	records, err := repo.Client().Log(ctx, hg.DetailBranch, pickLimit)
	if err != nil {
		return fmt.Errorf("failed to get log: %w", err)
	}

	options := buildRevisionOptions(records, info)
	if len(options) == 0 {
		fmt.Println("No revisions available")
		return nil
	}

	var changeset string
	err = huh.NewSelect[string]().
		Title("Select revision").
		Options(options...).
		Value(&changeset).
		Run()

	if err != nil {
		return nil // User cancelled
	}

	changes, err := repo.Client().Status(ctx, hg.StatusOptions{
		Added: true, Modified: true, Removed: true, Copies: true,
		Change: changeset,
	})
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	printChanges(os.Stdout, repo.Root(), changes)
	return nil
}

func runConflicts(ctx context.Context, repo *hg.Repository) error {
	switch repo.State() {
	case hg.StateMerging, hg.StateRebasing, hg.StateGrafting:
	default:
		fmt.Println("No merge in progress")
		return nil
	}

	states, err := repo.Client().Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	printConflicts(os.Stdout, states)
	return nil
}

func runBranches(repo *hg.Repository) error {
	names := repo.OpenedBranches()
	if len(names) == 0 {
		fmt.Println("No opened branches")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func buildRevisionOptions(records []hg.CommitRecord, info *hg.RepoInfo) []huh.Option[string] {
	nav := app.NewNavigation(records, info)
	current := ""
	if info != nil {
		current, _ = info.CurrentRevision()
	}

	var options []huh.Option[string]
	for _, r := range records {
		label := r.Revision.RevisionWithoutMarker() + ":" + r.Revision.ShortChangeset()
		if r.Changeset() == current {
			label += " @"
		}
		if marks := nav.Bookmarks(r.Changeset()); len(marks) > 0 {
			label += " [" + strings.Join(marks, ", ") + "]"
		}
		if s := r.Subject(); s != "" {
			label += " " + s
		} else {
			label += " (no message)"
		}
		options = append(options, huh.NewOption(label, r.Changeset()))
	}
	return options
}

func printChanges(w io.Writer, root string, changes []hg.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes")
		return
	}
	rel := func(p string) string {
		if r, err := filepath.Rel(root, p); err == nil {
			return filepath.ToSlash(r)
		}
		return p
	}
	for _, c := range changes {
		if c.Status == hg.StatusCopied {
			fmt.Fprintf(w, "%s %s (from %s)\n", c.Status, rel(c.After), rel(c.Before))
			continue
		}
		fmt.Fprintf(w, "%s %s\n", c.Status, rel(c.Path()))
	}
}

func printConflicts(w io.Writer, states map[string]hg.ResolveState) {
	if len(states) == 0 {
		fmt.Fprintln(w, "No conflicts")
		return
	}
	paths := make([]string, 0, len(states))
	for p := range states {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(w, "%s %s\n", states[p], p)
	}
}

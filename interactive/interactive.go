package interactive

import (
	"context"

	"github.com/charmbracelet/huh"
	"github.com/gerunddev/hgazy/hg"
)

// Run starts the interactive mode
func Run(ctx context.Context, repo *hg.Repository) error {
	var action string

	err := huh.NewSelect[string]().
		Title("hgazy - Quick Actions").
		Options(
			huh.NewOption("Show - List files changed by a revision", "show"),
			huh.NewOption("Conflicts - List merge conflicts", "conflicts"),
			huh.NewOption("Branches - List opened branches", "branches"),
		).
		Value(&action).
		Run()

	if err != nil {
		return err // User cancelled
	}

	switch action {
	case "show":
		return runShow(ctx, repo)
	case "conflicts":
		return runConflicts(ctx, repo)
	case "branches":
		return runBranches(repo)
	}

	return nil
}

// Package hg keeps a live model of a Mercurial working copy.
// It reads the files under .hg directly and runs the hg executable
// only for facts that have no reliable on-disk form. Consumers of this
// package interact with immutable snapshots (RepoInfo) and parsed
// history records; nothing here writes to the repository.
package hg

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/gerunddev/hgazy/hg/internal/trace"
)

var (
	// ErrNotRepository is returned when no .hg directory exists under the root.
	ErrNotRepository = errors.New("not a mercurial repository")

	// ErrDisposed is returned by operations on a disposed repository.
	ErrDisposed = errors.New("repository disposed")

	// ErrUnsupportedVersion marks an hg executable older than MinVersion.
	ErrUnsupportedVersion = errors.New("unsupported mercurial version")
)

// Refreshable is anything that can recompute its state from disk.
// Refresh reports whether the state changed.
type Refreshable interface {
	Refresh(ctx context.Context) (bool, error)
}

// HashName is one "<hash> <name>" entry from a metadata file.
type HashName struct {
	Hash string `json:"hash"`
	Name string `json:"name"`
}

// Bookmark is a named, movable pointer to a changeset.
type Bookmark struct {
	Name    string `json:"name"`
	Hash    string `json:"hash"`
	Current bool   `json:"current"`
}

// Logger returns the package logger. It discards everything unless
// HGAZY_LOG_FILE is set.
func Logger() *log.Logger { return trace.Logger() }

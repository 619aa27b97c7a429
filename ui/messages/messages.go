package messages

import "github.com/gerunddev/hgazy/hg"

// FileSelectedMsg is sent when a file is selected in FilesPanel
type FileSelectedMsg struct {
	Path string // relative to the repository root
}

// RevisionSelectedMsg is sent when a revision is picked in LogOverlay
type RevisionSelectedMsg struct {
	Changeset string
}

// DiffContentMsg carries diff content to be displayed in DiffViewer
type DiffContentMsg struct {
	Content string
	Title   string
}

// RepoEventMsg wraps an event published by the repository.
type RepoEventMsg struct {
	Event hg.Event
}

// ChangesLoadedMsg carries a fresh working-copy status.
type ChangesLoadedMsg struct {
	Changes []hg.Change
	Err     error
}

// LogLoadedMsg carries the recent history shown by LogOverlay.
type LogLoadedMsg struct {
	Records []hg.CommitRecord
	Err     error
}

// ConflictsLoadedMsg carries the resolve list during a merge.
type ConflictsLoadedMsg struct {
	States map[string]hg.ResolveState
	Err    error
}

package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gerunddev/hgazy/app"
	"github.com/gerunddev/hgazy/hg"
	"github.com/gerunddev/hgazy/ui/floating"
	"github.com/gerunddev/hgazy/ui/messages"
	"github.com/gerunddev/hgazy/ui/panels"
	"github.com/gerunddev/hgazy/ui/theme"
)

// Panel indices, in focus order.
const (
	PanelDiff = iota
	PanelStatus
	PanelFiles
	PanelBranches
	PanelBookmarks
	PanelQueue
	panelCount
)

// logLimit bounds the history loaded into the log overlay.
const logLimit = 200

// PanelBound defines the screen coordinates of a panel for mouse detection
type PanelBound struct {
	X1, Y1, X2, Y2 int
	PanelIndex     int
}

// App is the main application model
type App struct {
	ctx  context.Context
	repo *hg.Repository

	// Panels
	diffViewer     *panels.DiffViewer
	statusPanel    *panels.StatusPanel
	filesPanel     *panels.FilesPanel
	branchesPanel  *panels.ListPanel
	bookmarksPanel *panels.ListPanel
	queuePanel     *panels.ListPanel

	// Floating windows
	logOverlay  *floating.LogOverlay
	helpOverlay *floating.HelpOverlay
	warning     *floating.InfoOverlay
	overlay     Overlay

	// Repository events arrive on events; done stops the forwarder.
	events      chan hg.Event
	done        chan struct{}
	unsubscribe func()

	spinner  spinner.Model
	scanning bool

	focusedPanel int
	keys         KeyMap
	width        int
	height       int
	ready        bool

	// Panel bounds for mouse coordinate mapping
	panelBounds []PanelBound
}

// NewApp creates the viewer for an open repository. Close must be called
// once the program exits.
func NewApp(ctx context.Context, repo *hg.Repository) *App {
	keys := DefaultKeyMap()
	a := &App{
		ctx:            ctx,
		repo:           repo,
		diffViewer:     panels.NewDiffViewer(),
		statusPanel:    panels.NewStatusPanel(),
		filesPanel:     panels.NewFilesPanel(repo.Root()),
		branchesPanel:  panels.NewBranchesPanel(),
		bookmarksPanel: panels.NewBookmarksPanel(),
		queuePanel:     panels.NewQueuePanel(),
		logOverlay:     floating.NewLogOverlay(),
		helpOverlay:    floating.NewHelpOverlay(keys),
		events:         make(chan hg.Event, 16),
		done:           make(chan struct{}),
		spinner:        spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.TimestampStyle)),
		focusedPanel:   PanelFiles,
		keys:           keys,
	}

	a.unsubscribe = repo.Subscribe(func(ev hg.Event) {
		select {
		case a.events <- ev:
		case <-a.done:
		}
	})

	a.applyInfo()
	a.applyConfig()
	a.scanning = repo.Ignored().Scanning()
	a.statusPanel.SetIgnored(repo.Ignored().Len(), a.scanning)
	if err := repo.VersionWarning(); err != nil {
		a.statusPanel.SetWarning(err)
		a.warning = floating.NewWarningOverlay(err)
		a.overlay = OverlayWarning
	}
	a.setFocus(PanelFiles)
	return a
}

// Close detaches the app from the repository.
func (a *App) Close() {
	a.unsubscribe()
	close(a.done)
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(a.events), a.loadChanges(), a.loadLog(), a.loadConflicts()}
	if a.scanning {
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func waitForEvent(events <-chan hg.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return messages.RepoEventMsg{Event: ev}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateLayout()
		a.ready = true
		return a, nil

	case messages.RepoEventMsg:
		return a, tea.Batch(waitForEvent(a.events), a.handleEvent(msg.Event))

	case spinner.TickMsg:
		if !a.scanning {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.ChangesLoadedMsg:
		cmd := a.filesPanel.SetChanges(msg.Changes, msg.Err)
		a.relayout()
		return a, cmd

	case messages.ConflictsLoadedMsg:
		if msg.Err != nil {
			hg.Logger().Warn("resolve list failed", "err", msg.Err)
		}
		a.filesPanel.SetConflicts(msg.States)
		return a, nil

	case messages.LogLoadedMsg:
		a.logOverlay.SetRecords(msg.Records, msg.Err)
		a.updateNearestBookmark()
		return a, nil

	case messages.FileSelectedMsg:
		return a, a.fetchDiff("", msg.Path)

	case messages.RevisionSelectedMsg:
		a.overlay = OverlayNone
		a.setFocus(PanelDiff)
		return a, a.fetchDiff(msg.Changeset, "")

	case messages.DiffContentMsg:
		a.diffViewer.SetContent(msg.Content, msg.Title)
		return a, nil

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleEvent(ev hg.Event) tea.Cmd {
	switch ev.Kind {
	case hg.EventChanged:
		a.applyInfo()
		a.relayout()
		return tea.Batch(a.loadChanges(), a.loadLog(), a.loadConflicts())
	case hg.EventConfigChanged:
		hg.Logger().Debug("config reloaded", "root", a.repo.Root())
		a.applyConfig()
		a.relayout()
	case hg.EventIgnoredStarted:
		a.scanning = true
		a.statusPanel.SetIgnored(a.repo.Ignored().Len(), true)
		return a.spinner.Tick
	case hg.EventIgnoredFinished:
		a.scanning = false
		a.statusPanel.SetIgnored(a.repo.Ignored().Len(), false)
		return a.loadChanges()
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.overlay {
	case OverlayWarning:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		a.overlay = OverlayNone
		return a, nil

	case OverlayHelp:
		switch {
		case key.Matches(msg, a.keys.Escape), key.Matches(msg, a.keys.Help):
			a.overlay = OverlayNone
			return a, nil
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		}
		_, cmd := a.helpOverlay.Update(msg)
		return a, cmd

	case OverlayLog:
		switch {
		case key.Matches(msg, a.keys.Escape), key.Matches(msg, a.keys.ToggleLog):
			a.overlay = OverlayNone
			return a, nil
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		}
		_, cmd := a.logOverlay.Update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.ToggleLog):
		a.overlay = OverlayLog
		return a, nil

	case key.Matches(msg, a.keys.Help):
		a.overlay = OverlayHelp
		return a, nil

	case key.Matches(msg, a.keys.Refresh):
		a.repo.ScheduleRefresh()
		return a, a.loadChanges()

	case key.Matches(msg, a.keys.Rescan):
		a.repo.ScheduleRescan()
		return a, nil

	case key.Matches(msg, a.keys.NextPanel):
		a.setFocus((a.focusedPanel + 1) % panelCount)
		return a, nil
	case key.Matches(msg, a.keys.PrevPanel):
		a.setFocus((a.focusedPanel + panelCount - 1) % panelCount)
		return a, nil
	}

	if i := a.keys.PanelFor(msg); i >= 0 {
		a.setFocus(i)
		return a, nil
	}

	_, cmd := a.panel(a.focusedPanel).Update(msg)
	return a, cmd
}

// applyInfo pushes the current snapshot into every panel.
func (a *App) applyInfo() {
	info := a.repo.Info()
	a.statusPanel.SetInfo(info)
	a.branchesPanel.SetInfo(info)
	a.bookmarksPanel.SetInfo(info)
	a.queuePanel.SetInfo(info)
	a.logOverlay.SetInfo(info)
}

// applyConfig shows the committer from the repository config.
func (a *App) applyConfig() {
	user, _ := a.repo.ConfigValue("ui", "username")
	a.statusPanel.SetUser(user)
}

func (a *App) updateNearestBookmark() {
	info := a.repo.Info()
	if info == nil {
		return
	}
	if _, ok := info.CurrentBookmark(); ok {
		a.statusPanel.SetNearestBookmark("")
		return
	}
	nav := app.NewNavigation(a.logOverlay.Records(), info)
	a.statusPanel.SetNearestBookmark(nav.NearestBookmark())
}

func (a *App) panel(index int) panels.Panel {
	switch index {
	case PanelDiff:
		return a.diffViewer
	case PanelStatus:
		return a.statusPanel
	case PanelFiles:
		return a.filesPanel
	case PanelBranches:
		return a.branchesPanel
	case PanelBookmarks:
		return a.bookmarksPanel
	case PanelQueue:
		return a.queuePanel
	}
	return nil
}

func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		a.statusPanel.View(),
		a.filesPanel.View(),
		a.branchesPanel.View(),
		a.bookmarksPanel.View(),
		a.queuePanel.View(),
	)
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, a.diffViewer.View())
	fullView := lipgloss.JoinVertical(lipgloss.Left, main, a.renderHelpBar())

	switch a.overlay {
	case OverlayLog:
		fullView = overlay(fullView, a.logOverlay.View())
	case OverlayHelp:
		fullView = overlay(fullView, a.helpOverlay.View())
	case OverlayWarning:
		fullView = overlay(fullView, a.warning.View())
	}
	return fullView
}

func (a *App) setFocus(index int) {
	for i := 0; i < panelCount; i++ {
		a.panel(i).SetFocused(i == index)
	}
	a.focusedPanel = index
}

// relayout recomputes panel sizes after content counts change.
func (a *App) relayout() {
	if a.ready {
		a.updateLayout()
	}
}

func (a *App) updateLayout() {
	sidebarWidth := theme.SidebarWidth
	if a.width < 100 {
		sidebarWidth = theme.SidebarMinWidth
	} else if a.width > 200 {
		sidebarWidth = theme.SidebarMaxWidth
	}

	diffWidth := a.width - sidebarWidth
	contentHeight := a.height - 1 // Leave room for help bar

	stack := []panels.Panel{a.statusPanel, a.filesPanel, a.branchesPanel, a.bookmarksPanel, a.queuePanel}
	indices := []int{PanelStatus, PanelFiles, PanelBranches, PanelBookmarks, PanelQueue}
	heights := stackHeights(contentHeight, []int{
		a.statusPanel.Count(),
		a.filesPanel.Count(),
		a.branchesPanel.Count(),
		a.bookmarksPanel.Count(),
		a.queuePanel.Count(),
	})

	a.diffViewer.SetSize(diffWidth, contentHeight)
	a.panelBounds = []PanelBound{
		{X1: sidebarWidth, Y1: 0, X2: a.width - 1, Y2: contentHeight - 1, PanelIndex: PanelDiff},
	}
	y := 0
	for i, p := range stack {
		p.SetSize(sidebarWidth, heights[i])
		a.panelBounds = append(a.panelBounds, PanelBound{
			X1: 0, Y1: y, X2: sidebarWidth - 1, Y2: y + heights[i] - 1, PanelIndex: indices[i],
		})
		y += heights[i]
	}

	a.logOverlay.SetSize(a.width, contentHeight)
	a.helpOverlay.SetSize(a.width, contentHeight)
	if a.warning != nil {
		a.warning.SetSize(a.width, contentHeight)
	}
}

func (a *App) renderHelpBar() string {
	ctx := HelpBarContext{
		Overlay:      a.overlay,
		FocusedPanel: a.focusedPanel,
		Scanning:     a.scanning,
		Spinner:      a.spinner.View(),
	}
	switch a.focusedPanel {
	case PanelFiles:
		ctx.HasSelection = a.filesPanel.SelectedFile() != nil
	case PanelBranches, PanelBookmarks, PanelQueue:
		_, ctx.HasSelection = a.panel(a.focusedPanel).(*panels.ListPanel).Selected()
	}
	return RenderContextualHelpBar(ctx, a.width)
}

// overlay draws the non-blank lines of top over background.
func overlay(background, top string) string {
	bgLines := strings.Split(background, "\n")
	for i, line := range strings.Split(top, "\n") {
		if i < len(bgLines) && strings.TrimSpace(line) != "" {
			bgLines[i] = line
		}
	}
	return strings.Join(bgLines, "\n")
}

func (a *App) loadChanges() tea.Cmd {
	client := a.repo.Client()
	return func() tea.Msg {
		changes, err := client.Status(a.ctx, hg.DefaultStatus)
		return messages.ChangesLoadedMsg{Changes: changes, Err: err}
	}
}

func (a *App) loadConflicts() tea.Cmd {
	if a.repo.State() != hg.StateMerging && a.repo.State() != hg.StateRebasing && a.repo.State() != hg.StateGrafting {
		return func() tea.Msg { return messages.ConflictsLoadedMsg{} }
	}
	client := a.repo.Client()
	return func() tea.Msg {
		states, err := client.Resolve(a.ctx)
		return messages.ConflictsLoadedMsg{States: states, Err: err}
	}
}

func (a *App) loadLog() tea.Cmd {
	if info := a.repo.Info(); info == nil || info.IsFresh() {
		return func() tea.Msg { return messages.LogLoadedMsg{} }
	}
	client := a.repo.Client()
	return func() tea.Msg {
		records, err := client.Log(a.ctx, hg.DetailBranch, logLimit)
		return messages.LogLoadedMsg{Records: records, Err: err}
	}
}

// fetchDiff diffs one revision, or the working copy when change is empty,
// optionally limited to one path.
func (a *App) fetchDiff(change, path string) tea.Cmd {
	client := a.repo.Client()
	return func() tea.Msg {
		var paths []string
		title := "working copy"
		if change != "" {
			title = change
			if len(title) > 12 {
				title = title[:12]
			}
		}
		if path != "" {
			paths = append(paths, path)
			title = path
		}
		diff, err := client.Diff(a.ctx, change, paths...)
		if err != nil {
			diff = "Error: " + err.Error()
		}
		return messages.DiffContentMsg{Content: diff, Title: title}
	}
}

// handleMouse processes mouse events for panel focus and interaction
func (a *App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if a.overlay != OverlayNone {
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			a.overlay = OverlayNone
			return a, nil
		}
		if a.overlay == OverlayLog && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown) {
			_, cmd := a.logOverlay.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	panelIndex := a.panelAtPoint(msg.X, msg.Y)

	switch msg.Button {
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress {
			if panelIndex >= 0 && panelIndex != a.focusedPanel {
				a.setFocus(panelIndex)
			}
			return a.forwardMouseToPanel(panelIndex, msg)
		}

	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		return a.forwardMouseToPanel(panelIndex, msg)
	}

	return a, nil
}

// panelAtPoint returns the panel index at the given screen coordinates
func (a *App) panelAtPoint(x, y int) int {
	for _, bound := range a.panelBounds {
		if x >= bound.X1 && x <= bound.X2 && y >= bound.Y1 && y <= bound.Y2 {
			return bound.PanelIndex
		}
	}
	return -1
}

// forwardMouseToPanel forwards a mouse event to the appropriate panel
func (a *App) forwardMouseToPanel(panelIndex int, msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	p := a.panel(panelIndex)
	if p == nil {
		return a, nil
	}
	for _, bound := range a.panelBounds {
		if bound.PanelIndex == panelIndex {
			msg.Y -= bound.Y1
			msg.X -= bound.X1
			break
		}
	}
	_, cmd := p.Update(msg)
	return a, cmd
}

// Package theme holds the colors, styles and layout constants shared by
// the viewer.
package theme

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorYellow     = lipgloss.Color("#E5C07B")
	ColorOrange     = lipgloss.Color("#D19A66")
	ColorRed        = lipgloss.Color("#E06C75")
	ColorMagenta    = lipgloss.Color("#C678DD")
	ColorBlue       = lipgloss.Color("#61AFEF")
	ColorCyan       = lipgloss.Color("#56B6C2")
	ColorGreen      = lipgloss.Color("#98C379")
	ColorWhite      = lipgloss.Color("#ABB2BF")
	ColorDimWhite   = lipgloss.Color("#5C6370")
	ColorBackground = lipgloss.Color("#282C34")
	ColorSurface    = lipgloss.Color("#3E4451")
)

// Panel chrome
var (
	FocusedBorderColor   = ColorBlue
	UnfocusedBorderColor = ColorDimWhite

	TitleStyle        = lipgloss.NewStyle().Foreground(ColorDimWhite)
	FocusedTitleStyle = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
)

// List items
var (
	SelectedItemStyle = lipgloss.NewStyle().Background(ColorSurface).Foreground(ColorWhite).Bold(true)
	NormalItemStyle   = lipgloss.NewStyle().Foreground(ColorWhite)
	DimmedStyle       = lipgloss.NewStyle().Foreground(ColorDimWhite)
	WarningStyle      = lipgloss.NewStyle().Foreground(ColorOrange)
)

// File status, one per hg status letter
var (
	AddedStyle    = lipgloss.NewStyle().Foreground(ColorGreen)
	ModifiedStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	RemovedStyle  = lipgloss.NewStyle().Foreground(ColorRed)
	MissingStyle  = lipgloss.NewStyle().Foreground(ColorMagenta)
	UnknownStyle  = lipgloss.NewStyle().Foreground(ColorDimWhite)
	CopiedStyle   = lipgloss.NewStyle().Foreground(ColorCyan)
	ConflictStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
)

// Diff lines
var (
	DiffAddLine     = lipgloss.NewStyle().Foreground(ColorGreen)
	DiffRemoveLine  = lipgloss.NewStyle().Foreground(ColorRed)
	DiffContextLine = lipgloss.NewStyle().Foreground(ColorWhite)
	DiffHunkHeader  = lipgloss.NewStyle().Foreground(ColorCyan)
)

// Revisions
var (
	RevisionStyle       = lipgloss.NewStyle().Foreground(ColorYellow)
	HashPrefixStyle     = lipgloss.NewStyle().Foreground(ColorMagenta).Bold(true)
	HashRestStyle       = lipgloss.NewStyle().Foreground(ColorDimWhite)
	BranchStyle         = lipgloss.NewStyle().Foreground(ColorGreen)
	BookmarkStyle       = lipgloss.NewStyle().Foreground(ColorMagenta)
	TagStyle            = lipgloss.NewStyle().Foreground(ColorYellow)
	AuthorStyle         = lipgloss.NewStyle().Foreground(ColorOrange)
	TimestampStyle      = lipgloss.NewStyle().Foreground(ColorCyan)
	WorkingCopyStyle    = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	StateStyle          = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	FloatingTitleStyle  = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	FloatingBorderColor = ColorBlue
)

// Help bar
var (
	HelpBarStyle  = lipgloss.NewStyle().Foreground(ColorDimWhite)
	HelpKeyStyle  = lipgloss.NewStyle().Foreground(ColorBlue)
	HelpDescStyle = lipgloss.NewStyle().Foreground(ColorDimWhite)
)

// Layout
const (
	SidebarWidth    = 44
	SidebarMinWidth = 32
	SidebarMaxWidth = 60
	PanelMinHeight  = 3
)
